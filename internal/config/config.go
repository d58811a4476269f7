// Package config loads faceswap settings from an optional YAML file and
// FACESWAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/faceswap/internal/detector"
	"github.com/ayusman/faceswap/internal/swapper"
)

type Config struct {
	PredictorPath string         `yaml:"predictor_path"`
	Detector      DetectorConfig `yaml:"detector"`
	Policy        string         `yaml:"policy"`        // first or strict
	Workers       int            `yaml:"workers"`       // 0 means one per CPU
	FeatherAmount int            `yaml:"feather_amount"`
	ScaleFactor   float64        `yaml:"scale_factor"`
	Debug         bool           `yaml:"debug"`
	DBPath        string         `yaml:"db_path"` // empty disables run history and the landmark cache
	Listen        string         `yaml:"listen"`  // empty disables the status API during runs
}

type DetectorConfig struct {
	Mode     string        `yaml:"mode"` // service or exec
	Script   string        `yaml:"script"`
	Python   string        `yaml:"python"`
	Upsample int           `yaml:"upsample"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	d := detector.DefaultConfig()
	return &Config{
		PredictorPath: d.PredictorPath,
		Detector: DetectorConfig{
			Mode:     string(detector.ModeService),
			Upsample: d.Upsample,
			Timeout:  d.Timeout,
		},
		Policy:        string(detector.PolicyFirst),
		FeatherAmount: swapper.FeatherAmount,
		ScaleFactor:   1,
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// not empty) and then with environment variables.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.PredictorPath = envString("FACESWAP_PREDICTOR", c.PredictorPath)
	c.Detector.Mode = envString("FACESWAP_DETECTOR", c.Detector.Mode)
	c.Detector.Script = envString("FACESWAP_DETECTOR_SCRIPT", c.Detector.Script)
	c.Detector.Python = envString("FACESWAP_PYTHON", c.Detector.Python)
	c.Detector.Upsample = envInt("FACESWAP_UPSAMPLE", c.Detector.Upsample)
	c.Detector.Timeout = envDuration("FACESWAP_DETECTOR_TIMEOUT", c.Detector.Timeout)
	c.Policy = envString("FACESWAP_POLICY", c.Policy)
	c.Workers = envInt("FACESWAP_WORKERS", c.Workers)
	c.FeatherAmount = envInt("FACESWAP_FEATHER", c.FeatherAmount)
	c.ScaleFactor = envFloat("FACESWAP_SCALE", c.ScaleFactor)
	c.Debug = envBool("FACESWAP_DEBUG", c.Debug)
	c.DBPath = envString("FACESWAP_DB", c.DBPath)
	c.Listen = envString("FACESWAP_LISTEN", c.Listen)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.PredictorPath == "" {
		return errors.New("predictor_path is required")
	}
	switch detector.Mode(c.Detector.Mode) {
	case detector.ModeService, detector.ModeExec:
	default:
		return fmt.Errorf("detector.mode must be service or exec, got %q", c.Detector.Mode)
	}
	if _, err := detector.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.FeatherAmount < 1 || c.FeatherAmount%2 == 0 {
		return fmt.Errorf("feather_amount must be a positive odd number, got %d", c.FeatherAmount)
	}
	if c.ScaleFactor <= 0 {
		return fmt.Errorf("scale_factor must be positive, got %g", c.ScaleFactor)
	}
	if c.Detector.Timeout <= 0 {
		return fmt.Errorf("detector.timeout must be positive, got %s", c.Detector.Timeout)
	}
	return nil
}

// LandmarkConfig returns the landmark helper settings.
func (c *Config) LandmarkConfig() detector.Config {
	d := detector.DefaultConfig()
	d.PredictorPath = c.PredictorPath
	d.Script = c.Detector.Script
	d.Python = c.Detector.Python
	d.Upsample = c.Detector.Upsample
	d.Timeout = c.Detector.Timeout
	d.Processes = c.Workers
	if d.Processes <= 0 {
		d.Processes = runtime.NumCPU()
	}
	return d
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as an integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return defaultVal
}
