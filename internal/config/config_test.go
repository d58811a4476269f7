package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faceswap.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()

	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
	if c.FeatherAmount != 15 {
		t.Errorf("expected feather 15, got %d", c.FeatherAmount)
	}
	if c.ScaleFactor != 1 {
		t.Errorf("expected scale 1, got %f", c.ScaleFactor)
	}
	if c.Policy != "first" || c.Detector.Mode != "service" {
		t.Errorf("unexpected policy/mode %q/%q", c.Policy, c.Detector.Mode)
	}
	if c.DBPath != "" || c.Listen != "" {
		t.Error("history and status API should be off by default")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
predictor_path: /models/shape.dat
policy: strict
workers: 3
debug: true
detector:
  mode: exec
  timeout: 5s
db_path: runs.db
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.PredictorPath != "/models/shape.dat" {
		t.Errorf("expected predictor from file, got %q", c.PredictorPath)
	}
	if c.Policy != "strict" || c.Workers != 3 || !c.Debug {
		t.Errorf("unexpected values: %+v", c)
	}
	if c.Detector.Mode != "exec" || c.Detector.Timeout != 5*time.Second {
		t.Errorf("unexpected detector config: %+v", c.Detector)
	}
	// Keys absent from the file keep their defaults.
	if c.FeatherAmount != 15 {
		t.Errorf("expected default feather, got %d", c.FeatherAmount)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "workers: 3\npolicy: strict\n")

	t.Setenv("FACESWAP_WORKERS", "8")
	t.Setenv("FACESWAP_POLICY", "first")
	t.Setenv("FACESWAP_SCALE", "2")
	t.Setenv("FACESWAP_DEBUG", "true")
	t.Setenv("FACESWAP_DETECTOR_TIMEOUT", "250ms")
	t.Setenv("FACESWAP_FEATHER", "not-a-number")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Workers != 8 || c.Policy != "first" || c.ScaleFactor != 2 || !c.Debug {
		t.Errorf("env overrides not applied: %+v", c)
	}
	if c.Detector.Timeout != 250*time.Millisecond {
		t.Errorf("expected 250ms timeout, got %s", c.Detector.Timeout)
	}
	if c.FeatherAmount != 15 {
		t.Errorf("invalid env value should keep the previous value, got %d", c.FeatherAmount)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "workers: [1, 2\n")); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"no predictor", func(c *Config) { c.PredictorPath = "" }, "predictor_path"},
		{"unknown mode", func(c *Config) { c.Detector.Mode = "grpc" }, "detector.mode"},
		{"unknown policy", func(c *Config) { c.Policy = "largest" }, "policy"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"even feather", func(c *Config) { c.FeatherAmount = 14 }, "feather_amount"},
		{"zero scale", func(c *Config) { c.ScaleFactor = 0 }, "scale_factor"},
		{"zero timeout", func(c *Config) { c.Detector.Timeout = 0 }, "detector.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)

			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLandmarkConfig(t *testing.T) {
	c := Default()
	c.PredictorPath = "/models/shape.dat"
	c.Workers = 4
	c.Detector.Script = "helper.py"

	d := c.LandmarkConfig()
	if d.PredictorPath != "/models/shape.dat" || d.Script != "helper.py" {
		t.Errorf("unexpected detector config: %+v", d)
	}
	if d.Processes != 4 {
		t.Errorf("expected one helper per worker, got %d", d.Processes)
	}
}
