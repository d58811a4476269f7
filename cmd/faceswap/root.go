package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ayusman/faceswap/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "faceswap",
	Short: "Swap a source face onto a directory of photos",
	Long: `Faceswap finds 68 facial landmarks in a source photo and in every photo of
an input directory, aligns the source face to each target face, matches its
colours and blends it in. Results are written to an output directory under the
input file names.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the config file and environment, then applies any flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("predictor") {
		cfg.PredictorPath = mustGetString(cmd, "predictor")
	}
	if flags.Changed("detector") {
		cfg.Detector.Mode = mustGetString(cmd, "detector")
	}
	if flags.Changed("policy") {
		cfg.Policy = mustGetString(cmd, "policy")
	}
	if flags.Changed("workers") {
		cfg.Workers = mustGetInt(cmd, "workers")
	}
	if flags.Changed("scale") {
		cfg.ScaleFactor = mustGetFloat64(cmd, "scale")
	}
	if flags.Changed("debug") {
		cfg.Debug = mustGetBool(cmd, "debug")
	}
	if flags.Changed("db") {
		cfg.DBPath = mustGetString(cmd, "db")
	}
	if flags.Changed("listen") {
		cfg.Listen = mustGetString(cmd, "listen")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
