package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/faceswap/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history API",
	Long: `Serve the recorded run history over HTTP.

Endpoints:
  GET    /api/health
  GET    /api/runs?limit=N
  GET    /api/runs/{id}
  GET    /api/runs/{id}/results
  DELETE /api/runs/{id}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("db", "", "SQLite file written by faceswap run --db")
	serveCmd.Flags().String("listen", ":8080", "Address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		return errors.New("a database is required: set --db or FACESWAP_DB")
	}
	if cfg.Listen == "" {
		cfg.Listen = mustGetString(cmd, "listen")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{StaticDir: webDir, Store: st})

	fmt.Printf("Starting server on %s\n", cfg.Listen)
	return srv.ListenAndServe(cfg.Listen)
}

// findWebDir searches for a web directory in the working directory and in
// ~/.faceswap/web. Returns the first existing directory or empty string if
// none found.
func findWebDir() string {
	if info, err := os.Stat("web"); err == nil && info.IsDir() {
		if abs, err := filepath.Abs("web"); err == nil {
			return abs
		}
		return "web"
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".faceswap", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
