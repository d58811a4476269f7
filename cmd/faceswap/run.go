package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/faceswap/internal/app"
	"github.com/ayusman/faceswap/internal/config"
	"github.com/ayusman/faceswap/internal/detector"
	"github.com/ayusman/faceswap/internal/server"
	"github.com/ayusman/faceswap/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run SOURCE INPUT_DIR OUTPUT_DIR",
	Short: "Swap the face of SOURCE onto every image in INPUT_DIR",
	Long: `Swap the face of SOURCE onto every image in INPUT_DIR and write the results
to OUTPUT_DIR under the same file names.

Images without a usable face are logged and skipped. The command fails only
when the batch cannot run at all, e.g. when SOURCE has no face.

Examples:
  # Swap with one worker per CPU
  faceswap run me.jpg photos/ swapped/

  # Draw landmark numbers on every output
  faceswap run me.jpg photos/ swapped/ --debug

  # Record the run and stream progress on :8080
  faceswap run me.jpg photos/ swapped/ --db runs.db --listen :8080`,
	Args: cobra.ExactArgs(3),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("debug", false, "Draw landmark numbers on every output")
	runCmd.Flags().Int("workers", 0, "Number of parallel workers (0 = one per CPU)")
	runCmd.Flags().String("policy", string(detector.PolicyFirst), "Face choice when an image has several: first or strict")
	runCmd.Flags().String("predictor", "", "Path to shape_predictor_68_face_landmarks.dat")
	runCmd.Flags().String("detector", string(detector.ModeService), "Landmark helper mode: service or exec")
	runCmd.Flags().Float64("scale", 1, "Resize images by this factor before detection")
	runCmd.Flags().String("db", "", "SQLite file for run history and the landmark cache")
	runCmd.Flags().String("listen", "", "Serve the status API on this address during the run")
}

func runSwap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sourcePath, inputDir, outputDir := args[0], args[1], args[2]

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	// The app owns the detector and closes it.
	landmarks := cfg.LandmarkConfig()
	det, err := detector.New(detector.Mode(cfg.Detector.Mode), landmarks)
	if err != nil {
		return fmt.Errorf("failed to start landmark detector: %w", err)
	}

	policy, _ := detector.ParsePolicy(cfg.Policy) // checked by Validate
	a := app.New(app.Config{
		Detector:    det,
		Store:       st,
		DetectorID:  landmarks.Fingerprint(),
		Policy:      policy,
		Workers:     cfg.Workers,
		Feather:     cfg.FeatherAmount,
		ScaleFactor: cfg.ScaleFactor,
		Debug:       cfg.Debug,
	})
	defer a.Close()

	a.AddObserver(newProgress())

	if cfg.Listen != "" {
		hub := server.NewHub()
		a.AddObserver(hub)
		srv := server.New(server.Config{Store: st, Hub: hub})
		go func() {
			fmt.Printf("Serving status API on %s\n", cfg.Listen)
			if err := srv.ListenAndServe(cfg.Listen); err != nil {
				log.Printf("Status API stopped: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.Run(ctx, sourcePath, inputDir, outputDir)
	if err != nil {
		if errors.Is(err, app.ErrSourceFace) {
			return fmt.Errorf("%s: %w", sourcePath, err)
		}
		return err
	}

	fmt.Printf("\nRun %s: %d of %d images swapped in %s\n",
		report.RunID, report.Succeeded(), len(report.Results), report.Duration.Round(time.Millisecond))
	for _, res := range report.Skipped() {
		fmt.Printf("  skipped %s: %v\n", res.Input, res.Err)
	}
	return nil
}

// openStore opens the run history database when one is configured.
func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

// progress renders batch events as a terminal progress bar.
type progress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgress() *progress {
	return &progress{}
}

// OnEvent implements app.Observer.
func (p *progress) OnEvent(e app.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Type {
	case app.EventRunStarted:
		p.bar = progressbar.NewOptions(e.Total,
			progressbar.OptionSetDescription("Swapping faces"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	case app.EventInputDone, app.EventInputSkipped:
		if p.bar != nil {
			p.bar.Add(1)
		}
	case app.EventRunFinished:
		if p.bar != nil {
			p.bar.Finish()
		}
	}
}
