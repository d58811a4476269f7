// Package app runs batch face swaps: one prepared source face applied to every
// image of an input directory by a bounded pool of workers.
package app

import (
	"errors"
	"log"
	"runtime"
	"sync"

	"github.com/ayusman/faceswap/internal/detector"
	"github.com/ayusman/faceswap/internal/store"
	"github.com/ayusman/faceswap/internal/swapper"
)

// ErrSourceFace is returned when the source image has no usable face.
// The batch does not start.
var ErrSourceFace = errors.New("source face not usable")

// Config holds configuration options for the batch runner.
type Config struct {
	// Detector finds landmarks. It must be safe for concurrent use.
	Detector detector.Detector
	// Store records runs and caches landmarks. Optional.
	Store *store.Store
	// DetectorID is part of every landmark cache key, so a reconfigured
	// detector never reuses another configuration's results.
	DetectorID string
	// Policy picks one face per image.
	Policy detector.Policy
	// Workers bounds concurrent inputs. Defaults to runtime.NumCPU().
	Workers int
	// Feather is the mask feather kernel size. Defaults to swapper.FeatherAmount.
	Feather int
	// ScaleFactor resizes every image before detection. Defaults to 1.
	ScaleFactor float64
	// Debug draws landmark numbers on every output.
	Debug bool
}

// App is the batch runner.
type App struct {
	config Config

	mu        sync.RWMutex
	observers []Observer
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Feather <= 0 {
		config.Feather = swapper.FeatherAmount
	}
	if config.ScaleFactor <= 0 {
		config.ScaleFactor = 1
	}
	if config.Policy == "" {
		config.Policy = detector.PolicyFirst
	}
	if config.Detector == nil {
		log.Println("No landmark detector configured, using mock detector")
		config.Detector = detector.NewMockDetector()
	}

	return &App{config: config}
}

// Config returns the effective configuration.
func (a *App) Config() Config {
	return a.config
}

// AddObserver registers o to receive batch events.
func (a *App) AddObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// emit delivers e to every observer. It is called from worker goroutines.
func (a *App) emit(e Event) {
	a.mu.RLock()
	observers := make([]Observer, len(a.observers))
	copy(observers, a.observers)
	a.mu.RUnlock()

	for _, o := range observers {
		o.OnEvent(e)
	}
}

// Close releases the detector.
func (a *App) Close() error {
	return a.config.Detector.Close()
}
