package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/faceswap/internal/imageio"
	"github.com/ayusman/faceswap/internal/store"
	"github.com/ayusman/faceswap/internal/swapper"
)

// InputResult is the outcome of one input file.
type InputResult struct {
	Input    string
	Output   string
	Err      error
	Duration time.Duration
}

// Report summarises a finished batch.
type Report struct {
	RunID    string
	Results  []InputResult
	Duration time.Duration
}

// Succeeded returns the number of inputs that produced an output file.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Skipped returns the inputs that failed, in input order.
func (r *Report) Skipped() []InputResult {
	var skipped []InputResult
	for _, res := range r.Results {
		if res.Err != nil {
			skipped = append(skipped, res)
		}
	}
	return skipped
}

// Run swaps the face of sourcePath onto every image in inputDir and writes
// the results to outputDir under the same file names.
//
// A source without a usable face fails the whole run before inputDir is read.
// A failing input is logged and skipped; it never stops its siblings. Run
// returns only after every started input has finished. Cancelling ctx stops
// new inputs from starting.
func (a *App) Run(ctx context.Context, sourcePath, inputDir, outputDir string) (*Report, error) {
	started := time.Now()
	run := &store.Run{
		ID:        uuid.NewString(),
		Source:    sourcePath,
		InputDir:  inputDir,
		OutputDir: outputDir,
		StartedAt: started,
	}
	a.recordStart(run)

	source, err := a.PrepareSource(sourcePath)
	if err != nil {
		a.recordFailure(run, err)
		return nil, err
	}
	defer source.Close()

	inputs, err := imageio.ListInputs(inputDir)
	if err != nil {
		a.recordFailure(run, err)
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		err = fmt.Errorf("create output dir: %w", err)
		a.recordFailure(run, err)
		return nil, err
	}

	log.Printf("Run %s: %d inputs, %d workers", run.ID, len(inputs), a.config.Workers)
	a.emit(Event{Type: EventRunStarted, RunID: run.ID, Total: len(inputs), Time: time.Now()})

	results := make([]InputResult, 0, len(inputs))
	var mu sync.Mutex
	collect := func(res InputResult) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		a.recordResult(run.ID, res)
	}

	sem := make(chan struct{}, a.config.Workers)
	var wg sync.WaitGroup

	for _, name := range inputs {
		in := filepath.Join(inputDir, name)
		out := filepath.Join(outputDir, name)

		if err := ctx.Err(); err != nil {
			collect(InputResult{Input: in, Err: err})
			continue
		}

		select {
		case <-ctx.Done():
			collect(InputResult{Input: in, Err: ctx.Err()})
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			collect(a.processInput(source, in, out))
		}()
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Input < results[j].Input })
	report := &Report{RunID: run.ID, Results: results, Duration: time.Since(started)}

	run.Status = store.RunStatusFinished
	run.Total = len(results)
	run.Succeeded = report.Succeeded()
	run.Skipped = run.Total - run.Succeeded
	a.recordFinish(run)

	log.Printf("Run %s finished: %d succeeded, %d skipped in %s",
		run.ID, run.Succeeded, run.Skipped, report.Duration)
	a.emit(Event{
		Type:      EventRunFinished,
		RunID:     run.ID,
		Total:     run.Total,
		Succeeded: run.Succeeded,
		Skipped:   run.Skipped,
		Duration:  report.Duration,
		Time:      time.Now(),
	})

	return report, nil
}

// processInput runs the per-input pipeline and logs its outcome.
func (a *App) processInput(source *swapper.Face, in, out string) InputResult {
	start := time.Now()
	res := InputResult{Input: in}

	res.Err = a.swapFile(source, in, out)
	res.Duration = time.Since(start)
	if res.Err != nil {
		log.Printf("Skipping %s: %v", in, res.Err)
		return res
	}

	res.Output = out
	log.Printf("Input file: %s", in)
	log.Printf("Output file: %s", out)
	log.Printf("Processing time: %s", res.Duration)
	return res
}

func (a *App) swapFile(source *swapper.Face, in, out string) error {
	img, lm, err := a.load(in)
	if err != nil {
		return err
	}
	defer img.Close()

	result, err := swapper.Swap(source, img, lm, swapper.Options{
		Feather:  a.config.Feather,
		Annotate: a.config.Debug,
	})
	if err != nil {
		return err
	}
	defer result.Close()

	return imageio.Write(out, result)
}

func (a *App) recordStart(run *store.Run) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Runs().Create(run); err != nil {
		log.Printf("Failed to record run %s: %v", run.ID, err)
	}
}

func (a *App) recordFailure(run *store.Run, err error) {
	log.Printf("Run %s failed: %v", run.ID, err)

	run.Status = store.RunStatusFailed
	run.Error = err.Error()
	a.recordFinish(run)
	a.emit(Event{Type: EventRunFinished, RunID: run.ID, Reason: run.Error, Time: time.Now()})
}

func (a *App) recordFinish(run *store.Run) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Runs().Finish(run); err != nil {
		log.Printf("Failed to record end of run %s: %v", run.ID, err)
	}
}

// recordResult stores and announces one input outcome.
func (a *App) recordResult(runID string, res InputResult) {
	e := Event{
		Type:     EventInputDone,
		RunID:    runID,
		Input:    res.Input,
		Output:   res.Output,
		Duration: res.Duration,
		Time:     time.Now(),
	}
	row := &store.Result{
		RunID:    runID,
		Input:    res.Input,
		Output:   res.Output,
		Status:   store.ResultDone,
		Duration: res.Duration,
	}
	if res.Err != nil {
		e.Type = EventInputSkipped
		e.Reason = res.Err.Error()
		row.Status = store.ResultSkipped
		row.Reason = e.Reason
	}

	if a.config.Store != nil {
		if err := a.config.Store.Results().Create(row); err != nil {
			log.Printf("Failed to record result for %s: %v", res.Input, err)
		}
	}
	a.emit(e)
}
