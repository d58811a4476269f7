package detector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"gocv.io/x/gocv"
)

// ExecDetector implements Detector by running the helper once per image.
// Each invocation is bounded by Config.Timeout, so a stalled helper fails only
// the image it was given.
type ExecDetector struct {
	config  Config
	python  string
	script  string
	timeout time.Duration
}

// NewExecDetector creates a new ExecDetector.
func NewExecDetector(config Config) (*ExecDetector, error) {
	python, script, err := resolveHelper(config)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	return &ExecDetector{
		config:  config,
		python:  python,
		script:  script,
		timeout: timeout,
	}, nil
}

// Detect runs the helper on img and returns the landmarks of every face found.
func (d *ExecDetector) Detect(img gocv.Mat) ([]Landmarks, error) {
	data, err := encodeFrame(img)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.python, helperArgs(d.script, d.config, "--once")...)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("landmark helper timeout after %s", d.timeout)
	}

	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("landmark helper failed: %w, stderr: %s", err, s)
		}
		return nil, fmt.Errorf("landmark helper failed: %w", err)
	}

	return parseResponse(bytes.TrimSpace(stdout.Bytes()))
}

// Close is a no-op; ExecDetector holds no long-lived resources.
func (d *ExecDetector) Close() error {
	return nil
}
