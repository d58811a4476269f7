package detector

import (
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrNoFace is returned when no landmark set could be produced for an image.
	ErrNoFace = errors.New("no face detected")

	// ErrTooManyFaces is returned under PolicyStrict when more than one face is found.
	ErrTooManyFaces = errors.New("more than one face detected")
)

// Detector defines the interface for face landmark providers.
type Detector interface {
	// Detect analyzes an image and returns the landmarks of every face found,
	// in detector order. Returns an empty slice if no faces are detected.
	Detect(img gocv.Mat) ([]Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Policy decides which face is used when an image contains several.
type Policy string

const (
	// PolicyFirst takes the first detected face.
	PolicyFirst Policy = "first"
	// PolicyStrict rejects images containing more than one face.
	PolicyStrict Policy = "strict"
)

// ParsePolicy converts a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyFirst, "":
		return PolicyFirst, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("unknown face policy %q (use %q or %q)", s, PolicyFirst, PolicyStrict)
}

// Select applies the policy to a detection result.
func (p Policy) Select(faces []Landmarks) (Landmarks, error) {
	if len(faces) == 0 {
		return Landmarks{}, ErrNoFace
	}
	if len(faces) > 1 && p == PolicyStrict {
		return Landmarks{}, fmt.Errorf("%w: found %d", ErrTooManyFaces, len(faces))
	}
	return faces[0], nil
}

// Locate runs the detector on img and applies the policy to the result.
func Locate(d Detector, img gocv.Mat, policy Policy) (Landmarks, error) {
	faces, err := d.Detect(img)
	if err != nil {
		return Landmarks{}, fmt.Errorf("detect landmarks: %w", err)
	}
	return policy.Select(faces)
}

// Mode selects the helper process strategy.
type Mode string

const (
	// ModeService keeps helper processes alive between images.
	ModeService Mode = "service"
	// ModeExec starts one helper process per image with a timeout.
	ModeExec Mode = "exec"
)

// Config holds configuration options for the landmark helper.
type Config struct {
	// PredictorPath is the dlib 68-point shape predictor model file.
	PredictorPath string

	// Script is the helper script path. Empty means search the default locations.
	Script string

	// Python is the interpreter used to run Script. Empty means look for a venv, then python3.
	Python string

	// Upsample is the number of times the detector upsamples the image (default: 1).
	Upsample int

	// Processes is the number of helper processes ServiceDetector may run at once.
	Processes int

	// Timeout bounds the handling of a single image by either helper mode.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		PredictorPath: "shape_predictor_68_face_landmarks.dat",
		Upsample:      1,
		Processes:     1,
		Timeout:       30 * time.Second,
	}
}

// Fingerprint identifies the settings that decide which faces the helper
// finds. Results from helpers with different fingerprints are not interchangeable.
func (c Config) Fingerprint() string {
	return fmt.Sprintf("predictor=%s;upsample=%d;script=%s", c.PredictorPath, c.Upsample, c.Script)
}

// New creates the detector for the given mode.
func New(mode Mode, config Config) (Detector, error) {
	switch mode {
	case ModeService, "":
		return NewServiceDetector(config)
	case ModeExec:
		return NewExecDetector(config)
	}
	return nil, fmt.Errorf("unknown detector mode %q", mode)
}
