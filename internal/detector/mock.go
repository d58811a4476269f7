package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results and is safe for concurrent use.
type MockDetector struct {
	mu     sync.Mutex
	faces  []Landmarks
	err    error
	fn     func(img gocv.Mat) ([]Landmarks, error)
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDetectFunc installs a function that decides the result per image.
// It takes precedence over SetFaces and SetError.
func (m *MockDetector) SetDetectFunc(fn func(img gocv.Mat) ([]Landmarks, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(img gocv.Mat) ([]Landmarks, error) {
	m.mu.Lock()
	m.calls++
	fn, faces, err := m.fn, m.faces, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(img)
	}
	if err != nil {
		return nil, err
	}
	return faces, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FrontalFaceLandmarks returns a synthetic upright face centred in a 640x480 frame.
func FrontalFaceLandmarks() Landmarks {
	return FaceLandmarksAt(320, 240, 200)
}

// FaceLandmarksAt returns a synthetic upright face centred at (cx, cy) whose
// jaw spans roughly size pixels. The layout follows the 68-point scheme.
func FaceLandmarksAt(cx, cy, size float64) Landmarks {
	var lm Landmarks
	at := func(i int, x, y float64) {
		lm[i] = Point{X: cx + x*size, Y: cy + y*size}
	}

	// Jaw: from the subject's right ear, around the chin, to the left ear.
	for t := 0; t <= 16; t++ {
		a := math.Pi * float64(t) / 16
		at(JawStart+t, -0.45*math.Cos(a), -0.1+0.65*math.Sin(a))
	}

	// Brows.
	for k := 0; k < 5; k++ {
		arch := 0.05 * math.Sin(math.Pi*float64(k)/4)
		at(RightBrowStart+k, -0.38+0.075*float64(k), -0.28-arch)
		at(LeftBrowStart+k, 0.08+0.075*float64(k), -0.28-arch)
	}

	// Nose bridge then nostril base.
	for k := 0; k < 4; k++ {
		at(NoseStart+k, 0, -0.2+0.09*float64(k))
	}
	for k := 0; k < 5; k++ {
		at(31+k, -0.1+0.05*float64(k), 0.15)
	}

	// Eyes.
	eye := [6][2]float64{{-0.08, 0}, {-0.04, -0.035}, {0.04, -0.035}, {0.08, 0}, {0.04, 0.035}, {-0.04, 0.035}}
	for k, o := range eye {
		at(RightEyeStart+k, -0.2+o[0], -0.15+o[1])
		at(LeftEyeStart+k, 0.2+o[0], -0.15+o[1])
	}

	// Outer lip, then inner lip.
	for k := 0; k < 12; k++ {
		a := math.Pi + 2*math.Pi*float64(k)/12
		at(MouthStart+k, 0.18*math.Cos(a), 0.32+0.07*math.Sin(a))
	}
	for k := 0; k < 8; k++ {
		a := math.Pi + 2*math.Pi*float64(k)/8
		at(60+k, 0.1*math.Cos(a), 0.32+0.03*math.Sin(a))
	}

	return lm
}
