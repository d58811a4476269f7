package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/faceswap/internal/app"
	"github.com/ayusman/faceswap/internal/detector"
	"github.com/ayusman/faceswap/internal/server"
	"github.com/ayusman/faceswap/internal/store"
	"github.com/ayusman/faceswap/testdata"
)

var (
	targetLandmarks = detector.FaceLandmarksAt(330, 250, 180)
	noFaceColour    = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// faceDetector recognises the synthetic fixtures by their corner colour.
func faceDetector() *detector.MockDetector {
	d := detector.NewMockDetector()
	warm, cool := testdata.WarmFace.Background, testdata.CoolFace.Background
	d.SetDetectFunc(func(img gocv.Mat) ([]detector.Landmarks, error) {
		bg := img.GetVecbAt(0, 0)
		switch {
		case bg[0] == warm.B && bg[1] == warm.G && bg[2] == warm.R:
			return []detector.Landmarks{detector.FrontalFaceLandmarks()}, nil
		case bg[0] == cool.B && bg[1] == cool.G && bg[2] == cool.R:
			return []detector.Landmarks{targetLandmarks}, nil
		}
		return nil, nil
	})
	return d
}

// captureLog redirects the standard logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestE2E_BatchSkipsFacelessInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	source := filepath.Join(tmpDir, "source.png")
	inputDir := filepath.Join(tmpDir, "in")
	outputDir := filepath.Join(tmpDir, "out")

	if err := os.Mkdir(inputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := testdata.WriteFaceImage(source, 480, 640, detector.FrontalFaceLandmarks(), testdata.WarmFace); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"alice.png", "bob.png"} {
		if err := testdata.WriteFaceImage(filepath.Join(inputDir, name), 480, 640, targetLandmarks, testdata.CoolFace); err != nil {
			t.Fatal(err)
		}
	}
	if err := testdata.WriteBlankImage(filepath.Join(inputDir, "landscape.png"), 480, 640, noFaceColour); err != nil {
		t.Fatal(err)
	}

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	hub := server.NewHub()
	ts := httptest.NewServer(server.New(server.Config{Store: s, Hub: hub}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	application := app.New(app.Config{
		Detector: faceDetector(),
		Store:    s,
		Workers:  2,
	})
	defer application.Close()
	application.AddObserver(hub)

	logs := captureLog(t)

	report, err := application.Run(context.Background(), source, inputDir, outputDir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	t.Run("writes one output per valid input", func(t *testing.T) {
		entries, err := os.ReadDir(outputDir)
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)

		if len(names) != 2 || names[0] != "alice.png" || names[1] != "bob.png" {
			t.Errorf("outputs = %v, want [alice.png bob.png]", names)
		}
	})

	t.Run("logs one skipped input", func(t *testing.T) {
		if n := strings.Count(logs.String(), "Skipping "); n != 1 {
			t.Errorf("found %d skip messages, want 1:\n%s", n, logs.String())
		}
		if !strings.Contains(logs.String(), "landscape.png") {
			t.Error("skip message should name landscape.png")
		}

		skipped := report.Skipped()
		if len(skipped) != 1 || !errors.Is(skipped[0].Err, detector.ErrNoFace) {
			t.Errorf("skipped = %+v, want landscape.png with ErrNoFace", skipped)
		}
	})

	t.Run("run history is served", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/runs/" + report.RunID)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var run store.Run
		if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if run.Status != store.RunStatusFinished || run.Succeeded != 2 || run.Skipped != 1 {
			t.Errorf("run = %+v, want finished with 2 succeeded and 1 skipped", run)
		}
	})

	t.Run("events are streamed", func(t *testing.T) {
		counts := map[app.EventType]int{}
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for counts[app.EventRunFinished] == 0 {
			var e app.Event
			if err := conn.ReadJSON(&e); err != nil {
				t.Fatalf("ReadJSON() error = %v (got %v)", err, counts)
			}
			counts[e.Type]++
		}

		if counts[app.EventRunStarted] != 1 || counts[app.EventInputDone] != 2 || counts[app.EventInputSkipped] != 1 {
			t.Errorf("event counts = %v", counts)
		}
	})
}

func TestE2E_SourceWithoutFaceAborts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	source := filepath.Join(tmpDir, "source.png")
	outputDir := filepath.Join(tmpDir, "out")

	if err := testdata.WriteBlankImage(source, 240, 320, noFaceColour); err != nil {
		t.Fatal(err)
	}

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	det := faceDetector()
	application := app.New(app.Config{Detector: det, Store: s})
	defer application.Close()

	// The input directory does not exist: the run must fail on the source
	// before it looks there.
	_, err = application.Run(context.Background(), source, filepath.Join(tmpDir, "missing"), outputDir)
	if !errors.Is(err, app.ErrSourceFace) {
		t.Fatalf("Run() error = %v, want ErrSourceFace", err)
	}
	if !errors.Is(err, detector.ErrNoFace) {
		t.Errorf("Run() error = %v, want wrapped ErrNoFace", err)
	}

	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Error("output directory should not be created")
	}
	if det.Calls() != 1 {
		t.Errorf("detector called %d times, want 1", det.Calls())
	}

	runs, err := s.Runs().List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != store.RunStatusFailed || runs[0].Error == "" {
		t.Errorf("runs = %+v, want one failed run with an error", runs)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
