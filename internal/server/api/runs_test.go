package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/faceswap/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createRun(t *testing.T, s *store.Store, id string, started time.Time) *store.Run {
	t.Helper()

	run := &store.Run{ID: id, Source: "source.png", InputDir: "in", OutputDir: "out", StartedAt: started}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

func TestRunHandler_List(t *testing.T) {
	t.Run("empty store returns empty list", func(t *testing.T) {
		handler := NewRunHandler(setupTestStore(t))

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var resp listRunsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Runs == nil || len(resp.Runs) != 0 {
			t.Errorf("expected empty non-nil list, got %v", resp.Runs)
		}
	})

	t.Run("newest first with limit", func(t *testing.T) {
		s := setupTestStore(t)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		createRun(t, s, "old", base)
		createRun(t, s, "mid", base.Add(time.Hour))
		createRun(t, s, "new", base.Add(2*time.Hour))
		handler := NewRunHandler(s)

		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=2", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var resp listRunsResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if len(resp.Runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(resp.Runs))
		}
		if resp.Runs[0].ID != "new" || resp.Runs[1].ID != "mid" {
			t.Errorf("expected [new mid], got [%s %s]", resp.Runs[0].ID, resp.Runs[1].ID)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		handler := NewRunHandler(setupTestStore(t))

		for _, q := range []string{"abc", "0", "-3"} {
			req := httptest.NewRequest(http.MethodGet, "/api/runs?limit="+q, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
			}
		}
	})

	t.Run("POST not allowed", func(t *testing.T) {
		handler := NewRunHandler(setupTestStore(t))

		req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestRunHandler_Get(t *testing.T) {
	s := setupTestStore(t)
	createRun(t, s, "run-1", time.Now())
	handler := NewRunHandler(s)

	t.Run("existing run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var run store.Run
		if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if run.ID != "run-1" || run.Status != store.RunStatusRunning {
			t.Errorf("unexpected run %+v", run)
		}
	})

	t.Run("missing run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}

		var resp errorResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Error == "" {
			t.Error("expected error message in body")
		}
	})

	t.Run("unknown sub-resource", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1/frames", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestRunHandler_Results(t *testing.T) {
	s := setupTestStore(t)
	createRun(t, s, "run-1", time.Now())
	for _, in := range []string{"in/b.png", "in/a.png"} {
		if err := s.Results().Create(&store.Result{RunID: "run-1", Input: in, Status: store.ResultDone}); err != nil {
			t.Fatalf("failed to create result: %v", err)
		}
	}
	handler := NewRunHandler(s)

	t.Run("lists results by input", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1/results", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp listResultsResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.RunID != "run-1" || len(resp.Results) != 2 {
			t.Fatalf("unexpected response %+v", resp)
		}
		if resp.Results[0].Input != "in/a.png" {
			t.Errorf("expected results ordered by input, got %s first", resp.Results[0].Input)
		}
	})

	t.Run("missing run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/nope/results", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestRunHandler_Delete(t *testing.T) {
	s := setupTestStore(t)
	createRun(t, s, "run-1", time.Now())
	handler := NewRunHandler(s)

	req := httptest.NewRequest(http.MethodDelete, "/api/runs/run-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if _, err := s.Runs().GetByID("run-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/run-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
