package store

import (
	"errors"
	"testing"
)

func TestLandmarkRepository(t *testing.T) {
	s := newTestStore(t)
	cache := s.Landmarks()

	face := make([]Point, 68)
	for i := range face {
		face[i] = Point{X: float64(i), Y: float64(2 * i)}
	}

	t.Run("miss", func(t *testing.T) {
		if _, err := cache.Get("abc"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("stores faces", func(t *testing.T) {
		if err := cache.Put("abc", [][]Point{face}); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		got, err := cache.Get("abc")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if len(got) != 1 || len(got[0]) != 68 {
			t.Fatalf("expected one 68-point face, got %v", got)
		}
		if got[0][67] != face[67] {
			t.Errorf("expected %v, got %v", face[67], got[0][67])
		}
	})

	t.Run("no-face result is cached", func(t *testing.T) {
		if err := cache.Put("empty", nil); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		got, err := cache.Get("empty")
		if err != nil {
			t.Fatalf("expected a cache hit, got %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil faces, got %v", got)
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		if err := cache.Put("abc", [][]Point{face, face}); err != nil {
			t.Fatalf("failed to put: %v", err)
		}
		got, err := cache.Get("abc")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 faces after replace, got %d", len(got))
		}

		n, err := cache.Count()
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 cached digests, got %d", n)
		}
	})
}
