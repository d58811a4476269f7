package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Point is a stored landmark position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkRepository caches detected faces by image digest.
type LandmarkRepository struct {
	db *sql.DB
}

// Landmarks returns the landmark cache repository for this store.
func (s *Store) Landmarks() *LandmarkRepository {
	return &LandmarkRepository{db: s.db}
}

// Get returns the faces cached for digest, or ErrNotFound.
// An empty, non-nil slice means the image was seen and had no face.
func (r *LandmarkRepository) Get(digest string) ([][]Point, error) {
	var data string
	err := r.db.QueryRow(`SELECT faces FROM landmarks WHERE digest = ?`, digest).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	faces := [][]Point{}
	if err := json.Unmarshal([]byte(data), &faces); err != nil {
		return nil, fmt.Errorf("decode cached landmarks: %w", err)
	}
	return faces, nil
}

// Put stores faces for digest, replacing any previous entry.
func (r *LandmarkRepository) Put(digest string, faces [][]Point) error {
	if faces == nil {
		faces = [][]Point{}
	}
	data, err := json.Marshal(faces)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO landmarks (digest, faces) VALUES (?, ?)
		 ON CONFLICT(digest) DO UPDATE SET faces = excluded.faces, created_at = CURRENT_TIMESTAMP`,
		digest, string(data),
	)
	return err
}

// Count returns the number of cached images.
func (r *LandmarkRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM landmarks`).Scan(&n)
	return n, err
}
