package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	// RunStatusRunning marks a batch that has started and not yet joined.
	RunStatusRunning RunStatus = "running"
	// RunStatusFinished marks a batch whose workers all completed.
	RunStatusFinished RunStatus = "finished"
	// RunStatusFailed marks a batch that could not start, e.g. no source face.
	RunStatusFailed RunStatus = "failed"
)

// Run represents one batch stored in the database.
type Run struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	InputDir   string     `json:"input_dir"`
	OutputDir  string     `json:"output_dir"`
	Status     RunStatus  `json:"status"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Skipped    int        `json:"skipped"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunRepository provides operations for batch runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run. StartedAt is set when zero.
func (r *RunRepository) Create(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, source, input_dir, output_dir, status, total, succeeded, skipped, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.InputDir, run.OutputDir, string(run.Status),
		run.Total, run.Succeeded, run.Skipped, run.Error, run.StartedAt,
	)
	return err
}

// Finish records the final counters and status of a run.
func (r *RunRepository) Finish(run *Run) error {
	now := time.Now()
	run.FinishedAt = &now

	result, err := r.db.Exec(
		`UPDATE runs SET status = ?, total = ?, succeeded = ?, skipped = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.Status), run.Total, run.Succeeded, run.Skipped, run.Error, now, run.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, source, input_dir, output_dir, status, total, succeeded, skipped, error, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves the most recent runs, newest first. A limit of zero or less
// returns every run.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, source, input_dir, output_dir, status, total, succeeded, skipped, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and its results.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var status string
	var finished sql.NullTime

	err := s.Scan(&run.ID, &run.Source, &run.InputDir, &run.OutputDir, &status,
		&run.Total, &run.Succeeded, &run.Skipped, &run.Error, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
