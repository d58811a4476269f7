package store

import (
	"database/sql"
	"time"
)

// ResultStatus is the outcome of one input file.
type ResultStatus string

const (
	// ResultDone means an output image was written.
	ResultDone ResultStatus = "done"
	// ResultSkipped means the input failed and no output was written.
	ResultSkipped ResultStatus = "skipped"
)

// Result represents the outcome of one input file in a run.
type Result struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	Input     string        `json:"input"`
	Output    string        `json:"output,omitempty"`
	Status    ResultStatus  `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// ResultRepository provides operations for per-input results.
type ResultRepository struct {
	db *sql.DB
}

// Results returns the result repository for this store.
func (s *Store) Results() *ResultRepository {
	return &ResultRepository{db: s.db}
}

// Create inserts a result and sets its ID.
func (r *ResultRepository) Create(res *Result) error {
	res.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO results (run_id, input, output, status, reason, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Input, res.Output, string(res.Status), res.Reason,
		res.Duration.Milliseconds(), res.CreatedAt,
	)
	if err != nil {
		return err
	}

	res.ID, err = result.LastInsertId()
	return err
}

// ListByRun retrieves the results of a run in input order.
func (r *ResultRepository) ListByRun(runID string) ([]*Result, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, input, output, status, reason, duration_ms, created_at
		 FROM results WHERE run_id = ? ORDER BY input, id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		res := &Result{}
		var status string
		var ms int64
		if err := rows.Scan(&res.ID, &res.RunID, &res.Input, &res.Output, &status,
			&res.Reason, &ms, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.Status = ResultStatus(status)
		res.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
