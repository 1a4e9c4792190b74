package experiment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/sensitivity.report/internal/db"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
)

// ErrNotFound is returned when an experiment id is not in the store.
var ErrNotFound = errors.New("experiment not found")

// Record is a persisted experiment.
type Record struct {
	ExperimentID string                  `json:"experiment_id"`
	Name         string                  `json:"name"`
	Method       sensitivity.Method      `json:"method"`
	SimulationID string                  `json:"simulation_id"`
	Status       Status                  `json:"status"`
	Parameters   []sensitivity.Parameter `json:"parameters"`
	ResultsJSON  json.RawMessage         `json:"results,omitempty"`
	CreatedAt    int64                   `json:"created_at"`
	CompletedAt  int64                   `json:"completed_at,omitempty"`
}

// Point is one scheduled design point and its execution outcome.
type Point struct {
	Seq     int                   `json:"seq"`
	Inputs  sensitivity.ValuesMap `json:"input"`
	Outputs sensitivity.ValuesMap `json:"output"`
	Status  PointStatus           `json:"status"`
	Error   string                `json:"error,omitempty"`
}

// PointCounts tallies an experiment's points by status.
type PointCounts struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

// Outstanding is the number of points not yet finished.
func (c PointCounts) Outstanding() int { return c.Pending + c.Running }

// Total is the number of scheduled points.
func (c PointCounts) Total() int { return c.Pending + c.Running + c.Done + c.Failed }

// Store provides persistence for experiments and their points.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewStore creates a new Store over an already migrated database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database.DB, clock: timeutil.RealClock{}}
}

// Create persists a new experiment. If ExperimentID is empty, a UUID is generated.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	if rec.ExperimentID == "" {
		rec.ExperimentID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.clock.Now().UnixNano()
	}
	if rec.Status == "" {
		rec.Status = StatusCreated
	}
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}

	return db.RetryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO experiments (
				experiment_id, name, method, simulation_id, status,
				parameters_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ExperimentID, rec.Name, string(rec.Method), rec.SimulationID, string(rec.Status),
			string(params), rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert experiment: %w", err)
		}
		return nil
	})
}

const experimentColumns = `experiment_id, name, method, simulation_id, status,
	parameters_json, results_json, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r           Record
		method      string
		status      string
		params      string
		results     sql.NullString
		completedAt sql.NullInt64
	)
	err := row.Scan(&r.ExperimentID, &r.Name, &method, &r.SimulationID, &status,
		&params, &results, &r.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	r.Method = sensitivity.Method(method)
	r.Status = Status(status)
	if err := json.Unmarshal([]byte(params), &r.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters of %s: %w", r.ExperimentID, err)
	}
	if results.Valid {
		r.ResultsJSON = json.RawMessage(results.String)
	}
	r.CompletedAt = completedAt.Int64
	return &r, nil
}

// Get returns a single experiment by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+experimentColumns+` FROM experiments WHERE experiment_id = ?`, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("scan experiment: %w", err)
	}
	return r, nil
}

// List returns all experiments, newest first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+experimentColumns+` FROM experiments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query experiments: %w", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// valueKey is the identity of a point within an experiment. Vectors that
// encode to the same ordered JSON are the same point.
func valueKey(m sensitivity.ValuesMap) (string, []byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", nil, err
	}
	return string(data), data, nil
}

// InsertPoints appends points to the experiment in order and returns how
// many were new. Points already present are skipped.
func (s *Store) InsertPoints(ctx context.Context, id string, points []sensitivity.ValuesMap) (int, error) {
	var inserted int
	err := db.RetryOnBusy(func() error {
		inserted = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		var status string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM experiments WHERE experiment_id = ?`, id).Scan(&status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return fmt.Errorf("load experiment: %w", err)
		}
		if Status(status) == StatusComplete {
			return fmt.Errorf("experiment %s is complete", id)
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM experiment_points WHERE experiment_id = ?`, id,
		).Scan(&next); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		now := s.clock.Now().UnixNano()
		for _, p := range points {
			key, inputs, err := valueKey(p)
			if err != nil {
				return fmt.Errorf("encode point: %w", err)
			}
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO experiment_points (
					experiment_id, seq, value_key, inputs_json, status, created_at
				) VALUES (?, ?, ?, ?, ?, ?)`,
				id, next, key, string(inputs), string(PointPending), now,
			)
			if err != nil {
				return fmt.Errorf("insert point: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
				next++
			}
		}

		if inserted > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE experiments SET status = ? WHERE experiment_id = ?`, string(StatusRunning), id,
			); err != nil {
				return fmt.Errorf("update experiment status: %w", err)
			}
		}
		return tx.Commit()
	})
	return inserted, err
}

// ClaimPending marks the oldest pending point as running and returns it.
// ok is false when nothing is pending.
func (s *Store) ClaimPending(ctx context.Context, id string) (p *Point, ok bool, err error) {
	err = db.RetryOnBusy(func() error {
		var inputs string
		var seq int
		scanErr := s.db.QueryRowContext(ctx, `
			UPDATE experiment_points SET status = ?
			WHERE experiment_id = ? AND status = ? AND seq = (
				SELECT seq FROM experiment_points
				WHERE experiment_id = ? AND status = ?
				ORDER BY seq LIMIT 1
			)
			RETURNING seq, inputs_json`,
			string(PointRunning), id, string(PointPending), id, string(PointPending),
		).Scan(&seq, &inputs)
		if errors.Is(scanErr, sql.ErrNoRows) {
			p, ok = nil, false
			return nil
		}
		if scanErr != nil {
			return fmt.Errorf("claim point: %w", scanErr)
		}
		p = &Point{Seq: seq, Status: PointRunning}
		if err := json.Unmarshal([]byte(inputs), &p.Inputs); err != nil {
			return fmt.Errorf("decode point %d inputs: %w", seq, err)
		}
		ok = true
		return nil
	})
	return p, ok, err
}

// FinishPoint stores the outputs of a running point.
func (s *Store) FinishPoint(ctx context.Context, id string, seq int, outputs sensitivity.ValuesMap) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	return s.finish(ctx, id, seq, PointDone, string(data), nil)
}

// FailPoint records the error of a running point.
func (s *Store) FailPoint(ctx context.Context, id string, seq int, msg string) error {
	return s.finish(ctx, id, seq, PointFailed, nil, msg)
}

func (s *Store) finish(ctx context.Context, id string, seq int, status PointStatus, outputs, msg interface{}) error {
	return db.RetryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE experiment_points
			SET status = ?, outputs_json = ?, error = ?, finished_at = ?
			WHERE experiment_id = ? AND seq = ?`,
			string(status), outputs, msg, s.clock.Now().UnixNano(), id, seq,
		)
		if err != nil {
			return fmt.Errorf("update point %d: %w", seq, err)
		}
		return nil
	})
}

// ReleaseRunning returns points left running by an earlier process to
// pending, so a new pool picks them up.
func (s *Store) ReleaseRunning(ctx context.Context, id string) (int, error) {
	var n int64
	err := db.RetryOnBusy(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE experiment_points SET status = ? WHERE experiment_id = ? AND status = ?`,
			string(PointPending), id, string(PointRunning),
		)
		if err != nil {
			return fmt.Errorf("release running points: %w", err)
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return int(n), err
}

// Counts tallies the experiment's points by status.
func (s *Store) Counts(ctx context.Context, id string) (PointCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM experiment_points WHERE experiment_id = ? GROUP BY status`, id)
	if err != nil {
		return PointCounts{}, fmt.Errorf("count points: %w", err)
	}
	defer rows.Close()

	var c PointCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return PointCounts{}, fmt.Errorf("scan count: %w", err)
		}
		switch PointStatus(status) {
		case PointPending:
			c.Pending = n
		case PointRunning:
			c.Running = n
		case PointDone:
			c.Done = n
		case PointFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}

// Points returns every point of the experiment in schedule order.
func (s *Store) Points(ctx context.Context, id string) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, inputs_json, outputs_json, status, error
		FROM experiment_points
		WHERE experiment_id = ?
		ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p       Point
			inputs  string
			outputs sql.NullString
			status  string
			msg     sql.NullString
		)
		if err := rows.Scan(&p.Seq, &inputs, &outputs, &status, &msg); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Status = PointStatus(status)
		p.Error = msg.String
		if err := json.Unmarshal([]byte(inputs), &p.Inputs); err != nil {
			return nil, fmt.Errorf("decode point %d inputs: %w", p.Seq, err)
		}
		if outputs.Valid {
			if err := json.Unmarshal([]byte(outputs.String), &p.Outputs); err != nil {
				return nil, fmt.Errorf("decode point %d outputs: %w", p.Seq, err)
			}
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Results returns the input/output records of successfully executed
// points, in schedule order.
func (s *Store) Results(ctx context.Context, id string) ([]sensitivity.OutputRecord, error) {
	points, err := s.Points(ctx, id)
	if err != nil {
		return nil, err
	}
	records := make([]sensitivity.OutputRecord, 0, len(points))
	for _, p := range points {
		if p.Status != PointDone {
			continue
		}
		records = append(records, sensitivity.OutputRecord{Inputs: p.Inputs, Outputs: p.Outputs})
	}
	return records, nil
}

// Complete stores the analysis result and marks the experiment complete.
func (s *Store) Complete(ctx context.Context, id string, results json.RawMessage) error {
	return db.RetryOnBusy(func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE experiments SET status = ?, results_json = ?, completed_at = ?
			WHERE experiment_id = ?`,
			string(StatusComplete), string(results), s.clock.Now().UnixNano(), id,
		)
		if err != nil {
			return fmt.Errorf("complete experiment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}
