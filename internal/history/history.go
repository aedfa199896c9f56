// Package history keeps solve outcomes in a SQLite database so runs can be
// compared after the fact.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/edp1096/toy-transport/pkg/solver"
)

var ErrNoRun = errors.New("history: run not found")

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps in-memory databases alive and serialises writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		strategy TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		step INTEGER NOT NULL,
		solved INTEGER NOT NULL,
		converged INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS group_outcomes (
		run_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		grp INTEGER NOT NULL,
		converged INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS inner_iterations (
		run_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		grp INTEGER NOT NULL,
		iteration INTEGER NOT NULL,
		residual REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_inner_run_group ON inner_iterations(run_id, grp);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunSummary is one row of the runs table with its final outcome.
type RunSummary struct {
	ID        int64
	Title     string
	Strategy  string
	StartedAt time.Time
	Steps     int
	Converged bool
}

// Seq numbers the grid steps of a run across orchestrator solves; a
// transient run restarts Step at zero every time step.
type StepRecord struct {
	Seq       int
	Step      int
	Solved    bool
	Converged bool
}

// InnerRecord belongs to the grid step with the same Seq.
type InnerRecord struct {
	Seq       int
	Iteration int
	Residual  float64
}

// Runs lists all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.title, r.strategy, r.started_at,
			COUNT(st.step),
			COALESCE(MIN(CASE WHEN st.solved = 1 THEN st.converged ELSE 1 END), 0)
		FROM runs r
		LEFT JOIN steps st ON st.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			started   string
			converged int
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Strategy, &started, &r.Steps, &converged); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("failed to parse start time of run %d: %w", r.ID, err)
		}
		r.Converged = r.Steps > 0 && converged == 1
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) Steps(ctx context.Context, runID int64) ([]StepRecord, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, step, solved, converged FROM steps WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		if err := rows.Scan(&rec.Seq, &rec.Step, &rec.Solved, &rec.Converged); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}

// InnerIterations returns the residual history of one group in solve order.
func (s *Store) InnerIterations(ctx context.Context, runID int64, group int) ([]InnerRecord, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, iteration, residual FROM inner_iterations
		WHERE run_id = ? AND grp = ?
		ORDER BY rowid
	`, runID, group)
	if err != nil {
		return nil, fmt.Errorf("failed to query inner iterations: %w", err)
	}
	defer rows.Close()

	var recs []InnerRecord
	for rows.Next() {
		var rec InnerRecord
		if err := rows.Scan(&rec.Seq, &rec.Iteration, &rec.Residual); err != nil {
			return nil, fmt.Errorf("failed to scan inner iteration: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) checkRun(ctx context.Context, runID int64) error {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs WHERE id = ?`, runID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrNoRun, runID)
	}
	if err != nil {
		return fmt.Errorf("failed to query run: %w", err)
	}
	return nil
}

// BeginRun records a new run and returns a reporter writing into it.
func (s *Store) BeginRun(ctx context.Context, title string, strategy solver.Strategy) (*Run, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (title, strategy, started_at) VALUES (?, ?, ?)
	`, title, strategy.String(), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read run id: %w", err)
	}
	return &Run{store: s, ctx: ctx, id: id}, nil
}

// Run records the notifications of one orchestrator solve. Write failures
// don't interrupt the solve; the first one is kept for Err.
type Run struct {
	store *Store
	ctx   context.Context
	id    int64
	seq   int
	err   error
}

var _ solver.Reporter = (*Run)(nil)

func (r *Run) ID() int64 { return r.id }

func (r *Run) Err() error { return r.err }

func (r *Run) exec(query string, args ...any) {
	if r.err != nil {
		return
	}
	if _, err := r.store.db.ExecContext(r.ctx, query, args...); err != nil {
		r.err = fmt.Errorf("history run %d: %w", r.id, err)
	}
}

func (r *Run) StepOutcome(step int, solved, converged bool) {
	r.exec(`INSERT INTO steps (run_id, seq, step, solved, converged) VALUES (?, ?, ?, ?, ?)`,
		r.id, r.seq, step, solved, converged)
	r.seq++
}

func (r *Run) GroupOutcome(_ solver.Strategy, group int, converged bool) {
	r.exec(`INSERT INTO group_outcomes (run_id, seq, grp, converged) VALUES (?, ?, ?, ?)`,
		r.id, r.seq, group, converged)
}

func (r *Run) InnerIteration(group, iteration int, residual float64) {
	r.exec(`INSERT INTO inner_iterations (run_id, seq, grp, iteration, residual) VALUES (?, ?, ?, ?, ?)`,
		r.id, r.seq, group, iteration, residual)
}
