// Package resultstore persists harness run results in SQLite so repeated
// diagnostic and benchmark runs stay comparable.
package resultstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/guofoo/mofa-studio/internal/config"
	_ "modernc.org/sqlite"
)

// Run is one harness or benchmark invocation.
type Run struct {
	RunID     string
	Kind      string
	SessionID string
	CreatedAt time.Time
}

// Unit is one received or measured unit within a run.
type Unit struct {
	ID          int64
	RunID       string
	Seq         int
	QuestionID  string
	Duration    float64
	SampleCount int
	Similarity  float64
	ReceivedAt  time.Time
}

// Store wraps a SQLite-backed result history.
type Store struct {
	db    *sql.DB
	cfg   config.ResultStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the result store according to config.
func Open(ctx context.Context, cfg config.ResultStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("result store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("result store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    kind TEXT,
    session_id TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS units (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    question_id TEXT,
    duration REAL,
    sample_count INTEGER,
    similarity REAL,
    received_at TIMESTAMP NOT NULL,
    FOREIGN KEY(run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_units_run_seq ON units(run_id, seq);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun ensures a run row exists.
func (s *Store) BeginRun(ctx context.Context, runID, kind, sessionID string) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, kind, session_id, created_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET kind=excluded.kind, session_id=excluded.session_id`,
		runID, kind, sessionID, s.clock().UTC())
	return err
}

// AppendUnit writes one unit record into the store.
func (s *Store) AppendUnit(ctx context.Context, u Unit) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if u.ReceivedAt.IsZero() {
		u.ReceivedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO units(run_id, seq, question_id, duration, sample_count, similarity, received_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		u.RunID, u.Seq, u.QuestionID, u.Duration, u.SampleCount, u.Similarity, u.ReceivedAt)
	return err
}

// ListRunUnits retrieves up to limit units for a run ordered by sequence.
func (s *Store) ListRunUnits(ctx context.Context, runID string, limit int) ([]Unit, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, seq, question_id, duration, sample_count, similarity, received_at
		 FROM units WHERE run_id = ? ORDER BY seq ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		var received string
		if err := rows.Scan(&u.ID, &u.RunID, &u.Seq, &u.QuestionID, &u.Duration, &u.SampleCount, &u.Similarity, &received); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, received); err == nil {
			u.ReceivedAt = ts
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM units WHERE received_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRuns > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id IN (
			SELECT run_id FROM runs ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRuns)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// Ensure supplies a no-op store when persistence is disabled.
func (s *Store) Ensure() error {
	if s.cfg.RetentionMode == "ephemeral" && s.db != nil {
		return errors.New("ephemeral store should not have database connection")
	}
	return nil
}
