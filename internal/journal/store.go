package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location backing the store.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// RecordRun persists a finished run and its per-entry outcomes in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, entries []Entry) error {
	if s == nil || s.db == nil {
		return errors.New("journal store not open")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO runs (id, source_dir, dest_dir, dry_run, started_at, finished_at, merged, copied, skipped, failed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.SourceDir, run.DestDir, boolToInt(run.DryRun),
			run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
			run.Merged, run.Copied, run.Skipped, run.Failed,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, entry := range entries {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO run_entries (run_id, name, kind, action, output_path, error, elapsed_ms)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				run.ID, entry.Name, entry.Kind, string(entry.Action), entry.OutputPath, entry.Error,
				entry.Elapsed.Milliseconds(),
			)
			if err != nil {
				return fmt.Errorf("insert run entry %q: %w", entry.Name, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
		return nil
	})
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns
// all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("journal store not open")
	}
	query := `SELECT id, source_dir, dest_dir, dry_run, started_at, finished_at, merged, copied, skipped, failed
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			dryRun   int
			started  string
			finished string
		)
		if err := rows.Scan(&run.ID, &run.SourceDir, &run.DestDir, &dryRun, &started, &finished,
			&run.Merged, &run.Copied, &run.Skipped, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.DryRun = dryRun != 0
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunEntries returns the per-entry outcomes for one run in insertion order.
func (s *Store) RunEntries(ctx context.Context, runID string) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("journal store not open")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, kind, action, output_path, error, elapsed_ms
		 FROM run_entries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			action    string
			elapsedMS int64
		)
		if err := rows.Scan(&entry.Name, &entry.Kind, &action, &entry.OutputPath, &entry.Error, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan run entry: %w", err)
		}
		entry.RunID = runID
		entry.Action = Action(action)
		entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
