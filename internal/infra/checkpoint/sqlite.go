// Package checkpoint persists the last successful scan time of each domain in
// a local SQLite file so a restarted process can tell whether it missed a
// scheduled scan.
package checkpoint

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reminder_service/internal/domain/reminder"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the checkpoint database at path.
// ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("checkpoint path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	// One writer; this file is per-process state.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	st := &SQLiteStore{db: db}
	if err := st.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to migrate checkpoint database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LastSuccess(ctx context.Context, domain reminder.Domain) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT last_success_ms FROM scan_checkpoints WHERE domain = ?`, string(domain)).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error reading checkpoint for %s: %w", domain, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *SQLiteStore) MarkSuccess(ctx context.Context, domain reminder.Domain, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_checkpoints(domain, last_success_ms, updated_at) VALUES(?,?,?)
		 ON CONFLICT(domain) DO UPDATE SET last_success_ms = excluded.last_success_ms, updated_at = excluded.updated_at
		 WHERE excluded.last_success_ms > scan_checkpoints.last_success_ms`,
		string(domain), at.UnixMilli(), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("error writing checkpoint for %s: %w", domain, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
