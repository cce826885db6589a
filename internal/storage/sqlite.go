package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

var _ domain.SettingsStore = (*SQLiteStore)(nil)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{1, `
CREATE TABLE IF NOT EXISTS settings (
	user_id    TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	dwell_ms   INTEGER NOT NULL,
	voice      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);`},
}

// SQLiteStore keeps settings in a SQLite file so they survive restarts.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies pending
// migrations.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("settings database ready at %s", path)
	return &SQLiteStore{db: db, log: log, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save upserts the user's settings.
func (s *SQLiteStore) Save(ctx context.Context, settings *domain.Settings) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings(user_id, mode, dwell_ms, voice, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	mode=excluded.mode,
	dwell_ms=excluded.dwell_ms,
	voice=excluded.voice,
	updated_at=excluded.updated_at
`, settings.UserID, settings.Mode.String(), settings.Dwell.Milliseconds(), settings.Voice, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.log.Debug("saved settings for %s (mode=%s, dwell=%s)", settings.UserID, settings.Mode, settings.Dwell)
	return nil
}

// Load returns the user's settings or domain.ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (*domain.Settings, error) {
	var (
		mode, voice, updated string
		dwellMS              int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT mode, dwell_ms, voice, updated_at FROM settings WHERE user_id = ?`, userID,
	).Scan(&mode, &dwellMS, &voice, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	m, err := domain.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("load settings for %s: %w", userID, err)
	}
	at, _ := time.Parse(time.RFC3339Nano, updated)
	return &domain.Settings{
		UserID:    userID,
		Mode:      m,
		Dwell:     time.Duration(dwellMS) * time.Millisecond,
		Voice:     voice,
		UpdatedAt: at,
	}, nil
}

// Delete removes a user's settings.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Users returns the ids of every user with stored settings, sorted.
func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM settings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
