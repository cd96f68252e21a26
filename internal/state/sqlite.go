package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewWithDB wraps an existing connection. The schema is not migrated.
func NewWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens the database at path and applies migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes
	// writers on disk.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state store", "path", path)
	if err := s.Migrate(); err != nil {
		db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

func generateID() string {
	return uuid.New().String()
}

var errNotOpened = errors.New("database not opened")

const recordColumns = `id, kind, name, version, origin, checksum, installed_at, superseded_at, superseded_by`

// Current returns the live record for kind/name, nil if none.
func (s *SQLiteStore) Current(ctx context.Context, kind, name string) (*Record, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM packages WHERE kind = ? AND name = ? AND superseded_at IS NULL`,
		kind, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, name, err)
	}
	return rec, nil
}

// Installed returns all live records of a kind sorted by name.
func (s *SQLiteStore) Installed(ctx context.Context, kind string) ([]Record, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM packages WHERE kind = ? AND superseded_at IS NULL ORDER BY name`,
		kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed: %w", err)
	}
	return collect(rows)
}

// History returns every record for kind/name, newest first.
func (s *SQLiteStore) History(ctx context.Context, kind, name string) ([]Record, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM packages WHERE kind = ? AND name = ? ORDER BY installed_at DESC`,
		kind, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return collect(rows)
}

// Supersede inserts rec as the live record for its kind/name and marks the
// previous live record superseded, atomically.
func (s *SQLiteStore) Supersede(ctx context.Context, rec Record) (*Record, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.InstalledAt.IsZero() {
		rec.InstalledAt = s.now()
	}
	rec.SupersededAt = nil
	rec.SupersededBy = ""

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Drop the partial-index constraint first, then link the old record.
	if _, err := tx.ExecContext(ctx,
		`UPDATE packages SET superseded_at = ? WHERE kind = ? AND name = ? AND superseded_at IS NULL`,
		rec.InstalledAt, rec.Kind, rec.Name); err != nil {
		return nil, fmt.Errorf("failed to supersede %s %s: %w", rec.Kind, rec.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO packages (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
		rec.ID, rec.Kind, rec.Name, rec.Version, rec.Origin, rec.Checksum, rec.InstalledAt); err != nil {
		return nil, fmt.Errorf("failed to record %s %s: %w", rec.Kind, rec.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE packages SET superseded_by = ? WHERE kind = ? AND name = ? AND superseded_at = ? AND superseded_by IS NULL`,
		rec.ID, rec.Kind, rec.Name, rec.InstalledAt); err != nil {
		return nil, fmt.Errorf("failed to link superseded %s %s: %w", rec.Kind, rec.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.Debug("recorded install", "kind", rec.Kind, "name", rec.Name, "version", rec.Version)
	return &rec, nil
}

// RecordEvent appends to the operation log.
func (s *SQLiteStore) RecordEvent(ctx context.Context, ev Event) error {
	if s.db == nil {
		return errNotOpened
	}
	if ev.ID == "" {
		ev.ID = generateID()
	}
	var errText sql.NullString
	if ev.Error != "" {
		errText = sql.NullString{String: ev.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_events (id, op, ref, status, error, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Op, ev.Ref, ev.Status, errText, ev.StartedAt, ev.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Events returns the most recent operations, newest first.
func (s *SQLiteStore) Events(ctx context.Context, limit int) ([]Event, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, op, ref, status, error, started_at, finished_at FROM sync_events ORDER BY started_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev      Event
			errText sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Op, &ev.Ref, &ev.Status, &errText, &ev.StartedAt, &ev.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Error = errText.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec          Record
		supersededAt sql.NullTime
		supersededBy sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.Name, &rec.Version, &rec.Origin, &rec.Checksum,
		&rec.InstalledAt, &supersededAt, &supersededBy); err != nil {
		return nil, err
	}
	if supersededAt.Valid {
		t := supersededAt.Time
		rec.SupersededAt = &t
	}
	rec.SupersededBy = supersededBy.String
	return &rec, nil
}

func collect(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
