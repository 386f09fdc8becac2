package stats

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"chime/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; mismatched databases are rejected rather than migrated in place.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const dateLayout = "2006-01-02"

// Snapshot is a read-only copy of the persisted counters.
type Snapshot struct {
	TotalRings    uint64     `json:"total_rings"`
	DaysActive    uint64     `json:"days_active"`
	CurrentStreak uint64     `json:"current_streak"`
	LongestStreak uint64     `json:"longest_streak"`
	LastRing      *time.Time `json:"last_ring,omitempty"`
}

// Store persists ring statistics in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the statistics database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "chime.db")
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath}
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

// Path returns the on-disk database location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordRing increments the counters for a ring at the given time. Streaks
// advance on consecutive local calendar days: a ring on the same day leaves
// the streak unchanged, the next day extends it, and any gap restarts it
// at one.
func (s *Store) RecordRing(ctx context.Context, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ring tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		totalRings    uint64
		daysActive    uint64
		currentStreak uint64
		longestStreak uint64
		lastActive    sql.NullString
	)
	row := tx.QueryRowContext(ctx,
		"SELECT total_rings, days_active, current_streak, longest_streak, last_active_date FROM counters WHERE id = 1")
	if err := row.Scan(&totalRings, &daysActive, &currentStreak, &longestStreak, &lastActive); err != nil {
		return fmt.Errorf("read counters: %w", err)
	}

	today := now.Local()
	todayStr := today.Format(dateLayout)

	totalRings++
	switch {
	case !lastActive.Valid || lastActive.String == "":
		// First ring ever.
		currentStreak = 1
		daysActive = 1
	case lastActive.String == todayStr:
		// Same day, streak unchanged.
	default:
		daysActive++
		if gap, gapErr := dayGap(lastActive.String, today); gapErr == nil && gap == 1 {
			currentStreak++
		} else {
			currentStreak = 1
		}
	}
	if currentStreak > longestStreak {
		longestStreak = currentStreak
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE counters SET
            total_rings = ?, days_active = ?, current_streak = ?, longest_streak = ?,
            last_ring = ?, last_active_date = ?
         WHERE id = 1`,
		totalRings, daysActive, currentStreak, longestStreak,
		now.UTC().Format(time.RFC3339Nano), todayStr,
	)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ring: %w", err)
	}
	return nil
}

// Read returns the current counters.
func (s *Store) Read(ctx context.Context) (Snapshot, error) {
	var (
		snap     Snapshot
		lastRing sql.NullString
	)
	row := s.db.QueryRowContext(ctx,
		"SELECT total_rings, days_active, current_streak, longest_streak, last_ring FROM counters WHERE id = 1")
	if err := row.Scan(&snap.TotalRings, &snap.DaysActive, &snap.CurrentStreak, &snap.LongestStreak, &lastRing); err != nil {
		return Snapshot{}, fmt.Errorf("read counters: %w", err)
	}
	if lastRing.Valid && lastRing.String != "" {
		parsed, err := time.Parse(time.RFC3339Nano, lastRing.String)
		if err != nil {
			return Snapshot{}, fmt.Errorf("parse last ring: %w", err)
		}
		snap.LastRing = &parsed
	}
	return snap, nil
}

// Reset zeroes every counter.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE counters SET
            total_rings = 0, days_active = 0, current_streak = 0, longest_streak = 0,
            last_ring = NULL, last_active_date = NULL
         WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("reset counters: %w", err)
	}
	return nil
}

// dayGap returns the number of calendar days between the stored date and
// the given day. Both dates are re-anchored at UTC midnight so the result
// is exact day counting; subtracting zoned times would mis-count across
// daylight-saving transitions (a 23-hour day truncates to a zero gap).
func dayGap(stored string, today time.Time) (int, error) {
	last, err := time.Parse(dateLayout, stored)
	if err != nil {
		return 0, fmt.Errorf("parse last active date: %w", err)
	}
	a := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour)), nil
}
