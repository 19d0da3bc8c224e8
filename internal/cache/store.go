package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"retitle/internal/config"
)

// Record is one remembered rename decision keyed by the original source path.
// Zero values mean the column has never been written.
type Record struct {
	SourcePath  string
	SeriesID    int64
	Season      string
	Episode     string
	Destination string
	UpdatedAt   time.Time
}

// Fields selects which columns an Upsert writes. Nil fields leave the stored
// value intact, so callers can record what they know as they learn it.
type Fields struct {
	SeriesID    *int64
	Season      *string
	Episode     *string
	Destination *string
}

// Store manages decision persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the decision cache database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.CachePath
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
	if err := store.applyMigrations(context.Background()); err != nil {
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

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Lookup fetches the remembered decision for a source path. It returns
// (nil, nil) when the path has never been recorded.
func (s *Store) Lookup(ctx context.Context, sourcePath string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM rename_decisions WHERE source_path = ?`, sourcePath)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup decision: %w", err)
	}
	return record, nil
}

// LookupSeriesID returns the remembered series id for a source path. The
// second return reports whether one is recorded.
func (s *Store) LookupSeriesID(ctx context.Context, sourcePath string) (int64, bool, error) {
	record, err := s.Lookup(ctx, sourcePath)
	if err != nil {
		return 0, false, err
	}
	if record == nil || record.SeriesID <= 0 {
		return 0, false, nil
	}
	return record.SeriesID, true, nil
}

// FindByDestination returns the first decision claiming a destination name,
// or (nil, nil) when no source has claimed it.
func (s *Store) FindByDestination(ctx context.Context, destination string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM rename_decisions WHERE destination = ? ORDER BY source_path LIMIT 1`,
		destination,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by destination: %w", err)
	}
	return record, nil
}

// Upsert merges the supplied fields into the decision for a source path,
// creating the row when absent. Columns left nil keep their stored value, so
// repeating an upsert with equal input changes nothing.
func (s *Store) Upsert(ctx context.Context, sourcePath string, fields Fields) error {
	if strings.TrimSpace(sourcePath) == "" {
		return errors.New("source path is empty")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO rename_decisions (source_path, series_id, season, episode, destination, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(source_path) DO UPDATE SET
             series_id = COALESCE(excluded.series_id, series_id),
             season = COALESCE(excluded.season, season),
             episode = COALESCE(excluded.episode, episode),
             destination = COALESCE(excluded.destination, destination),
             updated_at = excluded.updated_at`,
		sourcePath,
		nullableInt64(fields.SeriesID),
		nullableString(fields.Season),
		nullableString(fields.Episode),
		nullableString(fields.Destination),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert decision: %w", err)
	}
	return nil
}

// Forget deletes the decision for a source path. It reports whether a row
// was removed; forgetting an unknown path is not an error.
func (s *Store) Forget(ctx context.Context, sourcePath string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rename_decisions WHERE source_path = ?`, sourcePath)
	if err != nil {
		return false, fmt.Errorf("forget decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns every remembered decision ordered by source path.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM rename_decisions ORDER BY source_path`)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const recordColumns = "source_path, series_id, season, episode, destination, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		sourcePath  string
		seriesID    sql.NullInt64
		season      sql.NullString
		episode     sql.NullString
		destination sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&sourcePath,
		&seriesID,
		&season,
		&episode,
		&destination,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		SourcePath:  sourcePath,
		SeriesID:    seriesID.Int64,
		Season:      season.String,
		Episode:     episode.String,
		Destination: destination.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
