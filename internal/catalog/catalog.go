// Package catalog persists per-file outcomes in SQLite so interrupted runs
// can resume without redoing committed work.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bindery/internal/config"
)

// Terminal statuses a record can carry.
const (
	StatusCommitted   = "committed"
	StatusQuarantined = "quarantined"
	StatusFailed      = "failed"
	StatusSkipped     = "skipped"
)

// Record is one file's latest outcome. SourcePath is unique: reprocessing a
// file replaces its record rather than appending history.
type Record struct {
	ID           int64
	RunID        string
	SourcePath   string
	Fingerprint  string
	Status       string
	Author       string
	Title        string
	Language     string
	FinalPath    string
	ErrorKind    string
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Run is one pipeline invocation with its outcome counts.
type Run struct {
	ID          string
	Mode        string
	StartedAt   time.Time
	FinishedAt  time.Time
	Finished    bool
	Committed   int
	Quarantined int
	Failed      int
	Skipped     int
}

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "catalog.db"))
}

// OpenPath connects to the catalog database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One pooled connection keeps every statement on the connection the
	// pragmas below were applied to; concurrent workers queue here instead
	// of racing into SQLITE_BUSY.
	db.SetMaxOpenConns(1)

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

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// BeginRun records the start of a pipeline invocation.
func (s *Store) BeginRun(ctx context.Context, runID, mode string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, started_at) VALUES (?, ?, ?)`,
		runID, mode, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run complete with its final counts.
func (s *Store) FinishRun(ctx context.Context, runID string, committed, quarantined, failed, skipped int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, committed = ?, quarantined = ?, failed = ?, skipped = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), committed, quarantined, failed, skipped, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// SaveRecord inserts or replaces the record for a source path.
func (s *Store) SaveRecord(ctx context.Context, record Record) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (
            run_id, source_path, fingerprint, status, author, title, language,
            final_path, error_kind, error_message, attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(source_path) DO UPDATE SET
            run_id = excluded.run_id,
            fingerprint = excluded.fingerprint,
            status = excluded.status,
            author = excluded.author,
            title = excluded.title,
            language = excluded.language,
            final_path = excluded.final_path,
            error_kind = excluded.error_kind,
            error_message = excluded.error_message,
            attempts = excluded.attempts,
            updated_at = excluded.updated_at`,
		record.RunID, record.SourcePath, nullableString(record.Fingerprint), record.Status,
		nullableString(record.Author), nullableString(record.Title), nullableString(record.Language),
		nullableString(record.FinalPath), nullableString(record.ErrorKind), nullableString(record.ErrorMessage),
		record.Attempts, now, now)
	if err != nil {
		return fmt.Errorf("save record for %s: %w", record.SourcePath, err)
	}
	return nil
}

// LookupBySource returns the record for a source path, or nil when none
// exists.
func (s *Store) LookupBySource(ctx context.Context, sourcePath string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecordSQL+` WHERE source_path = ?`, sourcePath)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", sourcePath, err)
	}
	return record, nil
}

// CommittedPaths returns the committed source paths keyed to the content
// fingerprint each was committed with, so a replaced file at a committed
// path is reprocessed instead of skipped.
func (s *Store) CommittedPaths(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, fingerprint FROM records WHERE status = ?`, StatusCommitted)
	if err != nil {
		return nil, fmt.Errorf("query committed paths: %w", err)
	}
	defer func() { _ = rows.Close() }()

	paths := make(map[string]string)
	for rows.Next() {
		var path string
		var fingerprint sql.NullString
		if err := rows.Scan(&path, &fingerprint); err != nil {
			return nil, fmt.Errorf("scan committed path: %w", err)
		}
		paths[path] = fingerprint.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate committed paths: %w", err)
	}
	return paths, nil
}

// RunRecords returns all records written under a run, ordered by source path.
func (s *Store) RunRecords(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecordSQL+` WHERE run_id = ? ORDER BY source_path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}
	return records, nil
}

// GetRun returns a run by ID, or nil when none exists.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRunSQL+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// LatestRun returns the most recently started run, or nil when the catalog
// is empty.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRunSQL+` ORDER BY started_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// CommittedAuthors returns the distinct author values of committed records,
// fed back into inference prompts to stabilize spellings.
func (s *Store) CommittedAuthors(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT author FROM records WHERE status = ? AND author IS NOT NULL ORDER BY author`,
		StatusCommitted)
	if err != nil {
		return nil, fmt.Errorf("query committed authors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var authors []string
	for rows.Next() {
		var author string
		if err := rows.Scan(&author); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

const selectRecordSQL = `SELECT id, run_id, source_path, fingerprint, status, author, title,
    language, final_path, error_kind, error_message, attempts, created_at, updated_at
    FROM records`

const selectRunSQL = `SELECT id, mode, started_at, finished_at, committed, quarantined, failed, skipped FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var fingerprint, author, title, lang, finalPath, errorKind, errorMessage sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&record.ID, &record.RunID, &record.SourcePath, &fingerprint, &record.Status,
		&author, &title, &lang, &finalPath, &errorKind, &errorMessage,
		&record.Attempts, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	record.Fingerprint = fingerprint.String
	record.Author = author.String
	record.Title = title.String
	record.Language = lang.String
	record.FinalPath = finalPath.String
	record.ErrorKind = errorKind.String
	record.ErrorMessage = errorMessage.String
	record.CreatedAt = parseTimestamp(createdAt)
	record.UpdatedAt = parseTimestamp(updatedAt)
	return &record, nil
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString
	err := row.Scan(&run.ID, &run.Mode, &startedAt, &finishedAt,
		&run.Committed, &run.Quarantined, &run.Failed, &run.Skipped)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
		run.Finished = true
	}
	return &run, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
