package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/wiki-crawler/internal/crawler"
)

// Store is a crawler.Recorder backed by a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the manifest database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("manifest path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id TEXT NOT NULL,
		path TEXT NOT NULL,
		outcome TEXT NOT NULL,
		title TEXT,
		location TEXT,
		content_hash TEXT,
		status_code INTEGER,
		attempts INTEGER,
		error TEXT,
		recorded_at DATETIME NOT NULL,
		UNIQUE(crawl_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_crawl ON outcomes(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_outcome ON outcomes(crawl_id, outcome);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordOutcome stores one path outcome. A path is visited at most once per
// crawl, so a repeated (crawl_id, path) replaces the earlier row.
func (s *Store) RecordOutcome(ctx context.Context, rec crawler.OutcomeRecord) error {
	query := `
	INSERT INTO outcomes (crawl_id, path, outcome, title, location, content_hash, status_code, attempts, error, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(crawl_id, path) DO UPDATE SET
		outcome = excluded.outcome,
		title = excluded.title,
		location = excluded.location,
		content_hash = excluded.content_hash,
		status_code = excluded.status_code,
		attempts = excluded.attempts,
		error = excluded.error,
		recorded_at = excluded.recorded_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.CrawlID,
		rec.Path,
		string(rec.Outcome),
		rec.Title,
		rec.Location,
		rec.ContentHash,
		rec.StatusCode,
		rec.Attempts,
		rec.Error,
		rec.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome for %s: %w", rec.Path, err)
	}
	return nil
}

// Outcomes returns every record of a crawl in insertion order.
func (s *Store) Outcomes(ctx context.Context, crawlID string) ([]crawler.OutcomeRecord, error) {
	query := `
	SELECT crawl_id, path, outcome, title, location, content_hash, status_code, attempts, error, recorded_at
	FROM outcomes
	WHERE crawl_id = ?
	ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []crawler.OutcomeRecord
	for rows.Next() {
		var (
			rec                                   crawler.OutcomeRecord
			outcome                               string
			title, location, contentHash, errText sql.NullString
			statusCode, attempts                  sql.NullInt64
		)
		if err := rows.Scan(
			&rec.CrawlID, &rec.Path, &outcome, &title, &location, &contentHash,
			&statusCode, &attempts, &errText, &rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		rec.Outcome = crawler.Outcome(outcome)
		rec.Title = title.String
		rec.Location = location.String
		rec.ContentHash = contentHash.String
		rec.StatusCode = int(statusCode.Int64)
		rec.Attempts = int(attempts.Int64)
		rec.Error = errText.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}
	return records, nil
}

// Summary counts the outcomes of a crawl.
func (s *Store) Summary(ctx context.Context, crawlID string) (map[crawler.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM outcomes WHERE crawl_id = ? GROUP BY outcome`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[crawler.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		counts[crawler.Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary: %w", err)
	}
	return counts, nil
}

// LatestCrawlID returns the crawl with the most recent record, or "" if the
// manifest is empty.
func (s *Store) LatestCrawlID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT crawl_id FROM outcomes ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest crawl: %w", err)
	}
	return id, nil
}
