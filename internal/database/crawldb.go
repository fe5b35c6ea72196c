package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/model"
)

// ErrNoState is returned by LoadState when nothing was saved for a seed.
var ErrNoState = errors.New("no saved crawl state")

// CrawlDB stores crawl state in a SQLite file.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the state database in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, config.StateFileName)

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNoState)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl, keyed by normalized seed URL
	CREATE TABLE IF NOT EXISTS crawl_state (
		seed TEXT PRIMARY KEY,
		processed INTEGER NOT NULL DEFAULT 0,
		final INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	-- Results are written once per URL
	CREATE TABLE IF NOT EXISTS results (
		seed TEXT NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		extraction_method TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (seed, url)
	);

	-- Pending URLs in dequeue order
	CREATE TABLE IF NOT EXISTS frontier (
		seed TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (seed, position)
	);

	-- Every URL ever enqueued
	CREATE TABLE IF NOT EXISTS seen (
		seed TEXT NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (seed, url)
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Checkpoint saves snap. It lets CrawlDB act as a snapshot sink of the crawl loop.
func (cdb *CrawlDB) Checkpoint(ctx context.Context, snap *model.Snapshot) error {
	return cdb.SaveState(ctx, snap)
}

// SaveState writes snap in a single transaction. Results and seen URLs
// accumulate across calls; the frontier is replaced.
func (cdb *CrawlDB) SaveState(ctx context.Context, snap *model.Snapshot) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // already failing
		}
	}()

	if err = insertResults(ctx, tx, snap); err != nil {
		return err
	}
	if err = insertSeen(ctx, tx, snap); err != nil {
		return err
	}
	if err = replaceFrontier(ctx, tx, snap); err != nil {
		return err
	}

	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawl_state (seed, processed, final, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(seed) DO UPDATE SET
		processed = excluded.processed,
		final = excluded.final,
		updated_at = excluded.updated_at
	`, snap.Seed, snap.Processed, boolToInt(snap.Final), takenAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save crawl state: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit crawl state: %w", err)
	}
	return nil
}

func insertResults(ctx context.Context, tx *sql.Tx, snap *model.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO results (seed, url, status, text, title, extraction_method, content_type, error_message)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for u, r := range snap.Results {
		if _, err := stmt.ExecContext(ctx, snap.Seed, u, string(r.Status),
			r.Text, r.Title, r.ExtractionMethod, r.ContentType, r.ErrorMessage); err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", u, err)
		}
	}
	return nil
}

func insertSeen(ctx context.Context, tx *sql.Tx, snap *model.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen (seed, url) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare seen insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range snap.Seen {
		if _, err := stmt.ExecContext(ctx, snap.Seed, u); err != nil {
			return fmt.Errorf("failed to insert seen url %s: %w", u, err)
		}
	}
	return nil
}

func replaceFrontier(ctx context.Context, tx *sql.Tx, snap *model.Snapshot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM frontier WHERE seed = ?`, snap.Seed); err != nil {
		return fmt.Errorf("failed to clear frontier: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO frontier (seed, position, url) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare frontier insert: %w", err)
	}
	defer stmt.Close()

	for i, u := range snap.Queue {
		if _, err := stmt.ExecContext(ctx, snap.Seed, i, u); err != nil {
			return fmt.Errorf("failed to insert frontier url %s: %w", u, err)
		}
	}
	return nil
}

// LoadState returns the state saved for seed, or ErrNoState.
func (cdb *CrawlDB) LoadState(ctx context.Context, seed string) (*model.Snapshot, error) {
	snap := &model.Snapshot{Seed: seed, Results: make(map[string]model.Result)}

	var (
		final     int
		updatedAt string
	)
	err := cdb.db.QueryRowContext(ctx,
		`SELECT processed, final, updated_at FROM crawl_state WHERE seed = ?`, seed,
	).Scan(&snap.Processed, &final, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %s", ErrNoState, seed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load crawl state: %w", err)
	}
	snap.Final = final != 0
	// A malformed timestamp leaves TakenAt zero; it is informational only.
	snap.TakenAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // see above

	if err := cdb.loadResults(ctx, snap); err != nil {
		return nil, err
	}

	snap.Queue, err = cdb.queryURLs(ctx, `SELECT url FROM frontier WHERE seed = ? ORDER BY position`, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load frontier: %w", err)
	}
	snap.Seen, err = cdb.queryURLs(ctx, `SELECT url FROM seen WHERE seed = ? ORDER BY url`, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen set: %w", err)
	}

	return snap, nil
}

func (cdb *CrawlDB) loadResults(ctx context.Context, snap *model.Snapshot) error {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, status, text, title, extraction_method, content_type, error_message
	FROM results WHERE seed = ?
	`, snap.Seed)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u      string
			status string
			r      model.Result
		)
		if err := rows.Scan(&u, &status, &r.Text, &r.Title, &r.ExtractionMethod, &r.ContentType, &r.ErrorMessage); err != nil {
			return fmt.Errorf("failed to scan result: %w", err)
		}
		r.Status = model.Status(status)
		snap.Results[u] = r
	}
	return rows.Err()
}

func (cdb *CrawlDB) queryURLs(ctx context.Context, query, seed string) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, query, seed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// Reset deletes everything saved for seed.
func (cdb *CrawlDB) Reset(ctx context.Context, seed string) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // already failing
		}
	}()

	for _, table := range []string{"results", "frontier", "seen", "crawl_state"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE seed = ?", seed); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
