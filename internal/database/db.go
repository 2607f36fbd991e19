package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/vrscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "vrscan.db"

// DB provides SQLite-based storage for baselines and scan history.
type DB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures DB behavior.
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

// Open opens or creates the database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer. Checks of one page store baselines
	// concurrently, so all access goes through a single connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	d := &DB{
		db:     sqlDB,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := sqlDB.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := d.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (d *DB) createTables() error {
	schema := `
	-- One reference screenshot per baseline name
	CREATE TABLE IF NOT EXISTS baselines (
		name TEXT PRIMARY KEY,
		png BLOB NOT NULL,
		digest TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Scan runs store the complete run as JSON; ids are ULIDs and sort by time
	CREATE TABLE IF NOT EXISTS scan_runs (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		run_json TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_base_url ON scan_runs(base_url);
	`

	_, err := d.db.ExecContext(context.Background(), schema)
	return err
}

// Baseline is a stored reference screenshot.
type Baseline struct {
	// Name is the baseline name, e.g. "page-phone-home".
	Name string

	// PNG is the encoded screenshot.
	PNG []byte

	// Digest is a hex digest of PNG, used to skip decoding identical images.
	Digest string

	// Width and Height are the image dimensions in pixels.
	Width  int
	Height int

	// UpdatedAt is when the baseline was last written.
	UpdatedAt time.Time
}

// GetBaseline retrieves a baseline by name.
// It returns nil, nil when no baseline has been recorded under name.
func (d *DB) GetBaseline(ctx context.Context, name string) (*Baseline, error) {
	query := `
	SELECT name, png, digest, width, height, updated_at
	FROM baselines
	WHERE name = ?
	`

	var b Baseline
	var updatedAt string

	err := d.db.QueryRowContext(ctx, query, name).Scan(
		&b.Name,
		&b.PNG,
		&b.Digest,
		&b.Width,
		&b.Height,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get baseline %q: %w", name, err)
	}

	b.UpdatedAt = parseTimestamp(updatedAt)
	return &b, nil
}

// PutBaseline inserts or replaces a baseline.
func (d *DB) PutBaseline(ctx context.Context, b *Baseline) error {
	query := `
	INSERT INTO baselines (name, png, digest, width, height)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		png = excluded.png,
		digest = excluded.digest,
		width = excluded.width,
		height = excluded.height,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err := d.db.ExecContext(ctx, query, b.Name, b.PNG, b.Digest, b.Width, b.Height)
	if err != nil {
		return fmt.Errorf("failed to store baseline %q: %w", b.Name, err)
	}
	return nil
}

// BaselineInfo describes a baseline without its image data.
type BaselineInfo struct {
	Name      string
	Width     int
	Height    int
	UpdatedAt time.Time
}

// ListBaselines returns every stored baseline ordered by name.
func (d *DB) ListBaselines(ctx context.Context) ([]BaselineInfo, error) {
	query := `
	SELECT name, width, height, updated_at
	FROM baselines
	ORDER BY name
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}
	defer rows.Close()

	var results []BaselineInfo
	for rows.Next() {
		var info BaselineInfo
		var updatedAt string
		if err := rows.Scan(&info.Name, &info.Width, &info.Height, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		info.UpdatedAt = parseTimestamp(updatedAt)
		results = append(results, info)
	}

	return results, rows.Err()
}

// SaveScanRun saves a complete scan run as JSON.
func (d *DB) SaveScanRun(ctx context.Context, run *model.ScanRun) error {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize scan run: %w", err)
	}

	summaryJSON, _ := json.Marshal(run.Summarize()) //nolint:errcheck,errchkjson // Summary only holds ints

	query := `
	INSERT INTO scan_runs (id, base_url, started_at, run_json, summary)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = d.db.ExecContext(ctx, query,
		run.ID,
		run.BaseURL,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		string(runJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan run: %w", err)
	}
	return nil
}

// GetRunByID retrieves a scan run by its ID.
// It returns nil, nil when no run has that ID.
func (d *DB) GetRunByID(ctx context.Context, id string) (*model.ScanRun, error) {
	query := `
	SELECT run_json FROM scan_runs
	WHERE id = ?
	`

	var runJSON string
	err := d.db.QueryRowContext(ctx, query, id).Scan(&runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}

	var run model.ScanRun
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse scan run: %w", err)
	}
	return &run, nil
}

// GetLatestRuns returns up to limit runs for baseURL, newest first.
// An empty baseURL matches every run.
func (d *DB) GetLatestRuns(ctx context.Context, baseURL string, limit int) ([]*model.ScanRun, error) {
	return d.latestRuns(ctx, baseURL, limit, false)
}

// GetLatestCompletedRuns is GetLatestRuns without aborted runs, that is
// runs saved with a non-empty Error.
func (d *DB) GetLatestCompletedRuns(ctx context.Context, baseURL string, limit int) ([]*model.ScanRun, error) {
	return d.latestRuns(ctx, baseURL, limit, true)
}

func (d *DB) latestRuns(ctx context.Context, baseURL string, limit int, completedOnly bool) ([]*model.ScanRun, error) {
	query := `
	SELECT run_json FROM scan_runs
	WHERE (? = '' OR base_url = ?)`
	if completedOnly {
		// Error is omitted from the JSON of runs that finished.
		query += `
	AND json_extract(run_json, '$.error') IS NULL`
	}
	query += `
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, baseURL, baseURL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.ScanRun
	for rows.Next() {
		var runJSON string
		if err := rows.Scan(&runJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var run model.ScanRun
		if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
			continue // Skip malformed runs
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// RunMetadata contains summary information about a scan run.
// This is used for listing history without loading the full run.
type RunMetadata struct {
	// ID is the run's ULID.
	ID string

	// BaseURL is the scanned site.
	BaseURL string

	// StartedAt is when the scan started.
	StartedAt time.Time

	// Summary holds the outcome counts of the run.
	Summary model.Summary

	// Error is set when the run was aborted.
	Error string
}

// ListRuns returns metadata for up to limit runs, newest first.
// An empty baseURL matches every run.
func (d *DB) ListRuns(ctx context.Context, baseURL string, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, base_url, started_at, summary,
		COALESCE(json_extract(run_json, '$.error'), '')
	FROM scan_runs
	WHERE (? = '' OR base_url = ?)
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, baseURL, baseURL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.BaseURL, &startedAt, &summaryJSON, &meta.Error); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		if summaryJSON.Valid && summaryJSON.String != "" {
			// A malformed summary leaves zero counts.
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Summary) //nolint:errcheck
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
