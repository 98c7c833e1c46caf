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

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/tldcrawl/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "tldcrawl.db"

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for crawl runs and every domain
// ever discovered.
//
// Design decision: We use a single database file shared by all runs rather
// than one file per run. The domains table is keyed by domain, so the first
// run to find a domain owns it forever, mirroring the first-write-wins rule
// of the in-run catalog.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	now func() time.Time
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite takes the open mode in the DSN: rw refuses to
	// create a missing file, rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; the catalog sink writes from many
	// goroutines, so all of them share one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per crawl invocation
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target_suffix TEXT NOT NULL,
		strategies TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages_crawled INTEGER DEFAULT 0,
		domains_added INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Every domain ever discovered, owned by the run that found it first
	CREATE TABLE IF NOT EXISTS domains (
		domain TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT,
		description TEXT,
		discovery_method TEXT NOT NULL,
		discovered_at TEXT NOT NULL,
		run_id TEXT REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_domains_run ON domains(run_id);
	CREATE INDEX IF NOT EXISTS idx_domains_method ON domains(discovery_method);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one row of the runs table.
type Run struct {
	ID           string
	TargetSuffix string
	Strategies   []string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	PagesCrawled int64
	DomainsAdded int
	// DomainsOwned is the number of domains first discovered by this run
	// across all runs (filled by ListRuns and GetRun).
	DomainsOwned int
}

// Duration returns the run length, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun inserts a new running run and returns it with a fresh UUID.
func (h *HistoryDB) StartRun(ctx context.Context, suffix string, strategies []string) (*Run, error) {
	strategiesJSON, err := json.Marshal(strategies)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize strategies: %w", err)
	}

	run := &Run{
		ID:           uuid.NewString(),
		TargetSuffix: suffix,
		Strategies:   strategies,
		Status:       StatusRunning,
		StartedAt:    h.now().UTC(),
	}

	query := `
	INSERT INTO runs (id, target_suffix, strategies, status, started_at)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := h.db.ExecContext(ctx, query,
		run.ID,
		run.TargetSuffix,
		string(strategiesJSON),
		run.Status,
		formatTimestamp(run.StartedAt),
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun records the outcome of a run.
func (h *HistoryDB) FinishRun(ctx context.Context, id, status string, pages int64, domainsAdded int) error {
	query := `
	UPDATE runs SET status = ?, finished_at = ?, pages_crawled = ?, domains_added = ?
	WHERE id = ?
	`
	result, err := h.db.ExecContext(ctx, query, status, formatTimestamp(h.now().UTC()), pages, domainsAdded, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `
	SELECT r.id, r.target_suffix, r.strategies, r.status, r.started_at, r.finished_at,
		r.pages_crawled, r.domains_added,
		(SELECT COUNT(*) FROM domains d WHERE d.run_id = r.id)
	FROM runs r
`

// GetRun returns the run with id.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := h.db.QueryRowContext(ctx, runColumns+" WHERE r.id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := runColumns + " ORDER BY r.started_at DESC"
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run            Run
		strategiesJSON string
		startedAt      string
		finishedAt     sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.TargetSuffix,
		&strategiesJSON,
		&run.Status,
		&startedAt,
		&finishedAt,
		&run.PagesCrawled,
		&run.DomainsAdded,
		&run.DomainsOwned,
	); err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	if err := json.Unmarshal([]byte(strategiesJSON), &run.Strategies); err != nil {
		run.Strategies = nil
	}
	return &run, nil
}

// InsertDomain stores rec for runID unless the domain is already known.
// It reports whether a row was inserted.
func (h *HistoryDB) InsertDomain(ctx context.Context, runID string, rec model.DomainRecord) (bool, error) {
	query := `
	INSERT INTO domains (domain, url, title, description, discovery_method, discovered_at, run_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(domain) DO NOTHING
	`
	var run any
	if runID != "" {
		run = runID
	}
	result, err := h.db.ExecContext(ctx, query,
		rec.Domain,
		rec.URL,
		rec.Title,
		rec.Description,
		string(rec.DiscoveryMethod),
		formatTimestamp(rec.DiscoveredAt),
		run,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert domain: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert domain: %w", err)
	}
	return n > 0, nil
}

// DomainRow is one row of the domains table.
type DomainRow struct {
	Domain          string
	URL             string
	Title           string
	DiscoveryMethod model.DiscoveryMethod
	DiscoveredAt    time.Time
	RunID           string
}

// ListDomains returns known domains, newest first, optionally restricted to
// one run. A non-positive limit returns every row.
func (h *HistoryDB) ListDomains(ctx context.Context, runID string, limit int) ([]DomainRow, error) {
	query := `
	SELECT domain, url, COALESCE(title, ''), discovery_method, discovered_at, COALESCE(run_id, '')
	FROM domains
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY discovered_at DESC, domain"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var results []DomainRow
	for rows.Next() {
		var (
			row          DomainRow
			method       string
			discoveredAt string
		)
		if err := rows.Scan(&row.Domain, &row.URL, &row.Title, &method, &discoveredAt, &row.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		row.DiscoveryMethod = model.DiscoveryMethod(method)
		row.DiscoveredAt = parseTimestamp(discoveredAt)
		results = append(results, row)
	}
	return results, rows.Err()
}

// KnownDomains returns every domain in the history, in name order.
func (h *HistoryDB) KnownDomains(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT domain FROM domains ORDER BY domain")
	if err != nil {
		return nil, fmt.Errorf("failed to list known domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// RunSink records catalog additions for one run. It satisfies catalog.Sink.
type RunSink struct {
	db    *HistoryDB
	runID string
}

// Sink returns a catalog sink bound to runID.
func (h *HistoryDB) Sink(runID string) *RunSink {
	return &RunSink{db: h, runID: runID}
}

// RecordDomain inserts rec. Domains known from earlier runs are ignored.
func (s *RunSink) RecordDomain(ctx context.Context, rec model.DomainRecord) error {
	_, err := s.db.InsertDomain(ctx, s.runID, rec)
	return err
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // what formatTimestamp writes
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
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
