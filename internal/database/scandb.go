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

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "nmapclone.db"

// timestampLayout is how scan times are stored. It sorts lexically.
const timestampLayout = "2006-01-02 15:04:05.000000"

// ScanDB stores finished scan reports so later runs can be compared with
// earlier ones.
type ScanDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL turns on SQLite write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// With CreateIfNotExists false a missing database is an error, which lets
// read-only commands such as compare avoid leaving empty files behind.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s (run a scan first)", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return sdb, nil
}

// Path returns the database file path.
func (sdb *ScanDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

func (sdb *ScanDB) createTables() error {
	schema := `
	-- One row per finished scan; the full report is kept as JSON.
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		ip TEXT,
		timestamp TEXT NOT NULL,
		report_json TEXT NOT NULL,
		open_ports TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_address ON scan_reports(address);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);
	`
	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveScanReport stores report and returns its row ID.
func (sdb *ScanDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	openJSON, err := json.Marshal(report.OpenPortNumbers())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize open ports: %w", err)
	}

	scanned := report.DateScanned
	if scanned.IsZero() {
		scanned = time.Now()
	}

	result, err := sdb.db.ExecContext(ctx, `
	INSERT INTO scan_reports (address, ip, timestamp, report_json, open_ports)
	VALUES (?, ?, ?, ?, ?)
	`,
		report.Address,
		report.IP,
		scanned.UTC().Format(timestampLayout),
		string(reportJSON),
		string(openJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}
	return result.LastInsertId()
}

// GetLatestScanReport returns the most recent report for address, or nil if
// the address was never scanned.
func (sdb *ScanDB) GetLatestScanReport(ctx context.Context, address string) (*model.ScanReport, error) {
	return sdb.getOne(ctx, `
	SELECT report_json FROM scan_reports
	WHERE address = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`, address)
}

// GetScanReportByID returns the report with the given row ID, or nil.
func (sdb *ScanDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	return sdb.getOne(ctx, `SELECT report_json FROM scan_reports WHERE id = ?`, id)
}

func (sdb *ScanDB) getOne(ctx context.Context, query string, arg any) (*model.ScanReport, error) {
	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, arg).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// GetScanHistory returns every report for address, newest first.
// Rows that no longer parse are skipped.
func (sdb *ScanDB) GetScanHistory(ctx context.Context, address string) ([]*model.ScanReport, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT report_json FROM scan_reports
	WHERE address = ?
	ORDER BY timestamp DESC, id DESC
	`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// ScanReportMetadata summarizes a stored report without loading it.
type ScanReportMetadata struct {
	// ID is the row ID, usable with GetScanReportByID.
	ID int64

	Address   string
	IP        string
	Timestamp time.Time

	// OpenPorts lists the open port numbers found by the scan.
	OpenPorts []int
}

// GetScanHistoryWithMetadata returns metadata for every report of address,
// newest first.
func (sdb *ScanDB) GetScanHistoryWithMetadata(ctx context.Context, address string) ([]ScanReportMetadata, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT id, address, ip, timestamp, open_ports
	FROM scan_reports
	WHERE address = ?
	ORDER BY timestamp DESC, id DESC
	`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var (
			meta      ScanReportMetadata
			ip        sql.NullString
			timestamp string
			openJSON  sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Address, &ip, &timestamp, &openJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.IP = ip.String
		meta.Timestamp = parseTimestamp(timestamp)
		meta.OpenPorts = []int{}
		if openJSON.Valid && openJSON.String != "" {
			if err := json.Unmarshal([]byte(openJSON.String), &meta.OpenPorts); err != nil {
				meta.OpenPorts = []int{}
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// ListScannedTargets returns every address with at least one stored report.
func (sdb *ScanDB) ListScannedTargets(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT DISTINCT address FROM scan_reports ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// timestampFormats lists the layouts a stored timestamp may come back in.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp parses a stored timestamp, returning the zero time when no
// layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
