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

	"github.com/nao1215/onioncrawl/internal/dataset"
)

// FileName is the database file inside the database directory.
const FileName = "onioncrawl.db"

// ErrEmptyDatasetID is returned when a dataset is saved without an ID.
var ErrEmptyDatasetID = errors.New("dataset ID is empty")

// DatasetDB provides SQLite-based storage for datasets and address statistics.
// Every dataset keeps its own rows, so datasets built from different crawls
// can be compared later.
type DatasetDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures DatasetDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a DatasetDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*DatasetDB, error) {
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

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ddb := &DatasetDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ddb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ddb, nil
}

// Path returns the database file path.
func (ddb *DatasetDB) Path() string {
	return ddb.dbPath
}

// Close closes the database connection.
func (ddb *DatasetDB) Close() error {
	return ddb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (ddb *DatasetDB) createTables() error {
	schema := `
	-- Datasets describe one build of the dataset from a crawl record
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		source TEXT,
		created DATETIME DEFAULT CURRENT_TIMESTAMP,
		row_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_datasets_created ON datasets(created);

	-- Dataset rows hold one crawled site each
	CREATE TABLE IF NOT EXISTS dataset_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset_id TEXT NOT NULL REFERENCES datasets(id),
		position INTEGER NOT NULL,
		onion_addr TEXT NOT NULL,
		title TEXT,
		topic TEXT,
		btc_addrs TEXT,
		btc_addrs_count INTEGER,
		total_sent REAL,
		total_received REAL,
		n_tx INTEGER,
		comment TEXT,
		UNIQUE(dataset_id, onion_addr)
	);

	CREATE INDEX IF NOT EXISTS idx_rows_dataset ON dataset_rows(dataset_id);
	CREATE INDEX IF NOT EXISTS idx_rows_topic ON dataset_rows(topic);

	-- Address statistics from the latest enrichment of each address
	CREATE TABLE IF NOT EXISTS address_stats (
		address TEXT PRIMARY KEY,
		funded_txo_count INTEGER,
		funded_txo_sum INTEGER,
		spent_txo_count INTEGER,
		spent_txo_sum INTEGER,
		tx_count INTEGER,
		updated DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := ddb.db.ExecContext(context.Background(), schema)
	return err
}

// DatasetInfo describes a stored dataset.
type DatasetInfo struct {
	ID       string
	RunID    string
	Source   string
	Created  time.Time
	RowCount int
}

// SaveDataset stores a dataset and its rows in one transaction.
// Saving an existing ID replaces its rows.
func (ddb *DatasetDB) SaveDataset(ctx context.Context, info DatasetInfo, rows []dataset.Row) (err error) {
	if info.ID == "" {
		return ErrEmptyDatasetID
	}

	tx, err := ddb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset_id = ?`, info.ID); err != nil {
		return fmt.Errorf("failed to clear dataset rows: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
	INSERT INTO datasets (id, run_id, source, row_count) VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		run_id = excluded.run_id,
		source = excluded.source,
		row_count = excluded.row_count
	`, info.ID, info.RunID, info.Source, len(rows)); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO dataset_rows (dataset_id, position, onion_addr, title, topic, btc_addrs,
		btc_addrs_count, total_sent, total_received, n_tx, comment)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		addrs := row.BTCAddrs
		if addrs == nil {
			addrs = []string{}
		}
		addrsJSON, jerr := json.Marshal(addrs)
		if jerr != nil {
			err = fmt.Errorf("failed to serialize addresses: %w", jerr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, info.ID, i, row.OnionAddr, row.Title, row.Topic, string(addrsJSON),
			row.BTCAddrsCount, row.TotalSent, row.TotalReceived, row.NTx, row.Comment); err != nil {
			return fmt.Errorf("failed to insert row %s: %w", row.OnionAddr, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	return nil
}

// GetDataset retrieves a dataset description by ID.
// It returns nil without error when the dataset does not exist.
func (ddb *DatasetDB) GetDataset(ctx context.Context, id string) (*DatasetInfo, error) {
	var (
		info      DatasetInfo
		runID     sql.NullString
		source    sql.NullString
		timestamp string
	)
	err := ddb.db.QueryRowContext(ctx, `
	SELECT id, run_id, source, created, row_count FROM datasets WHERE id = ?
	`, id).Scan(&info.ID, &runID, &source, &timestamp, &info.RowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	info.RunID, info.Source = runID.String, source.String
	info.Created = parseTimestamp(timestamp)
	return &info, nil
}

// ListDatasets returns every dataset, newest first.
func (ddb *DatasetDB) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := ddb.db.QueryContext(ctx, `
	SELECT id, run_id, source, created, row_count FROM datasets
	ORDER BY created DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []DatasetInfo
	for rows.Next() {
		var (
			info          DatasetInfo
			runID, source sql.NullString
			timestamp     string
		)
		if err := rows.Scan(&info.ID, &runID, &source, &timestamp, &info.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		info.RunID, info.Source = runID.String, source.String
		info.Created = parseTimestamp(timestamp)
		datasets = append(datasets, info)
	}
	return datasets, rows.Err()
}

// GetRows returns the rows of a dataset in their original order.
func (ddb *DatasetDB) GetRows(ctx context.Context, datasetID string) ([]dataset.Row, error) {
	rows, err := ddb.db.QueryContext(ctx, `
	SELECT onion_addr, title, topic, btc_addrs, btc_addrs_count, total_sent, total_received, n_tx, comment
	FROM dataset_rows
	WHERE dataset_id = ?
	ORDER BY position
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset rows: %w", err)
	}
	defer rows.Close()

	var result []dataset.Row
	for rows.Next() {
		var (
			row       dataset.Row
			addrsJSON string
		)
		if err := rows.Scan(&row.OnionAddr, &row.Title, &row.Topic, &addrsJSON, &row.BTCAddrsCount,
			&row.TotalSent, &row.TotalReceived, &row.NTx, &row.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		if err := json.Unmarshal([]byte(addrsJSON), &row.BTCAddrs); err != nil {
			return nil, fmt.Errorf("failed to parse addresses of %s: %w", row.OnionAddr, err)
		}
		if len(row.BTCAddrs) == 0 {
			row.BTCAddrs = nil
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// SaveAddressStats inserts or updates the statistics of every address.
func (ddb *DatasetDB) SaveAddressStats(ctx context.Context, stats map[string]dataset.ChainStats) (err error) {
	tx, err := ddb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO address_stats (address, funded_txo_count, funded_txo_sum, spent_txo_count, spent_txo_sum, tx_count)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(address) DO UPDATE SET
		funded_txo_count = excluded.funded_txo_count,
		funded_txo_sum = excluded.funded_txo_sum,
		spent_txo_count = excluded.spent_txo_count,
		spent_txo_sum = excluded.spent_txo_sum,
		tx_count = excluded.tx_count,
		updated = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare address insert: %w", err)
	}
	defer stmt.Close()

	for addr, s := range stats {
		if _, err = stmt.ExecContext(ctx, addr, s.FundedTxoCount, s.FundedTxoSum, s.SpentTxoCount, s.SpentTxoSum, s.TxCount); err != nil {
			return fmt.Errorf("failed to save address %s: %w", addr, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit address stats: %w", err)
	}
	return nil
}

// GetAddressStats returns the stored statistics of addr, or nil when the
// address was never enriched.
func (ddb *DatasetDB) GetAddressStats(ctx context.Context, addr string) (*dataset.ChainStats, error) {
	var s dataset.ChainStats
	err := ddb.db.QueryRowContext(ctx, `
	SELECT funded_txo_count, funded_txo_sum, spent_txo_count, spent_txo_sum, tx_count
	FROM address_stats WHERE address = ?
	`, addr).Scan(&s.FundedTxoCount, &s.FundedTxoSum, &s.SpentTxoCount, &s.SpentTxoSum, &s.TxCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address stats: %w", err)
	}
	return &s, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
