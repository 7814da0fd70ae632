// Package journal persists placement and close activity to a parquet file
// through an in-memory DuckDB table. The journal is an audit trail for the
// front-end's recent-activity view; it is never consulted by the
// orchestrator, which treats the exchange as the sole source of truth.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-signal/internal/types"
)

type Kind string

const (
	KindPlacement Kind = "PLACE"
	KindClose     Kind = "CLOSE"
)

// Entry is one journaled activity record.
type Entry struct {
	ID        string
	Timestamp time.Time
	Kind      Kind
	Symbol    string
	Side      types.Side
	OrderType types.OrderType
	Quantity  string
	Price     float64
	Success   bool
	Detail    string
}

// Journal writes activity entries to a parquet file with real-time
// persistence.
type Journal struct {
	db         *sql.DB
	outputPath string
	mu         sync.Mutex
}

// NewJournal creates a new Journal.
// outputPath is the full path to the parquet file.
func NewJournal(outputPath string) *Journal {
	return &Journal{
		db:         nil,
		outputPath: outputPath,
		mu:         sync.Mutex{},
	}
}

// Initialize sets up the journal with DuckDB.
func (j *Journal) Initialize() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Create the data directory if it doesn't exist
	dir := filepath.Dir(j.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Open DuckDB connection (in-memory)
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	j.db = db

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS activity (
			id TEXT PRIMARY KEY,
			ts TIMESTAMP,
			kind TEXT,
			symbol TEXT,
			side TEXT,
			order_type TEXT,
			quantity TEXT,
			price DOUBLE,
			success BOOLEAN,
			detail TEXT
		)
	`)
	if err != nil {
		j.db.Close()

		return fmt.Errorf("failed to create activity table: %w", err)
	}

	// Load existing data from parquet file if it exists. A corrupt or
	// incompatible file starts the journal fresh.
	if _, err := os.Stat(j.outputPath); err == nil {
		_, _ = j.db.Exec(fmt.Sprintf(`
			INSERT INTO activity
			SELECT * FROM read_parquet(%s)
			ON CONFLICT (id) DO NOTHING
		`, quoteSQLString(j.outputPath)))
	}

	return nil
}

// Record persists an entry and exports to parquet.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return fmt.Errorf("journal not initialized")
	}

	query, args, err := sq.Insert("activity").
		Columns("id", "ts", "kind", "symbol", "side", "order_type", "quantity", "price", "success", "detail").
		Values(entry.ID, entry.Timestamp, string(entry.Kind), entry.Symbol, string(entry.Side),
			string(entry.OrderType), entry.Quantity, entry.Price, entry.Success, entry.Detail).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	// Export to parquet after each write
	if err := j.exportToParquet(); err != nil {
		return fmt.Errorf("failed to export to parquet: %w", err)
	}

	return nil
}

// History returns the most recent entries, newest first.
func (j *Journal) History(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}

	query, args, err := sq.Select("id", "ts", "kind", "symbol", "side", "order_type", "quantity", "price", "success", "detail").
		From("activity").
		OrderBy("ts DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)

	for rows.Next() {
		var (
			entry     Entry
			kind      string
			side      string
			orderType string
		)

		if err := rows.Scan(&entry.ID, &entry.Timestamp, &kind, &entry.Symbol, &side,
			&orderType, &entry.Quantity, &entry.Price, &entry.Success, &entry.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}

		entry.Kind = Kind(kind)
		entry.Side = types.Side(side)
		entry.OrderType = types.OrderType(orderType)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity rows: %w", err)
	}

	return entries, nil
}

// GetOutputPath returns the parquet file path.
func (j *Journal) GetOutputPath() string {
	return j.outputPath
}

// Close releases database resources.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db != nil {
		if err := j.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}

		j.db = nil
	}

	return nil
}

// exportToParquet exports the current data to the parquet file.
func (j *Journal) exportToParquet() error {
	_, err := j.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM activity ORDER BY ts ASC)
		TO %s (FORMAT PARQUET)
	`, quoteSQLString(j.outputPath)))
	if err != nil {
		return fmt.Errorf("failed to export to parquet: %w", err)
	}

	return nil
}

// quoteSQLString renders s as a single-quoted SQL string literal. DuckDB has
// no placeholder support for COPY and read_parquet targets, so the path is
// inlined with quotes doubled.
func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
