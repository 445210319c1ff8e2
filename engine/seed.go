/*
seed.go - Seed image sources and the canonical schema

PURPOSE:
  The engine loads its first snapshot from a seed image: a complete
  serialized database containing at least the required tables. The seed
  is fetched from a fixed location on first run and again whenever the
  schema guard rejects a loaded snapshot.

SOURCES:
  FileSeed: reads the image from a file path (the deployed fixed location)
  DDLSeed:  builds a fresh image from the canonical schema in memory;
            used to generate the seed file and by tests

SEE ALSO:
  - engine.go: Init consumes a SeedSource
  - guard.go: the floor the seed must satisfy
*/
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// Schema is the canonical DDL for the ledger. Quantities and amounts are
// stored as TEXT and parsed as decimals by the callers that read them.
const Schema = `
	CREATE TABLE IF NOT EXISTS company (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS days (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL UNIQUE,
		opening_stock TEXT NOT NULL DEFAULT '0',
		unit_price TEXT NOT NULL DEFAULT '0'
	);

	-- Sales are exclusively owned by their day. seq is a dense 1..n
	-- sequence per day; deleting a day cascades to its sales.
	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day_id INTEGER NOT NULL REFERENCES days(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		kg TEXT NOT NULL DEFAULT '0',
		price TEXT NOT NULL DEFAULT '0',
		comments TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sales_day_seq ON sales(day_id, seq);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT NOT NULL UNIQUE,
		value TEXT NOT NULL DEFAULT ''
	);

	-- The single company profile row always exists.
	INSERT OR IGNORE INTO company (id, name, phone, address, updated_at)
		VALUES (1, '', '', '', '');
`

// SeedSource fetches a complete database image to initialize from.
type SeedSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// =============================================================================
// FILE SEED - The deployed fixed location
// =============================================================================

// FileSeed reads the seed image from a file path.
type FileSeed string

func (f FileSeed) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedUnavailable, err)
	}
	return data, nil
}

// =============================================================================
// DDL SEED - Build a fresh image from the canonical schema
// =============================================================================

// DDLSeed builds a seed image in memory from a DDL script.
type DDLSeed struct {
	DDL string
}

// NewDDLSeed returns a DDLSeed over the canonical schema.
func NewDDLSeed() DDLSeed {
	return DDLSeed{DDL: Schema}
}

func (d DDLSeed) Fetch(ctx context.Context) ([]byte, error) {
	db, err := sql.Open(driverName, memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedUnavailable, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedUnavailable, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, d.DDL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedUnavailable, err)
	}

	data, err := serializeConn(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedUnavailable, err)
	}
	return data, nil
}
