/*
engine.go - Durable-persistence and transaction engine

PURPOSE:
  Owns the single live in-memory SQLite handle and its durability: every
  committed write marks the snapshot dirty and persists the full binary
  image to the blob store. There is no write-ahead log; the image is small
  (a few thousand rows) and persisted wholesale. This is a deliberate
  simplification, not an oversight.

OWNERSHIP:
  Exactly one live handle exists per Engine, and the Engine is owned by
  the caller; there is no package-level singleton. No other component
  holds a reference to the snapshot bytes except transiently during
  persist and restore.

DIRTY FLAG:
  The sole coordination primitive between "did the in-memory state
  change" and "has durable state been updated". Persist is a no-op
  unless the flag is set, so repeated calls with no intervening write
  hit the blob store at most once per dirty period.

INIT SEQUENCE:
  1. Load the snapshot blob
  2. No blob        -> fetch seed image, persist it
  3. Blob present   -> deserialize, run the schema guard
  4. Guard rejects  -> discard, reseed as in step 2 (logged, not an error)

CONCURRENCY:
  All operations serialize through a mutex. The workload is a single
  cooperative writer; the mutex makes that safe to hold even if an HTTP
  handler and the importer overlap.

SEE ALSO:
  - guard.go: the reseed decision
  - seed.go: seed sources and the canonical schema
  - blob/blob.go: the durability interface
*/
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hearth/gasbook/blob"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result reports the effect of a single write statement.
type Result struct {
	RowsChanged  int64
	LastInsertID int64
}

// Op is one write statement inside a Transaction.
type Op struct {
	SQL  string
	Args []any
}

// Engine wraps the live database handle and snapshots it to a blob store.
type Engine struct {
	mu       sync.Mutex
	blobs    blob.Store
	blobName string
	seed     SeedSource

	db   *sql.DB
	conn *sql.Conn

	dirty       bool
	initialized bool
}

// New creates an Engine persisting under blobName. Call Init before use.
func New(blobs blob.Store, blobName string, seed SeedSource) *Engine {
	return &Engine{blobs: blobs, blobName: blobName, seed: seed}
}

// Init loads the snapshot from the blob store, reseeding when no snapshot
// exists or the schema guard rejects it. Calling Init again after success
// returns the already-initialized handle without side effects. A seed
// fetch failure is fatal: no usable handle is left behind.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	db, err := sql.Open(driverName, memoryDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection would see a second, empty in-memory database.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	e.db, e.conn = db, conn

	if err := e.loadLocked(ctx); err != nil {
		conn.Close()
		db.Close()
		e.db, e.conn = nil, nil
		return err
	}

	e.initialized = true
	return nil
}

// loadLocked restores the stored snapshot into the live connection, or
// reseeds when there is none or it fails the schema guard.
func (e *Engine) loadLocked(ctx context.Context) error {
	data, err := e.blobs.Get(ctx, e.blobName)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		return e.reseedLocked(ctx)
	case err != nil:
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := deserializeConn(e.conn, data); err != nil {
		// An unreadable image is as good as a missing one.
		log.Printf("engine: stored snapshot unreadable, reseeding: %v", err)
		return e.reseedLocked(ctx)
	}
	if err := e.afterLoadLocked(ctx); err != nil {
		return err
	}

	// A catalog read failure means the image is not a database at all;
	// either way the snapshot is unusable and the seed takes over.
	current, err := schemaCurrent(ctx, e.conn)
	if err != nil || !current {
		log.Printf("engine: stored snapshot rejected by schema guard, reseeding")
		return e.reseedLocked(ctx)
	}

	e.dirty = false
	return nil
}

// reseedLocked fetches the seed image, installs it, and persists it.
func (e *Engine) reseedLocked(ctx context.Context) error {
	data, err := e.seed.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrSeedUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrSeedUnavailable, err)
	}

	if err := deserializeConn(e.conn, data); err != nil {
		return fmt.Errorf("%w: %v", ErrSeedUnavailable, err)
	}
	if err := e.afterLoadLocked(ctx); err != nil {
		return err
	}

	e.dirty = true
	return e.persistLocked(ctx)
}

// afterLoadLocked re-applies per-connection settings that deserialization
// does not carry over.
func (e *Engine) afterLoadLocked(ctx context.Context) error {
	if _, err := e.conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}

// Query executes a read-only statement and returns the result rows in order.
func (e *Engine) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, ErrNotInitialized
	}

	rows, err := e.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Run executes a single write statement, marks the snapshot dirty, and
// persists. A statement failure propagates without marking dirty.
func (e *Engine) Run(ctx context.Context, query string, args ...any) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return Result{}, ErrNotInitialized
	}

	res, err := e.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}

	changed, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()

	e.dirty = true
	if err := e.persistLocked(ctx); err != nil {
		return Result{}, err
	}
	return Result{RowsChanged: changed, LastInsertID: lastID}, nil
}

// Transaction applies the operations atomically. On any failure every
// change is rolled back, a TransactionError wrapping the cause is
// returned, and the dirty flag is left exactly as it was. On success the
// snapshot is marked dirty exactly once and persisted exactly once.
func (e *Engine) Transaction(ctx context.Context, ops []Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	tx, err := e.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, op := range ops {
		if _, err := tx.ExecContext(ctx, op.SQL, op.Args...); err != nil {
			_ = tx.Rollback()
			return &TransactionError{OpIndex: i, SQL: op.SQL, Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	e.dirty = true
	return e.persistLocked(ctx)
}

// Persist writes the snapshot to the blob store if, and only if, the
// dirty flag is set.
func (e *Engine) Persist(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}
	return e.persistLocked(ctx)
}

func (e *Engine) persistLocked(ctx context.Context) error {
	if !e.dirty {
		return nil
	}

	data, err := serializeConn(e.conn)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	if err := e.blobs.Put(ctx, e.blobName, data); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	e.dirty = false
	return nil
}

// ExportSnapshot returns the complete binary image for manual backup.
func (e *Engine) ExportSnapshot(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, ErrNotInitialized
	}
	return serializeConn(e.conn)
}

// RestoreSnapshot replaces the live handle with the given image and
// re-persists. The image is guard-validated before anything is replaced,
// so a bad backup never destroys the live state.
func (e *Engine) RestoreSnapshot(ctx context.Context, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	if err := validateImage(ctx, data); err != nil {
		return err
	}

	if err := deserializeConn(e.conn, data); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	if err := e.afterLoadLocked(ctx); err != nil {
		return err
	}

	e.dirty = true
	return e.persistLocked(ctx)
}

// validateImage checks an incoming image against the schema guard on a
// scratch connection.
func validateImage(ctx context.Context, data []byte) error {
	db, err := sql.Open(driverName, memoryDSN)
	if err != nil {
		return fmt.Errorf("failed to open scratch database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire scratch connection: %w", err)
	}
	defer conn.Close()

	if err := deserializeConn(conn, data); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	current, err := schemaCurrent(ctx, conn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if !current {
		return ErrSchemaMismatch
	}
	return nil
}

// Close releases the database handle. The Engine is unusable afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}
	e.initialized = false

	if err := e.conn.Close(); err != nil {
		e.db.Close()
		return err
	}
	return e.db.Close()
}
