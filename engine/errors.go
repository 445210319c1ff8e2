/*
errors.go - Centralized error types for the persistence engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers should match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Lifecycle errors - use before Init, seed fetch failures
  2. Snapshot errors  - schema guard rejections
  3. Transaction errors - rolled-back multi-statement writes

SEE ALSO:
  - engine.go: where these are returned
  - legacy/importer.go: the importer's own error taxonomy
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotInitialized is returned by any query or write issued before
	// Init completes. Never retried internally; always surfaced.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrSeedUnavailable is returned when the seed image cannot be
	// fetched. Fatal at Init: no usable handle results.
	ErrSeedUnavailable = errors.New("seed image unavailable")

	// ErrSchemaMismatch indicates a snapshot missing required tables.
	// At Init time this is recovered by reseeding and only logged;
	// RestoreSnapshot surfaces it, since the operator chose the bytes.
	ErrSchemaMismatch = errors.New("snapshot schema mismatch")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransactionError reports a failed operation inside Transaction.
// All changes made within the transaction were rolled back and the
// dirty flag is exactly as it was before the transaction started.
type TransactionError struct {
	OpIndex int    // zero-based index of the failing operation
	SQL     string // the failing statement
	Cause   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction rolled back at operation %d: %v", e.OpIndex, e.Cause)
}

func (e *TransactionError) Unwrap() error {
	return e.Cause
}
