/*
blob.go - Named-blob persistence interface

PURPOSE:
  Defines the interface between the database engine and durable storage.
  The engine treats durability as "one named binary blob": the full
  serialized database image is written and read wholesale. Different
  implementations can use bbolt (production) or memory (testing).

CONTRACT:
  Get:  returns the current bytes for a name, or ErrNotFound.
  Put:  replaces the bytes for a name atomically.

  There is no partial update and no append. The engine's dirty-flag
  gating keeps redundant full-image writes to at most one per dirty
  period, so whole-blob replacement stays cheap at this scale.

IMPLEMENTATIONS:
  - blob/bolt.go:   bbolt-backed store (production)
  - blob/memory.go: in-memory store (tests)

SEE ALSO:
  - engine/engine.go: the only consumer of this interface
*/
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no blob exists under the name.
var ErrNotFound = errors.New("blob not found")

// Store persists named binary blobs.
type Store interface {
	// Get returns the blob stored under name, or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put replaces the blob stored under name.
	Put(ctx context.Context, name string, data []byte) error
}
