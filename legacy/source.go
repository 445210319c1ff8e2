/*
source.go - Read adapter over the legacy key/value store

PURPOSE:
  The importer consumes the predecessor storage through this adapter:
  enumerate keys, read raw values. The production implementation reads a
  bbolt file left behind by the old deployment; tests use an in-memory
  map.

UNAVAILABILITY:
  A missing or unopenable legacy file surfaces as ErrUnavailable. The
  importer treats that as "nothing to migrate" and still sets the
  completion marker - a terminal success, not an error.

SEE ALSO:
  - importer.go: the only consumer
*/
package legacy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrUnavailable marks a legacy store that cannot be reached at all.
var ErrUnavailable = errors.New("legacy store unavailable")

// Source reads the legacy key/value store.
type Source interface {
	// Keys enumerates every key, in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Get returns the raw value for a key.
	Get(ctx context.Context, key string) ([]byte, error)
}

// =============================================================================
// BOLT SOURCE - The real legacy file
// =============================================================================

// legacyBucket is the bucket the old deployment wrote its entries into.
const legacyBucket = "legacy"

// BoltSource reads the legacy bbolt file. The file is opened read-only
// per call; the importer runs once, so there is nothing to cache.
type BoltSource struct {
	path string
}

func NewBoltSource(path string) *BoltSource {
	return &BoltSource{path: path}
}

func (s *BoltSource) withDB(fn func(*bolt.DB) error) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer db.Close()

	return fn(db)
}

func (s *BoltSource) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.withDB(func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(legacyBucket))
			if b == nil {
				// An empty legacy file means nothing to migrate.
				return nil
			}
			return b.ForEach(func(k, _ []byte) error {
				keys = append(keys, string(k))
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *BoltSource) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.withDB(func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(legacyBucket))
			if b == nil {
				return fmt.Errorf("legacy key %q not found", key)
			}
			v := b.Get([]byte(key))
			if v == nil {
				return fmt.Errorf("legacy key %q not found", key)
			}
			data = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// =============================================================================
// MAP SOURCE - In-memory implementation (for testing)
// =============================================================================

type MapSource struct {
	Entries     map[string][]byte
	Unavailable bool
}

func (s *MapSource) Keys(_ context.Context) ([]string, error) {
	if s.Unavailable {
		return nil, ErrUnavailable
	}
	keys := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MapSource) Get(_ context.Context, key string) ([]byte, error) {
	if s.Unavailable {
		return nil, ErrUnavailable
	}
	v, ok := s.Entries[key]
	if !ok {
		return nil, fmt.Errorf("legacy key %q not found", key)
	}
	return v, nil
}
