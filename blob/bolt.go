package blob

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// bucketBlobs holds every named blob; keys are blob names, values the raw bytes.
const bucketBlobs = "blobs"

// Bolt is a bbolt-backed Store. A single file holds all named blobs.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the blob file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketBlobs))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create blob bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the underlying file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Get returns the blob stored under name, or ErrNotFound.
func (b *Bolt) Get(_ context.Context, name string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketBlobs)).Get([]byte(name))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put replaces the blob stored under name.
func (b *Bolt) Put(_ context.Context, name string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketBlobs)).Put([]byte(name), data)
	})
}
