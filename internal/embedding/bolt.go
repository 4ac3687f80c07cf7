package embedding

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketVectors = []byte("vectors")

// BoltCache is a single-file local embedding cache.
type BoltCache struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) a bbolt cache at path.
func OpenBolt(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	var vec []float32
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVectors).Get([]byte(key))
		if data == nil {
			return nil
		}
		// data is only valid inside the transaction; decodeVector copies.
		v, err := decodeVector(data)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return vec, vec != nil, nil
}

func (c *BoltCache) Set(_ context.Context, key string, vec []float32) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).Put([]byte(key), encodeVector(vec))
	})
}

// Len returns the number of cached vectors.
func (c *BoltCache) Len() int {
	n := 0
	_ = c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketVectors).Stats().KeyN
		return nil
	})
	return n
}

// Close releases the file lock.
func (c *BoltCache) Close() error {
	return c.db.Close()
}
