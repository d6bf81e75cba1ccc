// Package bolt implements backend.Backend on top of go.etcd.io/bbolt.
//
// Each bucket maps to a bbolt bucket; keys are stored as their UTF-8 bytes,
// so iteration follows byte order.
package bolt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/vecscan/backend"
	bolt "go.etcd.io/bbolt"
)

// Compile time checks.
var (
	_ backend.Backend     = (*Backend)(nil)
	_ backend.Snapshotter = (*Backend)(nil)
)

// Options configures Open.
type Options struct {
	// Timeout is how long Open waits for the file lock. Zero waits forever.
	Timeout time.Duration
	// NoSync skips fsync after each commit. Only for tests and bulk loads.
	NoSync bool
}

// Backend is a bbolt-backed backend.
type Backend struct {
	db *bolt.DB
}

// Open opens (creating if needed) the bbolt file at path.
func Open(path string, opts *Options) (*Backend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	boltOpts := &bolt.Options{Timeout: time.Second}
	if opts != nil {
		boltOpts.Timeout = opts.Timeout
		boltOpts.NoSync = opts.NoSync
	}

	db, err := bolt.Open(path, 0o600, boltOpts)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return &Backend{db: db}, nil
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.db.Path()
}

// View runs fn in a read-only bbolt transaction.
func (b *Backend) View(ctx context.Context, bucket string, fn func(backend.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{bucket: tx.Bucket([]byte(bucket))})
	})
}

// Update runs fn in a read-write bbolt transaction. bbolt rolls the
// transaction back when fn returns an error.
func (b *Backend) Update(ctx context.Context, bucket string, fn func(backend.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		return fn(&boltTx{bucket: bkt, writable: true})
	})
}

// Snapshot streams a consistent copy of the database file to w.
func (b *Backend) Snapshot(ctx context.Context, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	return n, err
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

type boltTx struct {
	bucket   *bolt.Bucket // nil for a View on a missing bucket
	writable bool
}

func (t *boltTx) Add(key string, value []byte) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	if t.bucket.Get([]byte(key)) != nil {
		return fmt.Errorf("%w: %q", backend.ErrKeyExists, key)
	}
	return t.bucket.Put([]byte(key), value)
}

func (t *boltTx) Put(key string, value []byte) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	return t.bucket.Put([]byte(key), value)
}

func (t *boltTx) Get(key string) ([]byte, error) {
	if t.bucket == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrKeyNotFound, key)
	}
	v := t.bucket.Get([]byte(key))
	if v == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrKeyNotFound, key)
	}
	return v, nil
}

func (t *boltTx) Delete(key string) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	return t.bucket.Delete([]byte(key))
}

func (t *boltTx) ForEach(fn func(key string, value []byte) error) error {
	if t.bucket == nil {
		return nil
	}
	return t.bucket.ForEach(func(k, v []byte) error {
		if v == nil {
			return nil // nested bucket
		}
		return fn(string(k), v)
	})
}

func (t *boltTx) Keys() ([]string, error) {
	var keys []string
	err := t.ForEach(func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	return keys, err
}
