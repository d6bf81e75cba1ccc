// Package backend defines the ordered, transactional key-value store that
// records are persisted in.
//
// A Backend groups keys into named buckets. Every access happens inside a
// transaction: View opens a read-only transaction that observes a consistent
// snapshot, Update opens a read-write transaction that commits when fn
// returns nil and rolls back as a whole when fn returns an error (or panics).
//
// Implementations live in the subpackages bolt (bbolt), sqlite
// (modernc.org/sqlite) and memory (copy-on-write B-tree).
package backend

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrKeyExists is returned by Tx.Add when the key is already present.
	ErrKeyExists = errors.New("key already exists")
	// ErrKeyNotFound is returned by Tx.Get when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrReadOnly is returned by mutating calls inside a View transaction.
	ErrReadOnly = errors.New("read-only transaction")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("backend closed")
)

// Tx is a transaction scope over one bucket.
//
// Byte slices returned by Get and passed to ForEach are only valid until the
// transaction ends; callers that retain them must copy.
type Tx interface {
	// Add inserts key, failing with ErrKeyExists if it is present.
	Add(key string, value []byte) error
	// Put inserts or replaces key.
	Put(key string, value []byte) error
	// Get returns the value of key or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// ForEach calls fn for every key in ascending byte order. A non-nil
	// error from fn stops the iteration and is returned. fn must not
	// mutate the transaction.
	ForEach(fn func(key string, value []byte) error) error
	// Keys returns every key in ascending byte order.
	Keys() ([]string, error)
}

// Backend is an ordered, transactional key-value store.
type Backend interface {
	// View runs fn in a read-only transaction on bucket. A bucket that was
	// never written is empty.
	View(ctx context.Context, bucket string, fn func(Tx) error) error
	// Update runs fn in a read-write transaction on bucket, creating the
	// bucket if needed.
	Update(ctx context.Context, bucket string, fn func(Tx) error) error
	// Close releases the backend.
	Close() error
}

// Snapshotter is implemented by backends that can write a consistent copy of
// their whole state to w.
type Snapshotter interface {
	Snapshot(ctx context.Context, w io.Writer) (int64, error)
}
