// Package memory implements backend.Backend in process memory using
// copy-on-write B-trees from github.com/google/btree.
//
// View transactions read a lazily cloned snapshot of the bucket, so they
// never observe a concurrent write. Update transactions mutate a private
// clone that replaces the bucket only on commit; a failed transaction simply
// drops its clone.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/hupe1980/vecscan/backend"
)

// Compile time check.
var _ backend.Backend = (*Backend)(nil)

const degree = 32

type entry struct {
	key   string
	value []byte
}

func (e entry) Less(than btree.Item) bool {
	return e.key < than.(entry).key
}

// Backend is an in-memory backend.
type Backend struct {
	writeMu sync.Mutex // serialises Update

	mu      sync.Mutex // guards buckets and closed; btree.Clone is not concurrent-safe
	buckets map[string]*btree.BTree
	closed  bool
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{buckets: make(map[string]*btree.BTree)}
}

func (b *Backend) snapshot(bucket string) (*btree.BTree, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, backend.ErrClosed
	}
	t, ok := b.buckets[bucket]
	if !ok {
		return btree.New(degree), nil
	}
	return t.Clone(), nil
}

// View runs fn against a snapshot of bucket.
func (b *Backend) View(ctx context.Context, bucket string, fn func(backend.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := b.snapshot(bucket)
	if err != nil {
		return err
	}
	return fn(&memTx{tree: t})
}

// Update runs fn against a private clone of bucket and publishes the clone
// when fn returns nil.
func (b *Backend) Update(ctx context.Context, bucket string, fn func(backend.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	t, err := b.snapshot(bucket)
	if err != nil {
		return err
	}
	if err := fn(&memTx{tree: t, writable: true}); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return backend.ErrClosed
	}
	b.buckets[bucket] = t
	return nil
}

// Close drops all data.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.buckets = nil
	return nil
}

type memTx struct {
	tree     *btree.BTree
	writable bool
}

func (t *memTx) Add(key string, value []byte) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	if t.tree.Has(entry{key: key}) {
		return fmt.Errorf("%w: %q", backend.ErrKeyExists, key)
	}
	t.tree.ReplaceOrInsert(entry{key: key, value: clone(value)})
	return nil
}

func (t *memTx) Put(key string, value []byte) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	t.tree.ReplaceOrInsert(entry{key: key, value: clone(value)})
	return nil
}

func (t *memTx) Get(key string) ([]byte, error) {
	item := t.tree.Get(entry{key: key})
	if item == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrKeyNotFound, key)
	}
	return item.(entry).value, nil
}

func (t *memTx) Delete(key string) error {
	if !t.writable {
		return backend.ErrReadOnly
	}
	t.tree.Delete(entry{key: key})
	return nil
}

func (t *memTx) ForEach(fn func(key string, value []byte) error) error {
	var err error
	t.tree.Ascend(func(i btree.Item) bool {
		e := i.(entry)
		err = fn(e.key, e.value)
		return err == nil
	})
	return err
}

func (t *memTx) Keys() ([]string, error) {
	keys := make([]string, 0, t.tree.Len())
	t.tree.Ascend(func(i btree.Item) bool {
		keys = append(keys, i.(entry).key)
		return true
	})
	return keys, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
