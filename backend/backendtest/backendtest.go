// Package backendtest provides a conformance suite for backend.Backend
// implementations.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/vecscan/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty backend. The suite closes it.
type Factory func(t *testing.T) backend.Backend

// Run executes the conformance suite against backends produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, b backend.Backend)
	}{
		{"AddPutGet", testAddPutGet},
		{"AddDuplicate", testAddDuplicate},
		{"DeleteMissingIsNoop", testDeleteMissing},
		{"Rollback", testRollback},
		{"KeyOrder", testKeyOrder},
		{"BucketIsolation", testBucketIsolation},
		{"ReadOnlyView", testReadOnlyView},
		{"EmptyBucket", testEmptyBucket},
		{"ForEachStops", testForEachStops},
		{"CanceledContext", testCanceledContext},
		{"ConcurrentReaders", testConcurrentReaders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := open(t)
			defer func() { _ = b.Close() }()
			tt.fn(t, b)
		})
	}
}

const bucket = "records"

func get(t *testing.T, b backend.Backend, key string) ([]byte, error) {
	t.Helper()
	var (
		out []byte
		err error
	)
	verr := b.View(context.Background(), bucket, func(tx backend.Tx) error {
		v, gerr := tx.Get(key)
		err = gerr
		if gerr == nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	require.NoError(t, verr)
	return out, err
}

func keys(t *testing.T, b backend.Backend, name string) []string {
	t.Helper()
	var out []string
	require.NoError(t, b.View(context.Background(), name, func(tx backend.Tx) error {
		var err error
		out, err = tx.Keys()
		return err
	}))
	return out
}

func testAddPutGet(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		if err := tx.Add("a", []byte("1")); err != nil {
			return err
		}
		// Writes are visible inside the transaction.
		v, err := tx.Get("a")
		if err != nil {
			return err
		}
		if string(v) != "1" {
			return fmt.Errorf("unexpected value %q", v)
		}
		return tx.Put("b", []byte("2"))
	}))

	v, err := get(t, b, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		return tx.Put("a", []byte("3"))
	}))
	v, err = get(t, b, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)

	_, err = get(t, b, "missing")
	assert.ErrorIs(t, err, backend.ErrKeyNotFound)
}

func testAddDuplicate(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		return tx.Add("a", []byte("1"))
	}))

	err := b.Update(ctx, bucket, func(tx backend.Tx) error {
		return tx.Add("a", []byte("2"))
	})
	require.ErrorIs(t, err, backend.ErrKeyExists)

	v, err := get(t, b, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func testDeleteMissing(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		if err := tx.Put("a", []byte("1")); err != nil {
			return err
		}
		if err := tx.Delete("a"); err != nil {
			return err
		}
		return tx.Delete("never-existed")
	}))
	assert.Empty(t, keys(t, b, bucket))
}

func testRollback(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		return tx.Put("keep", []byte("1"))
	}))

	boom := errors.New("boom")
	err := b.Update(ctx, bucket, func(tx backend.Tx) error {
		if err := tx.Put("x", []byte("1")); err != nil {
			return err
		}
		if err := tx.Put("y", []byte("2")); err != nil {
			return err
		}
		if err := tx.Delete("keep"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"keep"}, keys(t, b, bucket))
}

func testKeyOrder(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	in := []string{"b", "10", "a", "2", "B", "1"}
	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		for _, k := range in {
			if err := tx.Put(k, []byte(k)); err != nil {
				return err
			}
		}
		return nil
	}))

	want := []string{"1", "10", "2", "B", "a", "b"}
	assert.Equal(t, want, keys(t, b, bucket))

	var seen []string
	require.NoError(t, b.View(ctx, bucket, func(tx backend.Tx) error {
		return tx.ForEach(func(key string, value []byte) error {
			if key != string(value) {
				return fmt.Errorf("value mismatch for %q", key)
			}
			seen = append(seen, key)
			return nil
		})
	}))
	assert.Equal(t, want, seen)
}

func testBucketIsolation(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, "one", func(tx backend.Tx) error {
		return tx.Put("k", []byte("1"))
	}))
	require.NoError(t, b.Update(ctx, "two", func(tx backend.Tx) error {
		return tx.Add("k", []byte("2"))
	}))

	assert.Equal(t, []string{"k"}, keys(t, b, "one"))
	assert.Equal(t, []string{"k"}, keys(t, b, "two"))
	assert.Empty(t, keys(t, b, "three"))
}

func testReadOnlyView(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		return tx.Put("a", []byte("1"))
	}))

	err := b.View(ctx, bucket, func(tx backend.Tx) error {
		return tx.Put("b", []byte("2"))
	})
	require.ErrorIs(t, err, backend.ErrReadOnly)

	err = b.View(ctx, bucket, func(tx backend.Tx) error {
		return tx.Delete("a")
	})
	require.ErrorIs(t, err, backend.ErrReadOnly)

	assert.Equal(t, []string{"a"}, keys(t, b, bucket))
}

func testEmptyBucket(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.View(ctx, "nothing-here", func(tx backend.Tx) error {
		_, err := tx.Get("a")
		assert.ErrorIs(t, err, backend.ErrKeyNotFound)

		k, err := tx.Keys()
		assert.NoError(t, err)
		assert.Empty(t, k)

		return tx.ForEach(func(string, []byte) error {
			return errors.New("unexpected entry")
		})
	}))
}

func testForEachStops(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		for i := range 5 {
			if err := tx.Put(fmt.Sprint(i), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	}))

	stop := errors.New("stop")
	visited := 0
	err := b.View(ctx, bucket, func(tx backend.Tx) error {
		return tx.ForEach(func(string, []byte) error {
			visited++
			if visited == 2 {
				return stop
			}
			return nil
		})
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 2, visited)
}

func testCanceledContext(t *testing.T, b backend.Backend) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := b.Update(ctx, bucket, func(tx backend.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	err = b.View(ctx, bucket, func(tx backend.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func testConcurrentReaders(t *testing.T, b backend.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, bucket, func(tx backend.Tx) error {
		for i := range 50 {
			if err := tx.Put(fmt.Sprintf("k%02d", i), []byte("v")); err != nil {
				return err
			}
		}
		return nil
	}))

	var wg sync.WaitGroup
	counts := make([]int, 8)
	for w := range counts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.View(ctx, bucket, func(tx backend.Tx) error {
				return tx.ForEach(func(string, []byte) error {
					counts[w]++
					return nil
				})
			})
		}()
	}
	wg.Wait()

	for _, c := range counts {
		assert.Equal(t, 50, c)
	}
}
