package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecscan/internal/fs"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("CreateAndOpen", func(t *testing.T) {
		w, err := store.Create(ctx, "snapshots/a.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("hello "))
		require.NoError(t, err)
		_, err = w.Write([]byte("world"))
		require.NoError(t, err)

		_, err = store.Open(ctx, "snapshots/a.bin")
		require.ErrorIs(t, err, ErrNotFound, "blob is not visible before Close")

		require.NoError(t, w.Close())
		assert.Error(t, w.Close())

		r, err := store.Open(ctx, "snapshots/a.bin")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(data))
	})

	t.Run("Abort", func(t *testing.T) {
		w, err := store.Create(ctx, "snapshots/aborted.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("partial"))
		require.NoError(t, err)
		require.NoError(t, w.Abort())

		_, err = store.Open(ctx, "snapshots/aborted.bin")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "manifest.json", []byte("v1")))
		require.NoError(t, store.Put(ctx, "manifest.json", []byte("v2")))

		r, err := store.Open(ctx, "manifest.json")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(data))
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "snapshots/b.bin", []byte("b")))

		names, err := store.List(ctx, "snapshots/")
		require.NoError(t, err)
		assert.Equal(t, []string{"snapshots/a.bin", "snapshots/b.bin"}, names)

		all, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "snapshots/b.bin"))
		require.NoError(t, store.Delete(ctx, "snapshots/b.bin"))

		_, err := store.Open(ctx, "snapshots/b.bin")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	testStore(t, NewLocalStore(dir))

	entries, err := os.ReadDir(filepath.Join(dir, "snapshots"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "no temp files left behind")
	}
}

func TestLocalStore_InvalidName(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "../escape", "/abs"} {
		_, err := store.Create(ctx, name)
		assert.Error(t, err, name)
	}
}

func TestLocalStore_MissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_Faults(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		fault fs.Fault
	}{
		{"Write", fs.Fault{FailAfterBytes: 2}},
		{"Sync", fs.Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"Close", fs.Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"Rename", fs.Fault{FailAfterBytes: -1, FailOnRename: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ffs := fs.NewFaultyFS(nil)
			ffs.AddRule("a.bin", tt.fault)
			store := newLocalStore(dir, ffs)

			err := store.Put(ctx, "a.bin", []byte("payload"))
			require.ErrorIs(t, err, fs.ErrInjected)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "failed writes leave neither blob nor temp file")

			_, err = store.Open(ctx, "a.bin")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
