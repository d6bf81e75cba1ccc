package sqlite

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/backend/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance_Memory(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		b, err := Open(context.Background(), MemoryPath)
		require.NoError(t, err)
		return b
	})
}

func TestConformance_File(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		b, err := Open(context.Background(), filepath.Join(t.TempDir(), "vecscan.sqlite"))
		require.NoError(t, err)
		return b
	})
}

func TestSnapshot_Restorable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, filepath.Join(dir, "src.sqlite"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Update(ctx, "r", func(tx backend.Tx) error {
		return tx.Put("a", []byte("1"))
	}))

	var buf bytes.Buffer
	n, err := b.Snapshot(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	restored := filepath.Join(dir, "restored.sqlite")
	require.NoError(t, os.WriteFile(restored, buf.Bytes(), 0o600))

	r, err := Open(ctx, restored)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.View(ctx, "r", func(tx backend.Tx) error {
		v, err := tx.Get("a")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), v)
		return nil
	}))
}
