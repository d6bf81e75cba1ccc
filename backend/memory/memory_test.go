package memory

import (
	"context"
	"testing"

	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/backend/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend { return New() })
}

func TestView_IsolatedFromLaterWrites(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Update(ctx, "r", func(tx backend.Tx) error {
		return tx.Put("a", []byte("1"))
	}))

	err := b.View(ctx, "r", func(view backend.Tx) error {
		// A write committed while the view is open is not visible to it.
		require.NoError(t, b.Update(ctx, "r", func(tx backend.Tx) error {
			return tx.Put("b", []byte("2"))
		}))

		k, err := view.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, k)
		return nil
	})
	require.NoError(t, err)
}

func TestPut_CopiesValue(t *testing.T) {
	ctx := context.Background()
	b := New()

	buf := []byte("abc")
	require.NoError(t, b.Update(ctx, "r", func(tx backend.Tx) error {
		return tx.Put("a", buf)
	}))
	buf[0] = 'x'

	require.NoError(t, b.View(ctx, "r", func(tx backend.Tx) error {
		v, err := tx.Get("a")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), v)
		return nil
	}))
}

func TestClosed(t *testing.T) {
	b := New()
	require.NoError(t, b.Close())

	err := b.View(context.Background(), "r", func(backend.Tx) error { return nil })
	assert.ErrorIs(t, err, backend.ErrClosed)
	err = b.Update(context.Background(), "r", func(backend.Tx) error { return nil })
	assert.ErrorIs(t, err, backend.ErrClosed)
}
