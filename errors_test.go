package vecscan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecscan/backend"
)

func TestTranslateError(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		in    error
		is    []error
		isNot []error
	}{
		{"KeyExists", backend.ErrKeyExists, []error{ErrDuplicateIdentifier, backend.ErrKeyExists}, []error{ErrBackendFailure}},
		{"KeyNotFound", backend.ErrKeyNotFound, []error{ErrNotFound, backend.ErrKeyNotFound}, []error{ErrBackendFailure}},
		{"BackendClosed", backend.ErrClosed, []error{ErrClosed}, []error{ErrBackendFailure}},
		{"Domain", ErrMissingIdentifier, []error{ErrMissingIdentifier}, []error{ErrBackendFailure}},
		{"LengthMismatch", ErrLengthMismatch, []error{ErrLengthMismatch}, []error{ErrBackendFailure}},
		{"Canceled", context.Canceled, []error{context.Canceled}, []error{ErrBackendFailure}},
		{"Unknown", boom, []error{boom}, []error{ErrBackendFailure}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			for _, target := range tt.is {
				assert.ErrorIs(t, got, target)
			}
			for _, target := range tt.isNot {
				assert.NotErrorIs(t, got, target)
			}
		})
	}

	assert.NoError(t, translateError(nil))
}

func TestBackendFailureTagging(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		in      error
		tagged  bool
		wrapped error
	}{
		{"Unknown", boom, true, boom},
		{"Decode", fmt.Errorf("decode with json: %w", boom), true, boom},
		{"KeyExists", backend.ErrKeyExists, false, backend.ErrKeyExists},
		{"BackendClosed", backend.ErrClosed, false, backend.ErrClosed},
		{"Domain", ErrNotFound, false, ErrNotFound},
		{"JoinedDomain", errors.Join(ErrNotFound, ErrMissingIdentifier), false, ErrMissingIdentifier},
		{"InvalidVector", ErrInvalidVector, false, ErrInvalidVector},
		{"Encode", &encodeError{boom}, false, boom},
		{"Deadline", context.DeadlineExceeded, false, context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backendFailure(tt.in)
			assert.ErrorIs(t, got, tt.wrapped)
			if tt.tagged {
				assert.ErrorIs(t, got, ErrBackendFailure)
			} else {
				assert.NotErrorIs(t, got, ErrBackendFailure)
			}
		})
	}

	assert.NoError(t, backendFailure(nil))
}

func TestOpError(t *testing.T) {
	err := opError("insert", "doc-1", backend.ErrKeyExists)

	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "insert", oe.Op)
	assert.Equal(t, "doc-1", oe.Key)
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.Contains(t, err.Error(), `vecscan: insert "doc-1"`)

	// An existing OpError is not wrapped twice.
	again := opError("outer", "", err)
	assert.Same(t, oe, again.(*OpError))

	assert.NoError(t, opError("insert", "x", nil))
	assert.Equal(t, "vecscan: count: store closed", (&OpError{Op: "count", Err: ErrClosed}).Error())
}
