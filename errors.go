package vecscan

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vecscan/accel"
	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/distance"
	"github.com/hupe1980/vecscan/quantization"
)

var (
	// ErrMissingIdentifier is returned when a write carries no ID.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrDuplicateIdentifier is returned when inserting an ID that is already stored.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrNotFound is returned when an item is not found.
	ErrNotFound = errors.New("not found")

	// ErrLengthMismatch is returned when vectors compared in one query differ
	// in length (dense) or bit length (packed).
	ErrLengthMismatch = distance.ErrLengthMismatch

	// ErrAccelerationUnavailable is returned when the accelerated module cannot
	// serve a call. Callers should retry with the scalar path.
	ErrAccelerationUnavailable = accel.ErrUnavailable

	// ErrBackendFailure wraps any error surfaced by the persistent backend.
	ErrBackendFailure = errors.New("backend failure")

	// ErrInvalidVector is returned when a vector to be stored has a NaN or
	// infinite component.
	ErrInvalidVector = errors.New("invalid vector")

	// ErrUnsupportedMetric is returned when a query names a metric the store
	// does not rank by.
	ErrUnsupportedMetric = errors.New("unsupported metric")

	// ErrNoEmbedder is returned when text must be embedded but no provider is configured.
	ErrNoEmbedder = errors.New("no embedder configured")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrAborted marks batch items that were valid but not applied because
	// another item in the same batch failed.
	ErrAborted = errors.New("batch aborted")
)

// OpError is the error returned by every Store operation.
//
// It records the operation and, where one applies, the record ID. The
// underlying error can be matched with errors.Is against the sentinels above.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("vecscan: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("vecscan: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Key: key, Err: translateError(err)}
}

// domainErrors are never tagged as backend failures.
var domainErrors = []error{
	ErrMissingIdentifier,
	ErrDuplicateIdentifier,
	ErrNotFound,
	ErrLengthMismatch,
	ErrAccelerationUnavailable,
	ErrBackendFailure,
	ErrNoEmbedder,
	ErrClosed,
	ErrAborted,
	ErrInvalidVector,
	ErrUnsupportedMetric,
	quantization.ErrMalformedBitVector,
	context.Canceled,
	context.DeadlineExceeded,
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, backend.ErrKeyExists) {
		return fmt.Errorf("%w: %w", ErrDuplicateIdentifier, err)
	}
	if errors.Is(err, backend.ErrKeyNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, backend.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// encodeError is a codec failure raised by the store inside a write
// transaction.
type encodeError struct{ err error }

func (e *encodeError) Error() string { return e.err.Error() }

func (e *encodeError) Unwrap() error { return e.err }

// backendFailure tags err with ErrBackendFailure unless it is one the store
// raised itself or one translateError maps to a domain error.
func backendFailure(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	if errors.Is(err, backend.ErrKeyExists) || errors.Is(err, backend.ErrKeyNotFound) || errors.Is(err, backend.ErrClosed) {
		return err
	}
	var ee *encodeError
	if errors.As(err, &ee) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendFailure, err)
}
