// Package embedding turns text into dense vectors.
//
// The store never computes embeddings itself; it calls a Provider. Lazy wraps
// a provider factory so that the (possibly expensive) initialisation happens
// once, on first use, and every caller shares its outcome.
package embedding

import (
	"context"
	"errors"

	"github.com/hupe1980/vecscan/distance"
)

// ErrEmptyText is returned when asked to embed empty text.
var ErrEmptyText = errors.New("embedding: empty text")

// ErrZeroVector is returned when a provider produces a vector that cannot be
// normalized.
var ErrZeroVector = errors.New("embedding: zero vector")

// Provider produces a mean-pooled, unit-normalized embedding for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// MeanPool averages token vectors component-wise and L2-normalizes the
// result. All token vectors must share one dimension.
func MeanPool(tokens [][]float32) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, ErrZeroVector
	}
	dim := len(tokens[0])
	sum := make([]float64, dim)
	for _, tok := range tokens {
		if len(tok) != dim {
			return nil, distance.ErrLengthMismatch
		}
		for i, x := range tok {
			sum[i] += float64(x)
		}
	}

	out := make([]float32, dim)
	inv := 1 / float64(len(tokens))
	for i, s := range sum {
		out[i] = float32(s * inv)
	}
	if !distance.NormalizeL2InPlace(out) {
		return nil, ErrZeroVector
	}
	return out, nil
}
