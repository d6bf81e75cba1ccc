package vecscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecscan/accel"
	"github.com/hupe1980/vecscan/backend"
	"github.com/hupe1980/vecscan/distance"
	"github.com/hupe1980/vecscan/internal/topk"
	"github.com/hupe1980/vecscan/quantization"
)

// QueryByVector ranks every record against query and returns the best limit
// hits.
//
// With distance.MetricCosine records with a dense vector are ranked by
// descending cosine similarity. With distance.MetricHamming the query is
// binarized at its median and records with a packed vector are ranked by
// ascending Hamming distance. Records without a vector of the metric's
// representation are skipped.
//
// limit <= 0 yields an empty result. Ties keep backend enumeration order;
// callers should not rely on the order of equal scores.
func (s *Store) QueryByVector(ctx context.Context, query []float32, metric distance.Metric, limit int) ([]Hit, error) {
	switch metric {
	case distance.MetricCosine:
		return s.queryDense(ctx, "queryByVector", query, limit, s.primary, slog.LevelDebug)
	case distance.MetricHamming:
		return s.queryBits(ctx, "queryByVector", quantization.Quantize(query), limit)
	default:
		return nil, opError("queryByVector", "", fmt.Errorf("%w: %s", ErrUnsupportedMetric, metric))
	}
}

// QueryByBits ranks packed records by ascending Hamming distance to query.
func (s *Store) QueryByBits(ctx context.Context, query quantization.BitVector, limit int) ([]Hit, error) {
	if err := query.Validate(); err != nil {
		return nil, opError("queryByBits", "", err)
	}
	return s.queryBits(ctx, "queryByBits", query, limit)
}

// QueryByText embeds text with the configured embedder and delegates to
// QueryByVector.
func (s *Store) QueryByText(ctx context.Context, text string, metric distance.Metric, limit int) ([]Hit, error) {
	if s.embedder == nil {
		return nil, opError("queryByText", "", ErrNoEmbedder)
	}
	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, opError("queryByText", "", err)
	}
	return s.QueryByVector(ctx, query, metric, limit)
}

// QueryManual ranks dense records by cosine similarity, resolving each
// record's vector from the configured field with a fallback to the default
// "vector" field. Records without a resolvable vector are skipped and logged
// at warn level.
func (s *Store) QueryManual(ctx context.Context, query []float32, limit int) ([]Hit, error) {
	return s.queryDense(ctx, "queryManual", query, limit, s.fallback, slog.LevelWarn)
}

// candidate is a decoded record awaiting scoring.
type candidate struct {
	seq int
	doc document
	vec vector
}

func toHits(items []topk.Item[document]) []Hit {
	hits := make([]Hit, len(items))
	for i, it := range items {
		hits[i] = Hit{ID: it.Value.ID, Score: it.Score, Attributes: it.Value.Attributes}
	}
	return hits
}

// scan decodes every record in one read transaction and passes those with a
// vector accepted by want to fn, in enumeration order.
func (s *Store) scan(ctx context.Context, acc accessor, want func(vector) bool, skipLevel slog.Level, fn func(candidate) error) (int, error) {
	scanned := 0
	err := s.view(ctx, func(tx backend.Tx) error {
		return tx.ForEach(func(key string, data []byte) error {
			d, err := s.decode(data)
			if err != nil {
				return err
			}
			scanned++

			v, ok := acc.resolve(d)
			if !ok {
				s.logger.LogSkip(ctx, skipLevel, key, "no vector")
				return nil
			}
			if !want(v) {
				s.logger.LogSkip(ctx, slog.LevelDebug, key, "vector representation does not match metric")
				return nil
			}
			return fn(candidate{seq: scanned - 1, doc: d, vec: v})
		})
	})
	return scanned, err
}

func (s *Store) queryDense(ctx context.Context, op string, query []float32, limit int, acc accessor, skipLevel slog.Level) (hits []Hit, err error) {
	start := time.Now()
	scanned := 0
	defer func() {
		s.metrics.RecordQuery(distance.MetricCosine.String(), scanned, time.Since(start), err)
		s.logger.LogQuery(ctx, distance.MetricCosine.String(), limit, scanned, len(hits), err)
	}()

	if limit <= 0 {
		return []Hit{}, nil
	}

	isDense := func(v vector) bool { return !v.isPacked() }

	if s.parallelism <= 1 {
		h := topk.New[document](limit, true)
		scanned, err = s.scan(ctx, acc, isDense, skipLevel, func(c candidate) error {
			score, err := distance.Cosine(query, c.vec.Dense)
			if err != nil {
				return err
			}
			h.Offer(c.doc, score)
			return nil
		})
		if err != nil {
			return nil, opError(op, "", err)
		}
		return toHits(h.Sorted()), nil
	}

	var candidates []candidate
	scanned, err = s.scan(ctx, acc, isDense, skipLevel, func(c candidate) error {
		candidates = append(candidates, c)
		return nil
	})
	if err != nil {
		return nil, opError(op, "", err)
	}

	h, err := s.scoreParallel(ctx, query, candidates, limit)
	if err != nil {
		return nil, opError(op, "", err)
	}
	return toHits(h.Sorted()), nil
}

// scoreParallel scores candidates in contiguous chunks, one heap per chunk,
// and merges the heaps. Items keep their enumeration seq so ties resolve as
// in sequential scoring.
func (s *Store) scoreParallel(ctx context.Context, query []float32, candidates []candidate, limit int) (*topk.Heap[document], error) {
	workers := min(s.parallelism, max(len(candidates), 1))
	chunk := (len(candidates) + workers - 1) / workers
	heaps := make([]*topk.Heap[document], workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		lo := min(w*chunk, len(candidates))
		hi := min(lo+chunk, len(candidates))
		h := topk.New[document](limit, true)
		heaps[w] = h

		g.Go(func() error {
			for _, c := range candidates[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				score, err := distance.Cosine(query, c.vec.Dense)
				if err != nil {
					return err
				}
				h.OfferItem(topk.Item[document]{Value: c.doc, Score: score, Seq: c.seq})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := topk.New[document](limit, true)
	for _, h := range heaps {
		merged.Merge(h)
	}
	return merged, nil
}

// hammingScorer picks the accelerated kernel when configured and switches to
// the scalar path for the rest of the query once the kernel is unavailable.
type hammingScorer struct {
	s      *Store
	ctx    context.Context
	kernel *accel.Kernel
}

func (h *hammingScorer) distance(a, b quantization.BitVector) (int, error) {
	if h.kernel != nil {
		d, err := h.kernel.Hamming(a, b)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, accel.ErrUnavailable) {
			return 0, err
		}
		h.s.logger.LogAccelFallback(h.ctx, err)
		h.s.metrics.RecordAccelFallback()
		h.kernel = nil
	}
	return distance.Hamming(a, b)
}

func (s *Store) queryBits(ctx context.Context, op string, query quantization.BitVector, limit int) (hits []Hit, err error) {
	start := time.Now()
	scanned := 0
	defer func() {
		s.metrics.RecordQuery(distance.MetricHamming.String(), scanned, time.Since(start), err)
		s.logger.LogQuery(ctx, distance.MetricHamming.String(), limit, scanned, len(hits), err)
	}()

	if limit <= 0 {
		return []Hit{}, nil
	}

	scorer := &hammingScorer{s: s, ctx: ctx, kernel: s.kernel}
	h := topk.New[document](limit, false)

	isPacked := func(v vector) bool { return v.isPacked() }
	scanned, err = s.scan(ctx, s.primary, isPacked, slog.LevelDebug, func(c candidate) error {
		d, err := scorer.distance(query, c.vec.bitVector())
		if err != nil {
			return err
		}
		h.Offer(c.doc, float64(d))
		return nil
	})
	if err != nil {
		return nil, opError(op, "", err)
	}
	return toHits(h.Sorted()), nil
}
