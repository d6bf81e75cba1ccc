package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/vecscan/quantization"
)

// ScoredID is a reference ranking entry.
type ScoredID struct {
	ID    string
	Score float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformRangeVectors generates random vectors with values in range [-1, 1).
func (r *RNG) UniformRangeVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()*2 - 1
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vec := make([]float32, dimensions)
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}

	if norm == 0 {
		norm = 1
	}

	inv := 1.0 / math.Sqrt(norm)
	for j := range vec {
		vec[j] = float32(float64(vec[j]) * inv)
	}
	return vec
}

// BitVector generates a random packed vector of n bits.
// Padding bits beyond n are zero, as Pack would produce.
func (r *RNG) BitVector(n int) quantization.BitVector {
	r.mu.Lock()
	defer r.mu.Unlock()

	words := make([]uint64, quantization.NumWords(n))
	for i := range words {
		words[i] = r.rand.Uint64()
	}
	bv := quantization.BitVector{Words: words, Len: n}
	if len(words) > 0 {
		words[len(words)-1] &= bv.TailMask()
	}
	return bv
}

// ExactTopK ranks ids by score with a full sort, used as ground truth for
// the bounded top-k in tests. Ties keep input order.
func ExactTopK(entries []ScoredID, k int, descending bool) []ScoredID {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b ScoredID) int {
		if descending {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Score, b.Score)
	})
	if k < len(sorted) {
		sorted = sorted[:max(k, 0)]
	}
	return sorted
}
