package distance

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hupe1980/vecscan/internal/simd"
	"github.com/hupe1980/vecscan/quantization"
)

// ErrLengthMismatch is returned when two vectors compared in one operation
// have different lengths (dense) or bit lengths (packed).
var ErrLengthMismatch = errors.New("vector length mismatch")

func lengthMismatch(a, b int) error {
	return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, a, b)
}

// Dot calculates the dot product of two vectors with float64 accumulation.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// Cosine returns dot(a,b) / (|a| * |b|).
//
// Returns ErrLengthMismatch if the vectors differ in length.
// If either vector has zero magnitude the similarity is defined as 0.
// The result is clamped to [-1, 1] to absorb rounding error.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, lengthMismatch(len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return max(-1, min(1, sim)), nil
}

// Hamming returns the number of differing bits between a and b.
//
// This is the scalar reference path: words are visited sequentially and the
// popcount of their XOR accumulated. Bits beyond Len are ignored.
// Returns ErrLengthMismatch if the bit lengths differ.
func Hamming(a, b quantization.BitVector) (int, error) {
	if a.Len != b.Len {
		return 0, lengthMismatch(a.Len, b.Len)
	}
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	n := len(a.Words)
	if n == 0 {
		return 0, nil
	}
	dist := simd.XorPopcountGeneric(a.Words[:n-1], b.Words[:n-1])
	mask := a.TailMask()
	dist += simd.XorPopcountGeneric([]uint64{a.Words[n-1] & mask}, []uint64{b.Words[n-1] & mask})
	return dist, nil
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm := Norm(v)
	if norm == 0 {
		return false
	}
	inv := 1 / norm
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the scoring used by a query.
type Metric int

const (
	// MetricCosine ranks dense vectors by descending cosine similarity.
	MetricCosine Metric = iota
	// MetricHamming ranks packed bit-vectors by ascending Hamming distance.
	MetricHamming
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "Cosine"
	case MetricHamming:
		return "Hamming"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// HigherIsBetter reports whether larger scores rank first under m.
func (m Metric) HigherIsBetter() bool {
	return m == MetricCosine
}

// ParseMetric parses "cosine" or "hamming" (case-insensitive).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine", "dense":
		return MetricCosine, nil
	case "hamming", "binary":
		return MetricHamming, nil
	default:
		return 0, fmt.Errorf("unsupported metric: %q", s)
	}
}
