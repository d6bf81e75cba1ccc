package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformRangeVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformRangeVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(-1.0))
}

func TestUnitVector(t *testing.T) {
	rng := NewRNG(4711)

	vec := rng.UnitVector(64)

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestBitVector(t *testing.T) {
	rng := NewRNG(4711)

	for _, n := range []int{0, 1, 63, 64, 65, 200} {
		bv := rng.BitVector(n)
		require.NoError(t, bv.Validate())
		if n > 0 {
			last := bv.Words[len(bv.Words)-1]
			assert.Zero(t, last&^bv.TailMask(), "padding must be zero for n=%d", n)
		}
	}
}

func TestExactTopK(t *testing.T) {
	entries := []ScoredID{{"a", 0.5}, {"b", 0.9}, {"c", 0.5}, {"d", 0.1}}

	desc := ExactTopK(entries, 3, true)
	assert.Equal(t, []ScoredID{{"b", 0.9}, {"a", 0.5}, {"c", 0.5}}, desc)

	asc := ExactTopK(entries, 2, false)
	assert.Equal(t, []ScoredID{{"d", 0.1}, {"a", 0.5}}, asc)

	assert.Empty(t, ExactTopK(entries, 0, true))
}
