package quantization_test

import (
	"testing"

	"github.com/hupe1980/vecscan/quantization"
	"github.com/hupe1980/vecscan/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		in       []float32
		expected float32
	}{
		{"Empty", nil, 0},
		{"Single", []float32{3}, 3},
		{"Odd", []float32{5, 1, 3}, 3},
		{"Even", []float32{0.1, 0.9, 0.5, 0.4}, 0.45},
		{"Negative", []float32{-1, -3, -2, -4}, -2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, quantization.Median(tt.in), 1e-6)
		})
	}
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	in := []float32{3, 1, 2}
	_ = quantization.Median(in)
	assert.Equal(t, []float32{3, 1, 2}, in)
}

func TestBinarize(t *testing.T) {
	t.Run("DefaultThresholdIsMedian", func(t *testing.T) {
		bits := quantization.Binarize([]float32{0.1, 0.9, 0.5, 0.4})
		assert.Equal(t, []uint8{0, 1, 1, 0}, bits)
	})

	t.Run("ExplicitThreshold", func(t *testing.T) {
		// >= 0.5: 0, 0, 1, 1, 1, 0, 1, 0
		vec := []float32{0.0, 0.4, 0.5, 0.6, 1.0, -1.0, 0.5, 0.49}
		bits := quantization.Binarize(vec, 0.5)
		assert.Equal(t, []uint8{0, 0, 1, 1, 1, 0, 1, 0}, bits)
	})

	t.Run("ValueEqualToThresholdIsOne", func(t *testing.T) {
		bits := quantization.Binarize([]float32{2, 2, 2})
		assert.Equal(t, []uint8{1, 1, 1}, bits)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, quantization.Binarize(nil))
	})
}

func TestPack(t *testing.T) {
	t.Run("LSBFirst", func(t *testing.T) {
		bv := quantization.Pack([]uint8{0, 0, 1, 1, 1, 0, 1, 0})
		require.Len(t, bv.Words, 1)
		assert.Equal(t, uint64(0b01011100), bv.Words[0])
		assert.Equal(t, 8, bv.Len)
	})

	t.Run("WordBoundaries", func(t *testing.T) {
		bits := make([]uint8, 130)
		bits[0] = 1
		bits[64] = 1
		bits[129] = 1
		bv := quantization.Pack(bits)
		require.Len(t, bv.Words, 3)
		assert.Equal(t, uint64(1), bv.Words[0])
		assert.Equal(t, uint64(1), bv.Words[1])
		assert.Equal(t, uint64(1)<<1, bv.Words[2])
	})

	t.Run("AlternatingPattern", func(t *testing.T) {
		bits := make([]uint8, 128)
		for i := range bits {
			if i%2 == 0 {
				bits[i] = 1
			}
		}
		bv := quantization.Pack(bits)
		require.Len(t, bv.Words, 2)
		assert.Equal(t, uint64(0x5555555555555555), bv.Words[0])
		assert.Equal(t, uint64(0x5555555555555555), bv.Words[1])
	})
}

func TestPackUnpack_Roundtrip(t *testing.T) {
	rng := testutil.NewRNG(42)

	for _, n := range []int{0, 1, 7, 63, 64, 65, 127, 128, 129, 768, 1000} {
		bits := make([]uint8, n)
		for i := range bits {
			bits[i] = uint8(rng.Intn(2))
		}
		bv := quantization.Pack(bits)
		require.NoError(t, bv.Validate())
		assert.Equal(t, quantization.NumWords(n), len(bv.Words))

		got, err := quantization.Unpack(bv.Words, n)
		require.NoError(t, err)
		assert.Equal(t, bits, got, "n=%d", n)
	}
}

func TestUnpack_Prefix(t *testing.T) {
	bv := quantization.Pack([]uint8{1, 0, 1, 1, 0, 1})

	got, err := quantization.Unpack(bv.Words, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 1}, got)
}

func TestUnpack_TooLong(t *testing.T) {
	_, err := quantization.Unpack([]uint64{0}, 65)
	require.ErrorIs(t, err, quantization.ErrMalformedBitVector)
}

func TestBitVector_Validate(t *testing.T) {
	assert.NoError(t, quantization.BitVector{}.Validate())
	assert.NoError(t, quantization.BitVector{Words: []uint64{0, 0}, Len: 65}.Validate())
	assert.ErrorIs(t, quantization.BitVector{Words: []uint64{0}, Len: 65}.Validate(), quantization.ErrMalformedBitVector)
	assert.ErrorIs(t, quantization.BitVector{Words: []uint64{0, 0}, Len: 64}.Validate(), quantization.ErrMalformedBitVector)
}

func TestBitVector_Bytes(t *testing.T) {
	bv := quantization.BitVector{Words: []uint64{0x0102030405060708}, Len: 64}
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, bv.Bytes())
}

func TestBitVector_TailMask(t *testing.T) {
	assert.Equal(t, ^uint64(0), quantization.BitVector{Len: 64}.TailMask())
	assert.Equal(t, uint64(0b111), quantization.BitVector{Len: 3}.TailMask())
	assert.Equal(t, uint64(1), quantization.BitVector{Len: 65}.TailMask())
}

func TestQuantize(t *testing.T) {
	bv := quantization.Quantize([]float32{0.1, 0.9, 0.5, 0.4})
	assert.Equal(t, quantization.BitVector{Words: []uint64{0b0110}, Len: 4}, bv)
}

func TestBinaryQuantizer_MedianMode(t *testing.T) {
	bq := quantization.NewBinaryQuantizer()

	_, fixed := bq.Threshold()
	assert.False(t, fixed)

	bv := bq.Encode([]float32{0.1, 0.9, 0.5, 0.4})
	assert.Equal(t, uint64(0b0110), bv.Words[0])
}

func TestBinaryQuantizer_WithThreshold(t *testing.T) {
	bq := quantization.NewBinaryQuantizer().WithThreshold(0.0)

	vec := make([]float32, 128)
	for i := range vec {
		if i%2 == 0 {
			vec[i] = 1.0
		} else {
			vec[i] = -1.0
		}
	}

	encoded := bq.Encode(vec)
	require.Len(t, encoded.Words, 2)
	assert.Equal(t, uint64(0x5555555555555555), encoded.Words[0])
	assert.Equal(t, uint64(0x5555555555555555), encoded.Words[1])
}

func TestBinaryQuantizer_Train(t *testing.T) {
	bq := quantization.NewBinaryQuantizer()

	bq.Train([][]float32{
		{1.0, 2.0, 3.0, 4.0},
		{5.0, 6.0, 7.0, 8.0},
	})

	threshold, fixed := bq.Threshold()
	assert.True(t, fixed)
	assert.InDelta(t, 4.5, threshold, 1e-6)
}

func TestBinaryQuantizer_TrainEmpty(t *testing.T) {
	bq := quantization.NewBinaryQuantizer()
	bq.Train(nil)

	_, fixed := bq.Threshold()
	assert.False(t, fixed)
}

// BenchmarkQuantize benchmarks median binarization + packing for 768-dim vectors.
func BenchmarkQuantize_768dim(b *testing.B) {
	rng := testutil.NewRNG(42)
	vec := rng.UniformRangeVectors(1, 768)[0]

	b.ResetTimer()
	for b.Loop() {
		_ = quantization.Quantize(vec)
	}
}
