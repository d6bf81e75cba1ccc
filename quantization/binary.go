package quantization

import (
	"slices"
)

// Median returns the median of v: the middle value for odd lengths and the
// average of the two middle values for even lengths. Empty input yields 0.
func Median(v []float32) float32 {
	n := len(v)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(v)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	// float64 keeps the average of two large float32 values from overflowing.
	return float32((float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2)
}

// Binarize maps each component of v to 1 if it is >= threshold, else 0.
//
// If no threshold is given, the median of v is used.
func Binarize(v []float32, threshold ...float32) []uint8 {
	t := Median(v)
	if len(threshold) > 0 {
		t = threshold[0]
	}
	bits := make([]uint8, len(v))
	for i, val := range v {
		if val >= t {
			bits[i] = 1
		}
	}
	return bits
}

// Quantize binarizes v around its median and packs the result.
func Quantize(v []float32) BitVector {
	return Pack(Binarize(v))
}

// BinaryQuantizer implements binary quantization (1-bit per dimension).
// It compresses float32 vectors (4 bytes/dim) to bits (0.125 bytes/dim) for 32x memory savings.
//
// Two threshold modes are supported:
//   - fixed: values >= threshold become 1 (NewBinaryQuantizer().WithThreshold)
//   - median: each vector is split around its own median (the default)
//
// Distance is computed using Hamming distance (popcount of XOR).
type BinaryQuantizer struct {
	threshold float32 // Value threshold for binary encoding
	fixed     bool    // Whether threshold overrides the per-vector median
}

// NewBinaryQuantizer creates a binary quantizer that thresholds every
// vector at its own median.
func NewBinaryQuantizer() *BinaryQuantizer {
	return &BinaryQuantizer{}
}

// WithThreshold sets a fixed threshold for binary encoding.
// Values >= threshold become 1, values < threshold become 0.
func (bq *BinaryQuantizer) WithThreshold(threshold float32) *BinaryQuantizer {
	bq.threshold = threshold
	bq.fixed = true
	return bq
}

// Train calibrates a fixed threshold as the median of all values across vectors.
// Training with no values leaves the quantizer in median mode.
func (bq *BinaryQuantizer) Train(vectors [][]float32) {
	var all []float32
	for _, vec := range vectors {
		all = append(all, vec...)
	}
	if len(all) == 0 {
		return
	}
	bq.WithThreshold(Median(all))
}

// Encode quantizes a float32 vector to a packed BitVector.
func (bq *BinaryQuantizer) Encode(v []float32) BitVector {
	if bq.fixed {
		return Pack(Binarize(v, bq.threshold))
	}
	return Pack(Binarize(v))
}

// Threshold returns the fixed threshold and whether one is set.
func (bq *BinaryQuantizer) Threshold() (float32, bool) {
	return bq.threshold, bq.fixed
}

// CompressionRatio returns the compression ratio vs float32 storage.
// For binary quantization, this is always 32x.
func (bq *BinaryQuantizer) CompressionRatio() float32 {
	return 32.0
}
