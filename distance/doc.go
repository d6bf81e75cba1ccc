// Package distance provides exact vector scoring.
//
// # Supported Metrics
//
//   - MetricCosine: cosine similarity over dense float32 vectors, range [-1, 1]
//   - MetricHamming: Hamming distance over packed bit-vectors
//
// Both functions require equal lengths and return ErrLengthMismatch otherwise.
// Cosine similarity involving a zero vector is defined as 0.
//
// # Usage
//
//	sim, err := distance.Cosine(a, b)
//	dist, err := distance.Hamming(quantization.Quantize(a), quantization.Quantize(b))
//
// Hamming here is the scalar reference path; the accel package provides an
// accelerated path with identical results.
package distance
