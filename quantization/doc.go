// Package quantization provides the binary quantization scheme used by vecscan.
//
// A dense float32 vector is reduced to one bit per component by comparing each
// component against a threshold (by default the vector's own median) and the
// resulting bits are packed into 64-bit words, least-significant bit first:
//
//	bits := quantization.Binarize([]float32{0.1, 0.9, 0.5, 0.4}) // [0 1 1 0]
//	bv := quantization.Pack(bits)                               // Words: [0b0110], Len: 4
//	back, _ := bv.Unpack()                                      // [0 1 1 0]
//
// Packed vectors are compared with distance.Hamming, or with an accelerated
// kernel from the accel package.
//
// Storage: ceil(dimension / 64) uint64 words (32x smaller than float32).
package quantization
