// Package simd provides CPU-dispatched bit kernels.
//
// # Supported Platforms
//
//   - x86-64: AVX-512, AVX2
//   - ARM64: NEON, SVE2
//
// Runtime CPU feature detection (golang.org/x/sys/cpu) selects the lane
// width of the XOR+popcount kernels: one word per step for Generic, four
// words (256 bits) for AVX2/NEON/SVE2 and eight words (512 bits) for AVX-512.
// Set VECSCAN_SIMD=generic|avx2|avx512|neon|sve2 to force a supported ISA.
//
// All kernels are pure Go and return identical results; only the unrolling
// differs.
package simd
