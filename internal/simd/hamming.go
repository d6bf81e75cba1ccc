package simd

import (
	"encoding/binary"
	"math/bits"
)

// Kernel function pointers for Hamming operations.
// Generic implementations are the default; initCapabilities selects the
// lane width matching the active ISA. All kernels return identical results.
var (
	kernelXorPopcount      = xorPopcountGeneric
	kernelXorPopcountBytes = xorPopcountBytesGeneric
)

// LaneWords returns the number of 64-bit words the active kernels
// process per step.
func LaneWords() int {
	switch activeISA {
	case AVX512:
		return 8
	case AVX2, NEON, SVE2:
		return 4
	default:
		return 1
	}
}

func selectKernels(isa ISA) {
	switch isa {
	case AVX512:
		kernelXorPopcount = xorPopcount512
		kernelXorPopcountBytes = xorPopcountBytes256
	case AVX2, NEON, SVE2:
		kernelXorPopcount = xorPopcount256
		kernelXorPopcountBytes = xorPopcountBytes256
	default:
		kernelXorPopcount = xorPopcountGeneric
		kernelXorPopcountBytes = xorPopcountBytesGeneric
	}
}

// XorPopcount returns sum(popcount(a[i] ^ b[i])) over min(len(a), len(b)) words.
func XorPopcount(a, b []uint64) int {
	return kernelXorPopcount(a, b)
}

// XorPopcountBytes is XorPopcount over two little-endian word buffers of n words.
// Both buffers must hold at least n*8 bytes.
func XorPopcountBytes(a, b []byte, n int) int {
	return kernelXorPopcountBytes(a, b, n)
}

// XorPopcountBytes4 is XorPopcountBytes with the four-word kernel, whatever
// the active ISA.
func XorPopcountBytes4(a, b []byte, n int) int {
	return xorPopcountBytes256(a, b, n)
}

// XorPopcountGeneric is the one-word-per-step reference kernel.
func XorPopcountGeneric(a, b []uint64) int {
	return xorPopcountGeneric(a, b)
}

// ==============================================================================
// Generic implementations
// ==============================================================================

func xorPopcountGeneric(a, b []uint64) int {
	n := min(len(a), len(b))
	count := 0
	for i := 0; i < n; i++ {
		count += bits.OnesCount64(a[i] ^ b[i])
	}
	return count
}

func xorPopcount256(a, b []uint64) int {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]
	var c0, c1, c2, c3 int
	i := 0
	// Process 4 words at a time
	for ; i+4 <= n; i += 4 {
		c0 += bits.OnesCount64(a[i] ^ b[i])
		c1 += bits.OnesCount64(a[i+1] ^ b[i+1])
		c2 += bits.OnesCount64(a[i+2] ^ b[i+2])
		c3 += bits.OnesCount64(a[i+3] ^ b[i+3])
	}
	for ; i < n; i++ {
		c0 += bits.OnesCount64(a[i] ^ b[i])
	}
	return c0 + c1 + c2 + c3
}

func xorPopcount512(a, b []uint64) int {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]
	count := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		count += bits.OnesCount64(a[i]^b[i]) +
			bits.OnesCount64(a[i+1]^b[i+1]) +
			bits.OnesCount64(a[i+2]^b[i+2]) +
			bits.OnesCount64(a[i+3]^b[i+3]) +
			bits.OnesCount64(a[i+4]^b[i+4]) +
			bits.OnesCount64(a[i+5]^b[i+5]) +
			bits.OnesCount64(a[i+6]^b[i+6]) +
			bits.OnesCount64(a[i+7]^b[i+7])
	}
	for ; i < n; i++ {
		count += bits.OnesCount64(a[i] ^ b[i])
	}
	return count
}

func xorPopcountBytesGeneric(a, b []byte, n int) int {
	count := 0
	for i := 0; i < n; i++ {
		off := i * 8
		count += bits.OnesCount64(binary.LittleEndian.Uint64(a[off:]) ^ binary.LittleEndian.Uint64(b[off:]))
	}
	return count
}

func xorPopcountBytes256(a, b []byte, n int) int {
	a, b = a[:n*8], b[:n*8]
	var c0, c1, c2, c3 int
	i := 0
	for ; i+4 <= n; i += 4 {
		off := i * 8
		c0 += bits.OnesCount64(binary.LittleEndian.Uint64(a[off:]) ^ binary.LittleEndian.Uint64(b[off:]))
		c1 += bits.OnesCount64(binary.LittleEndian.Uint64(a[off+8:]) ^ binary.LittleEndian.Uint64(b[off+8:]))
		c2 += bits.OnesCount64(binary.LittleEndian.Uint64(a[off+16:]) ^ binary.LittleEndian.Uint64(b[off+16:]))
		c3 += bits.OnesCount64(binary.LittleEndian.Uint64(a[off+24:]) ^ binary.LittleEndian.Uint64(b[off+24:]))
	}
	for ; i < n; i++ {
		off := i * 8
		c0 += bits.OnesCount64(binary.LittleEndian.Uint64(a[off:]) ^ binary.LittleEndian.Uint64(b[off:]))
	}
	return c0 + c1 + c2 + c3
}
