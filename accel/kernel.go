package accel

import (
	"fmt"
	"sync"

	"github.com/hupe1980/vecscan/distance"
	"github.com/hupe1980/vecscan/internal/conv"
	"github.com/hupe1980/vecscan/quantization"
)

// Kernel is a loaded module instance.
//
// The module memory is shared between calls, so a Kernel admits one
// in-flight call at a time. Kernel is safe for concurrent use; concurrent
// callers are serialised.
type Kernel struct {
	info Info

	mu  sync.Mutex
	mem []byte
	fn  HammingFunc
}

// Info returns the module name and version.
func (k *Kernel) Info() Info {
	return k.info
}

// MaxBits returns the largest bit length the kernel can compare.
func (k *Kernel) MaxBits() int {
	half := (len(k.mem) / 2) &^ 7
	return half * 8
}

// Hamming returns the Hamming distance of a and b using the module.
//
// Operand A is written at offset 0, operand B at the first 8-byte aligned
// offset past A. Fails with distance.ErrLengthMismatch when the bit lengths
// differ and with ErrUnavailable when the operands do not fit into the
// module memory or the entry point traps.
func (k *Kernel) Hamming(a, b quantization.BitVector) (int, error) {
	if a.Len != b.Len {
		return 0, fmt.Errorf("%w: %d != %d", distance.ErrLengthMismatch, a.Len, b.Len)
	}
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if a.Len == 0 {
		return 0, nil
	}
	bitLen, err := conv.IntToUint32(a.Len)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	n := a.ByteLen()
	offB := alignUp(n, 8)

	k.mu.Lock()
	defer k.mu.Unlock()

	if offB+n > len(k.mem) {
		return 0, fmt.Errorf("%w: %d-byte operands exceed %d-byte module memory", ErrUnavailable, n, len(k.mem))
	}

	a.PutBytes(k.mem[:n])
	b.PutBytes(k.mem[offB : offB+n])

	d, err := call(k.fn, 0, uint32(offB), bitLen)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if d > bitLen {
		return 0, fmt.Errorf("%w: module returned distance %d for %d bits", ErrUnavailable, d, bitLen)
	}
	return conv.Uint32ToInt(d)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
