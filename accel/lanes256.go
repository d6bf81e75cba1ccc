package accel

import (
	"encoding/binary"
	"math/bits"

	"github.com/hupe1980/vecscan/internal/simd"
)

const (
	// BuiltinName is the name of the module shipped with this package.
	BuiltinName = "lanes256"
	// BuiltinVersion is the version of the built-in module.
	BuiltinVersion = "1.0.0"
	// BuiltinMemoryBytes is the linear memory size of the built-in module
	// (one 64 KiB page).
	BuiltinMemoryBytes = 1 << 16
)

func init() {
	if err := Register(BuiltinName, BuiltinVersion, newLanes256); err != nil {
		panic(err)
	}
}

// newLanes256 instantiates the built-in module. Full words are compared four
// at a time; the tail word is masked to bitLen.
func newLanes256() (Exports, error) {
	mem := make([]byte, BuiltinMemoryBytes)

	hamming := func(offA, offB, bitLen uint32) uint32 {
		full := int(bitLen / 64)
		a, b := mem[offA:], mem[offB:]

		d := simd.XorPopcountBytes4(a, b, full)

		if rem := bitLen % 64; rem != 0 {
			off := full * 8
			mask := (uint64(1) << rem) - 1
			x := binary.LittleEndian.Uint64(a[off:]) ^ binary.LittleEndian.Uint64(b[off:])
			d += bits.OnesCount64(x & mask)
		}
		return uint32(d)
	}

	return Exports{Memory: mem, HammingDistance: hamming}, nil
}

// ISA reports the instruction set detected for this host.
func ISA() string {
	return simd.ActiveISA().String()
}

// CPUFeatures lists the SIMD features detected for this host.
func CPUFeatures() []string {
	return simd.CPUFeatures().Names()
}
