package simd

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXorPopcount(t *testing.T) {
	tests := []struct {
		name string
		a, b []uint64
		want int
	}{
		{"Empty", nil, nil, 0},
		{"Identical", []uint64{0xAA, 0x55}, []uint64{0xAA, 0x55}, 0},
		{"SingleBit", []uint64{1}, []uint64{0}, 1},
		{"FullWord", []uint64{^uint64(0)}, []uint64{0}, 64},
		{"Alternating", []uint64{0x5555555555555555}, []uint64{0xAAAAAAAAAAAAAAAA}, 64},
		{"Mixed", []uint64{0xFF, 0x00, 0x0F, 0xF0, 1}, []uint64{0, 0, 0, 0, 0}, 8 + 0 + 4 + 4 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, XorPopcount(tt.a, tt.b))
			assert.Equal(t, tt.want, xorPopcountGeneric(tt.a, tt.b))
			assert.Equal(t, tt.want, xorPopcount256(tt.a, tt.b))
			assert.Equal(t, tt.want, xorPopcount512(tt.a, tt.b))
		})
	}
}

// Test equivalence between lane widths at loop boundaries.
func TestXorPopcount_EquivalenceBoundaries(t *testing.T) {
	sizes := []int{0, 1, 2, 3, 4, 5, 7, 8, 9, 15, 16, 17, 31, 32, 33, 63, 64, 65, 128}

	rng := rand.New(rand.NewSource(42))

	for _, size := range sizes {
		a := make([]uint64, size)
		b := make([]uint64, size)
		ab := make([]byte, size*8)
		bb := make([]byte, size*8)
		for i := range a {
			a[i] = rng.Uint64()
			b[i] = rng.Uint64()
			binary.LittleEndian.PutUint64(ab[i*8:], a[i])
			binary.LittleEndian.PutUint64(bb[i*8:], b[i])
		}

		want := xorPopcountGeneric(a, b)
		assert.Equal(t, want, xorPopcount256(a, b), "256 size=%d", size)
		assert.Equal(t, want, xorPopcount512(a, b), "512 size=%d", size)
		assert.Equal(t, want, xorPopcountBytesGeneric(ab, bb, size), "bytes size=%d", size)
		assert.Equal(t, want, xorPopcountBytes256(ab, bb, size), "bytes256 size=%d", size)
		assert.Equal(t, want, XorPopcountBytes(ab, bb, size), "dispatch size=%d", size)
		assert.Equal(t, want, XorPopcountBytes4(ab, bb, size), "bytes4 size=%d", size)
	}
}

func TestParseISA(t *testing.T) {
	isa, ok := ParseISA(" AVX2 ")
	assert.True(t, ok)
	assert.Equal(t, AVX2, isa)

	_, ok = ParseISA("mmx")
	assert.False(t, ok)

	assert.Equal(t, "generic", Generic.String())
	assert.Equal(t, "unknown", ISA(99).String())
	assert.True(t, Features{}.Supports(Generic))
}

func TestResolveISA(t *testing.T) {
	amd := Features{AVX2: true, AVX512F: true, AVX512BW: true}
	arm := Features{ASIMD: true, SVE2: true}

	tests := []struct {
		name       string
		f          Features
		goos       string
		override   string
		want       ISA
		overridden bool
	}{
		{"None", Features{}, "linux", "", Generic, false},
		{"AVX512", amd, "linux", "", AVX512, false},
		{"AVX512NeedsBW", Features{AVX2: true, AVX512F: true}, "linux", "", AVX2, false},
		{"SVE2", arm, "linux", "", SVE2, false},
		{"DarwinPrefersNEON", arm, "darwin", "", NEON, false},
		{"Override", amd, "linux", "generic", Generic, true},
		{"UnsupportedOverride", amd, "linux", "neon", AVX512, false},
		{"UnknownOverride", arm, "linux", "mmx", SVE2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isa, overridden := resolveISA(tt.f, tt.goos, tt.override)
			assert.Equal(t, tt.want, isa)
			assert.Equal(t, tt.overridden, overridden)
		})
	}
}

func TestFeatures_Names(t *testing.T) {
	assert.Empty(t, Features{}.Names())
	assert.Equal(t, []string{"avx2", "avx512f"}, Features{AVX2: true, AVX512F: true}.Names())
	assert.Equal(t, []string{"asimd"}, Features{ASIMD: true}.Names())
}

func TestSelectKernels(t *testing.T) {
	defer selectKernels(activeISA)

	a := []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []uint64{9, 8, 7, 6, 5, 4, 3, 2, 1}
	want := xorPopcountGeneric(a, b)

	ab := make([]byte, len(a)*8)
	bb := make([]byte, len(b)*8)
	for i := range a {
		binary.LittleEndian.PutUint64(ab[i*8:], a[i])
		binary.LittleEndian.PutUint64(bb[i*8:], b[i])
	}

	for _, isa := range []ISA{Generic, NEON, SVE2, AVX2, AVX512} {
		selectKernels(isa)
		assert.Equal(t, want, XorPopcount(a, b), isa.String())
		assert.Equal(t, want, XorPopcountBytes(ab, bb, len(a)), isa.String())
		assert.Equal(t, want, XorPopcountBytes4(ab, bb, len(a)), isa.String())
	}
}

func BenchmarkXorPopcount_768bits(b *testing.B) {
	x := make([]uint64, 12)
	y := make([]uint64, 12)
	for i := range x {
		x[i] = 0x5555555555555555
		y[i] = 0xAAAAAAAAAAAAAAAA
	}

	b.ResetTimer()
	for b.Loop() {
		_ = XorPopcount(x, y)
	}
}
