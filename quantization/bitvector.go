package quantization

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WordBits is the number of bits stored per packed word.
const WordBits = 64

// ErrMalformedBitVector is returned when a BitVector's word count does not
// match its declared bit length.
var ErrMalformedBitVector = errors.New("malformed bit vector")

// BitVector is a binary vector packed into 64-bit words.
//
// Bit i lives in Words[i/64] at position i%64 (least-significant bit first).
// Bits at positions >= Len are padding and are always zero when produced by Pack.
type BitVector struct {
	Words []uint64 `json:"words" msgpack:"words"`
	Len   int      `json:"len" msgpack:"len"`
}

// NumWords returns ceil(n/64), the number of words needed for n bits.
func NumWords(n int) int {
	return (n + WordBits - 1) / WordBits
}

// Pack groups bits into 64-bit words, least-significant bit first.
// Any non-zero entry is treated as a set bit.
func Pack(bits []uint8) BitVector {
	words := make([]uint64, NumWords(len(bits)))
	for i, b := range bits {
		if b != 0 {
			words[i/WordBits] |= 1 << (uint(i) % WordBits)
		}
	}
	return BitVector{Words: words, Len: len(bits)}
}

// Unpack is the inverse of Pack for the first n bits of words.
func Unpack(words []uint64, n int) ([]uint8, error) {
	if n < 0 || n > len(words)*WordBits {
		return nil, fmt.Errorf("%w: %d bits requested from %d words", ErrMalformedBitVector, n, len(words))
	}
	bits := make([]uint8, n)
	for i := range bits {
		if words[i/WordBits]&(1<<(uint(i)%WordBits)) != 0 {
			bits[i] = 1
		}
	}
	return bits, nil
}

// Unpack returns the Len bits of v.
func (v BitVector) Unpack() ([]uint8, error) {
	return Unpack(v.Words, v.Len)
}

// Validate checks that the word count equals ceil(Len/64).
func (v BitVector) Validate() error {
	if v.Len < 0 || len(v.Words) != NumWords(v.Len) {
		return fmt.Errorf("%w: len=%d words=%d", ErrMalformedBitVector, v.Len, len(v.Words))
	}
	return nil
}

// IsEmpty reports whether v carries no bits.
func (v BitVector) IsEmpty() bool {
	return v.Len == 0
}

// TailMask returns the mask selecting the valid bits of the final word.
func (v BitVector) TailMask() uint64 {
	rem := v.Len % WordBits
	if rem == 0 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(rem)) - 1
}

// ByteLen returns the size of the little-endian serialisation of v.
func (v BitVector) ByteLen() int {
	return len(v.Words) * 8
}

// PutBytes writes the words of v to dst in little-endian order.
// dst must hold at least ByteLen bytes.
func (v BitVector) PutBytes(dst []byte) {
	for i, w := range v.Words {
		binary.LittleEndian.PutUint64(dst[i*8:], w)
	}
}

// Bytes returns the little-endian serialisation of v.
func (v BitVector) Bytes() []byte {
	out := make([]byte, v.ByteLen())
	v.PutBytes(out)
	return out
}

// Clone returns a deep copy of v.
func (v BitVector) Clone() BitVector {
	words := make([]uint64, len(v.Words))
	copy(words, v.Words)
	return BitVector{Words: words, Len: v.Len}
}
