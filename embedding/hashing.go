package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/spaolacci/murmur3"
)

// Hashing is an offline Provider using feature hashing.
//
// Every token is mapped to a pseudo-random ±1 vector derived from murmur3
// hashes of the token, the token vectors are mean pooled and the result is
// L2-normalized. Equal texts embed equally and texts sharing tokens are
// similar, which is enough for tests and local tooling without a model
// server.
type Hashing struct {
	Dim  int
	Seed uint32
}

// NewHashing returns a hashing provider producing dim-dimensional vectors.
func NewHashing(dim int) *Hashing {
	return &Hashing{Dim: dim}
}

// Embed implements Provider.
func (h *Hashing) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}

	vectors := make([][]float32, len(tokens))
	for i, tok := range tokens {
		vectors[i] = h.tokenVector(tok)
	}
	return MeanPool(vectors)
}

func (h *Hashing) tokenVector(tok string) []float32 {
	v := make([]float32, h.Dim)
	data := []byte(tok)
	for i := 0; i < h.Dim; i += 64 {
		bits := murmur3.Sum64WithSeed(data, h.Seed+uint32(i/64))
		for j := 0; j < 64 && i+j < h.Dim; j++ {
			if bits&(1<<uint(j)) != 0 {
				v[i+j] = 1
			} else {
				v[i+j] = -1
			}
		}
	}
	return v
}

// Tokenize lower-cases text and splits it on anything that is not a letter
// or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
