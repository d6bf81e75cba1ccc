// Package codec centralizes record encoding.
//
// The codec is part of the persisted format: records written with one codec
// cannot be read back with another. Pick a codec (and compression) when a
// store is created and keep it.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Compressed codecs are named "<codec>+<compression>", e.g. "msgpack+zstd".
func ByName(name string) (Codec, bool) {
	base, comp, found := strings.Cut(name, "+")
	c, ok := baseByName(base)
	if !ok {
		return nil, false
	}
	if !found {
		return c, true
	}
	ct, err := ParseCompression(comp)
	if err != nil {
		return nil, false
	}
	return Compress(c, ct), true
}

func baseByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "msgpack":
		return Msgpack{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
