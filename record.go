package vecscan

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/hupe1980/vecscan/quantization"
)

// Record is the write-side shape of a stored item.
type Record struct {
	// ID is required and unique within a store.
	ID string
	// Text is embedded when Vector is empty and an embedder is configured.
	// It is stored with the record.
	Text string
	// Vector is the dense embedding.
	Vector []float32
	// Attributes are opaque passthrough fields.
	Attributes map[string]any
}

// Patch describes a partial update.
type Patch struct {
	// ID selects the record in UpdateBatch. Update takes the ID as an argument.
	ID string
	// Vector replaces the stored vector when non-empty. A stored packed vector
	// is replaced by the quantized form of Vector.
	Vector []float32
	// Attributes overwrite stored attributes key by key.
	Attributes map[string]any
}

// UpdateOutcome reports the result of one UpdateBatch item.
type UpdateOutcome struct {
	ID  string
	Err error
}

// Hit is a query result.
type Hit struct {
	ID string
	// Score is the cosine similarity (higher is better) or the Hamming
	// distance (lower is better), depending on the query metric.
	Score      float64
	Attributes map[string]any
}

// StoredRecord is a record as read back from the store. Exactly one of
// Vector and Bits is set when the record has a vector.
type StoredRecord struct {
	ID         string
	Text       string
	Vector     []float32
	Bits       *quantization.BitVector
	Attributes map[string]any
}

// vector is the persisted form of one embedding: dense floats or packed bits.
type vector struct {
	Dense  []float32 `json:"dense,omitempty" msgpack:"dense,omitempty"`
	Packed []uint64  `json:"packed,omitempty" msgpack:"packed,omitempty"`
	Bits   int       `json:"bits,omitempty" msgpack:"bits,omitempty"`
}

func denseVector(v []float32) vector {
	return vector{Dense: slices.Clone(v)}
}

func packedVector(bv quantization.BitVector) vector {
	return vector{Packed: bv.Words, Bits: bv.Len}
}

func (v vector) isPacked() bool { return v.Bits > 0 }

func (v vector) isEmpty() bool { return len(v.Dense) == 0 && v.Bits == 0 }

func (v vector) bitVector() quantization.BitVector {
	return quantization.BitVector{Words: v.Packed, Len: v.Bits}
}

// document is the persisted record, one per identifier.
type document struct {
	ID         string            `json:"id" msgpack:"id"`
	Text       string            `json:"text,omitempty" msgpack:"text,omitempty"`
	Vectors    map[string]vector `json:"vectors,omitempty" msgpack:"vectors,omitempty"`
	Attributes map[string]any    `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
}

func (d document) toStored(acc accessor) StoredRecord {
	out := StoredRecord{
		ID:         d.ID,
		Text:       d.Text,
		Attributes: d.Attributes,
	}
	if v, ok := acc.resolve(d); ok {
		if v.isPacked() {
			bv := v.bitVector()
			out.Bits = &bv
		} else {
			out.Vector = v.Dense
		}
	}
	return out
}

// accessor resolves a document's vector through a field chain fixed at
// store construction.
type accessor struct {
	fields []string
}

func newAccessor(fields ...string) accessor {
	var chain []string
	for _, f := range fields {
		if f != "" && !slices.Contains(chain, f) {
			chain = append(chain, f)
		}
	}
	return accessor{fields: chain}
}

// field is the field writes go to.
func (a accessor) field() string { return a.fields[0] }

// resolve returns the first non-empty vector in the chain.
func (a accessor) resolve(d document) (vector, bool) {
	for _, f := range a.fields {
		if v, ok := d.Vectors[f]; ok && !v.isEmpty() {
			return v, true
		}
	}
	return vector{}, false
}

// checkFinite rejects vectors with a NaN or infinite component. Such vectors
// cannot be ranked and some codecs persist them in a form they cannot read
// back.
func checkFinite(vec []float32) error {
	for i, x := range vec {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrInvalidVector, i, x)
		}
	}
	return nil
}

// mergePatch applies p to d. Attributes in p replace stored attributes key by
// key; the vector is replaced only when p supplies a non-empty one (quantized
// when the stored vector is packed); the ID never changes.
func mergePatch(d document, p Patch, acc accessor) document {
	out := document{
		ID:         d.ID,
		Text:       d.Text,
		Vectors:    maps.Clone(d.Vectors),
		Attributes: maps.Clone(d.Attributes),
	}

	if len(p.Attributes) > 0 {
		if out.Attributes == nil {
			out.Attributes = make(map[string]any, len(p.Attributes))
		}
		maps.Copy(out.Attributes, p.Attributes)
	}

	if len(p.Vector) > 0 {
		if out.Vectors == nil {
			out.Vectors = make(map[string]vector, 1)
		}
		field := acc.field()
		if out.Vectors[field].isPacked() {
			out.Vectors[field] = packedVector(quantization.Quantize(p.Vector))
		} else {
			out.Vectors[field] = denseVector(p.Vector)
		}
	}

	return out
}
