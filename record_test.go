package vecscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecscan/quantization"
)

func TestAccessor(t *testing.T) {
	d := document{
		ID: "a",
		Vectors: map[string]vector{
			"vector":    denseVector([]float32{1, 2}),
			"empty":     {},
			"embedding": packedVector(quantization.Quantize([]float32{1, 2, 3, 4})),
		},
	}

	tests := []struct {
		name   string
		fields []string
		ok     bool
		packed bool
	}{
		{"Primary", []string{"vector"}, true, false},
		{"Packed", []string{"embedding"}, true, true},
		{"EmptySkipped", []string{"empty", "vector"}, true, false},
		{"Missing", []string{"other"}, false, false},
		{"Fallback", []string{"other", "vector"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := newAccessor(tt.fields...).resolve(d)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.packed, v.isPacked())
		})
	}

	acc := newAccessor("vector", "", "vector")
	assert.Equal(t, []string{"vector"}, acc.fields)
	assert.Equal(t, "vector", acc.field())
}

func TestMergePatch(t *testing.T) {
	acc := newAccessor("vector")
	base := document{
		ID:         "a",
		Text:       "hello",
		Vectors:    map[string]vector{"vector": denseVector([]float32{1, 2})},
		Attributes: map[string]any{"title": "old", "lang": "en"},
	}

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, base, mergePatch(base, Patch{}, acc))
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		_ = mergePatch(base, Patch{Vector: []float32{3, 4}, Attributes: map[string]any{"title": "new"}}, acc)
		assert.Equal(t, "old", base.Attributes["title"])
		assert.Equal(t, []float32{1, 2}, base.Vectors["vector"].Dense)
	})

	t.Run("AttributesMerged", func(t *testing.T) {
		got := mergePatch(base, Patch{Attributes: map[string]any{"title": "new", "extra": 1}}, acc)
		assert.Equal(t, map[string]any{"title": "new", "lang": "en", "extra": 1}, got.Attributes)
	})

	t.Run("VectorAddedToBareRecord", func(t *testing.T) {
		got := mergePatch(document{ID: "b"}, Patch{Vector: []float32{1}}, acc)
		require.Contains(t, got.Vectors, "vector")
		assert.Equal(t, []float32{1}, got.Vectors["vector"].Dense)
	})

	t.Run("PackedStaysPacked", func(t *testing.T) {
		packed := document{ID: "c", Vectors: map[string]vector{"vector": packedVector(quantization.Quantize([]float32{1, 2, 3, 4}))}}
		got := mergePatch(packed, Patch{Vector: []float32{4, 3, 2, 1}}, acc)
		v := got.Vectors["vector"]
		require.True(t, v.isPacked())
		assert.Equal(t, quantization.Quantize([]float32{4, 3, 2, 1}), v.bitVector())
	})

	t.Run("IDIgnored", func(t *testing.T) {
		assert.Equal(t, "a", mergePatch(base, Patch{ID: "z"}, acc).ID)
	})
}

func TestDocument_ToStored(t *testing.T) {
	acc := newAccessor("vector")

	dense := document{ID: "a", Vectors: map[string]vector{"vector": denseVector([]float32{1})}}
	got := dense.toStored(acc)
	assert.Equal(t, []float32{1}, got.Vector)
	assert.Nil(t, got.Bits)

	bare := document{ID: "b", Text: "t"}
	got = bare.toStored(acc)
	assert.Nil(t, got.Vector)
	assert.Nil(t, got.Bits)
	assert.Equal(t, "t", got.Text)
}
