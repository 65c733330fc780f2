package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	got, err := DecodeVector(EncodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestInMemoryIndex_RanksAndLimits(t *testing.T) {
	ctx := context.Background()
	idx := NewInMemoryIndex()
	base := time.Now()
	require.NoError(t, idx.Add(ctx, "s", Fact{ID: "a", Text: "a", Vector: []float32{1, 0}, CreatedAt: base}))
	require.NoError(t, idx.Add(ctx, "s", Fact{ID: "b", Text: "b", Vector: []float32{1, 1}, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, idx.Add(ctx, "s", Fact{ID: "c", Text: "c", Vector: []float32{0, 1}, CreatedAt: base.Add(2 * time.Second)}))

	hits, err := idx.Search(ctx, "s", []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Fact.ID)
	assert.Equal(t, "b", hits[1].Fact.ID)
}
