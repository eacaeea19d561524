package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreSearchRanksByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}, map[string]interface{}{"memory_id": "a"}))
	require.NoError(t, s.Upsert(ctx, "b", []float32{0, 1}, map[string]interface{}{"memory_id": "b"}))

	hits, err := s.Search(ctx, []float32{1, 0.01}, nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestInMemoryStoreSearchAppliesFilter(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Upsert(ctx, "a", []float32{1, 0}, map[string]interface{}{"kind": "decision"}))
	require.NoError(t, s.Upsert(ctx, "b", []float32{1, 0}, map[string]interface{}{"kind": "note"}))

	f := &Filter{Conditions: []FilterCondition{MatchValueCond("kind", "decision")}}
	hits, err := s.Search(ctx, []float32{1, 0}, f, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestInMemoryStoreDeleteByIDRemovesPoint(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Upsert(ctx, "a", []float32{1}, nil))
	require.NoError(t, s.DeleteByID(ctx, "a"))

	hits, err := s.Search(ctx, []float32{1}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestInMemoryStoreDeleteByFilterRemovesMatching(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Upsert(ctx, "a", []float32{1}, map[string]interface{}{"kind": "note"}))
	require.NoError(t, s.Upsert(ctx, "b", []float32{1}, map[string]interface{}{"kind": "decision"}))

	require.NoError(t, s.DeleteByFilter(ctx, &Filter{Conditions: []FilterCondition{MatchValueCond("kind", "note")}}))

	hits, err := s.Search(ctx, []float32{1}, nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
}

func TestInMemoryStoreSearchLimit(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Upsert(ctx, id, []float32{1, 0}, nil))
	}
	hits, err := s.Search(ctx, []float32{1, 0}, nil, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
