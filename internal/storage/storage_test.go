package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func newTestBackend(t *testing.T) Backend {
	t.Helper()
	b, err := NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	require.NoError(t, b.Initialize(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestMemoryRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	m := &types.Memory{
		ID: "m1", Kind: types.MemoryKindDecision, Title: "t", Body: "b", Summary: "s",
		Importance: 0.7, AccessCount: 2, CreatedAt: now, AccessedAt: now,
		Tags: types.NewTagSet([]string{"auth", "backend"}),
		RelatedFiles: types.NewStringSet([]string{"a.go"}),
		Experts: types.NewStringSet([]string{"alice"}),
	}
	require.NoError(t, b.SaveMemory(ctx, m))

	got, err := b.GetMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, m.Title, got.Title)
	assert.Equal(t, m.Importance, got.Importance)
	assert.True(t, got.HasTag("auth"))
	assert.Contains(t, got.RelatedFiles, "a.go")
}

func TestMemoryNotFoundErrorsAsStorageKind(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.GetMemory(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, memerrors.Is(err, memerrors.KindStorage))
}

func TestIncrementAccessCountBumpsCountAndTimestamp(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	m := &types.Memory{ID: "m1", Kind: types.MemoryKindNote, Title: "t", Body: "b", CreatedAt: past, AccessedAt: past}
	require.NoError(t, b.SaveMemory(ctx, m))

	require.NoError(t, b.IncrementAccessCount(ctx, "m1"))

	got, err := b.GetMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccessCount)
	assert.True(t, got.AccessedAt.After(past))
}

func TestIncrementAccessCountMissingMemoryErrors(t *testing.T) {
	b := newTestBackend(t)
	err := b.IncrementAccessCount(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDeleteMemoryRemovesEntityLinks(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	now := time.Now().UTC()

	m := &types.Memory{ID: "m1", Kind: types.MemoryKindNote, Title: "t", Body: "b", CreatedAt: now, AccessedAt: now}
	require.NoError(t, b.SaveMemory(ctx, m))

	e := &types.Entity{ID: "e1", CanonicalName: "Postgres", Type: types.EntityTypeTechnology,
		MentionCount: 1, ExtractionConfidence: 0.9, FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, b.UpsertEntity(ctx, e))
	require.NoError(t, b.LinkEntityMemory(ctx, "e1", "m1"))

	require.NoError(t, b.DeleteMemory(ctx, "m1"))

	ids, err := b.MemoryIDsForEntity(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = b.GetMemory(ctx, "m1")
	assert.Error(t, err)
}

func TestEntityFindByNameIsCaseInsensitive(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e := &types.Entity{ID: "e1", CanonicalName: "Kubernetes", Type: types.EntityTypeTechnology,
		MentionCount: 3, ExtractionConfidence: 0.8, FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, b.UpsertEntity(ctx, e))

	got, err := b.FindEntityByName(ctx, "kubernetes")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "e1", got.ID)
}

func TestEntityFindByNameMissingReturnsNilNil(t *testing.T) {
	b := newTestBackend(t)
	got, err := b.FindEntityByName(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRelationshipUpsertAndQuery(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"e1", "e2"} {
		require.NoError(t, b.UpsertEntity(ctx, &types.Entity{
			ID: id, CanonicalName: id, Type: types.EntityTypeConcept,
			MentionCount: 1, ExtractionConfidence: 0.5, FirstSeenAt: now, LastSeenAt: now,
		}))
	}

	require.NoError(t, b.UpsertRelationship(ctx, &types.Relationship{
		ID: "r1", SourceID: "e1", TargetID: "e2", Type: "DEPENDS_ON", Strength: 3,
	}))

	rels, err := b.RelationshipsFrom(ctx, "e1", 2)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "e2", rels[0].TargetID)

	rels, err = b.RelationshipsFrom(ctx, "e1", 5)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestCommunityReportRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.UpsertCommunity(ctx, &types.Community{ID: "c1", Level: 0, EntityCount: 2, Modularity: 0.4}))
	require.NoError(t, b.UpsertCommunityReport(ctx, &types.CommunityReport{
		ID: "r1", CommunityID: "c1", Title: "Auth subsystem", Summary: "sum", FullContent: "full",
		KeyFindings: []string{"uses JWT", "rotates keys"},
	}))

	got, err := b.GetCommunityReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Auth subsystem", got.Title)
	assert.Equal(t, []string{"uses JWT", "rotates keys"}, got.KeyFindings)
}
