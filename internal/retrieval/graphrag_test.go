package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/embeddings"
	"github.com/lerianstudio/memory-retrieval/internal/storage"
	"github.com/lerianstudio/memory-retrieval/internal/types"
	"github.com/lerianstudio/memory-retrieval/internal/vectorstore"
)

func newTestGraphRAGChannel(t *testing.T) (*GraphRAGChannel, storage.Backend, *vectorstore.InMemoryStore, *vectorstore.InMemoryStore) {
	t.Helper()
	backend, err := storage.NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	require.NoError(t, backend.Initialize(context.Background()))
	t.Cleanup(func() { _ = backend.Close() })

	entityVectors := vectorstore.NewInMemoryStore()
	reportVectors := vectorstore.NewInMemoryStore()
	mock := embeddings.NewMockClient(8)

	ch := &GraphRAGChannel{
		Embed: mock, EntityVectors: entityVectors, ReportVectors: reportVectors, Backend: backend,
		MaxDepth: 2, MinEdgeWeight: 2, MaxIterations: 3, ConvergenceThreshold: 0.9,
	}
	return ch, backend, entityVectors, reportVectors
}

func TestGraphRAGLocalExpandsRelationships(t *testing.T) {
	ch, backend, entityVectors, _ := newTestGraphRAGChannel(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e1 := types.Entity{ID: "e1", CanonicalName: "authentication service", Type: types.EntityTypeComponent,
		ExtractionConfidence: 0.9, FirstSeenAt: now, LastSeenAt: now}
	e2 := types.Entity{ID: "e2", CanonicalName: "token store", Type: types.EntityTypeComponent,
		ExtractionConfidence: 0.8, FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, backend.UpsertEntity(ctx, &e1))
	require.NoError(t, backend.UpsertEntity(ctx, &e2))
	require.NoError(t, backend.UpsertRelationship(ctx, &types.Relationship{
		ID: "r1", SourceID: "e1", TargetID: "e2", Type: "DEPENDS_ON", Strength: 3,
	}))

	vec, err := ch.Embed.Embed(ctx, "authentication service")
	require.NoError(t, err)
	require.NoError(t, entityVectors.Upsert(ctx, "e1", vec, map[string]interface{}{"entityId": "e1"}))

	res, err := ch.Local(ctx, "authentication service")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Entities), 1)
}

func TestGraphRAGGlobalResolvesReportsByFallbackPrecedence(t *testing.T) {
	ch, backend, _, reportVectors := newTestGraphRAGChannel(t)
	ctx := context.Background()

	require.NoError(t, backend.UpsertCommunity(ctx, &types.Community{ID: "c1", Level: 0, EntityCount: 2}))
	require.NoError(t, backend.UpsertCommunityReport(ctx, &types.CommunityReport{
		ID: "rep1", CommunityID: "c1", Title: "Auth subsystem", Summary: "handles login and tokens",
	}))

	vec, err := ch.Embed.Embed(ctx, "auth subsystem")
	require.NoError(t, err)
	// no explicit reportId in payload; MemoryID carries the report id instead.
	require.NoError(t, reportVectors.Upsert(ctx, "point1", vec, map[string]interface{}{
		"type": "GRAPHRAG_REPORT", "memory_id": "rep1",
	}))

	res, err := ch.Global(ctx, "auth subsystem")
	require.NoError(t, err)
	require.Len(t, res.Reports, 1)
	require.Equal(t, "Auth subsystem", res.Reports[0].Title)
	require.Contains(t, res.SynthesisedAnswer, "Auth subsystem")
}

func TestGraphRAGDriftIteratesAndReportsConvergence(t *testing.T) {
	ch, backend, entityVectors, _ := newTestGraphRAGChannel(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e1 := types.Entity{ID: "e1", CanonicalName: "billing engine", Type: types.EntityTypeComponent,
		ExtractionConfidence: 0.9, FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, backend.UpsertEntity(ctx, &e1))
	vec, err := ch.Embed.Embed(ctx, "billing engine")
	require.NoError(t, err)
	require.NoError(t, entityVectors.Upsert(ctx, "e1", vec, map[string]interface{}{"entityId": "e1"}))

	res, err := ch.Drift(ctx, "billing engine")
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Iterations, 1)
	require.NotEmpty(t, res.Hypotheses)
}
