package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/assembler"
	"github.com/lerianstudio/memory-retrieval/internal/cache"
	"github.com/lerianstudio/memory-retrieval/internal/codegraph"
	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/embeddings"
	"github.com/lerianstudio/memory-retrieval/internal/retrieval"
	"github.com/lerianstudio/memory-retrieval/internal/scoring"
	"github.com/lerianstudio/memory-retrieval/internal/storage"
	"github.com/lerianstudio/memory-retrieval/internal/types"
	"github.com/lerianstudio/memory-retrieval/internal/vectorstore"
)

func newTestRunner(t *testing.T) (*Runner, storage.Backend, *require.Assertions) {
	t.Helper()
	backend, err := storage.NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	require.NoError(t, backend.Initialize(context.Background()))
	t.Cleanup(func() { _ = backend.Close() })

	vectors := vectorstore.NewInMemoryStore()
	mock := embeddings.NewMockClient(8)
	sc := scoring.New(types.ScoringConfig{
		Weights:   types.ScoreWeights{Semantic: 1, Recency: 0, Confidence: 0, Frequency: 0},
		Recency:   types.RecencyConfig{Policy: types.RecencyExponential, HalfLifeDays: 30},
		Frequency: types.FrequencyConfig{Method: types.FrequencyLog, MaxCount: 100, ColdStartValue: 0.3},
	})

	graph := codegraph.NewInMemoryStore()
	require.NoError(t, graph.Upsert(context.Background(), &types.CodeNode{
		ID: "n1", Name: "getUserById", Kind: "function", Signature: "func getUserById(id string) (*User, error)",
	}))

	runner := &Runner{
		RAG:       &retrieval.RAGChannel{Embed: mock, Vectors: vectors, Backend: backend, Scorer: sc},
		KAG:       &retrieval.KAGChannel{Graph: graph, MaxDepth: 2, MaxNodes: 50},
		Ratios:    config.Default().Retrieval.RouteRatios,
		Assembler: assembler.New(),
		Cache:     cache.New(types.CacheConfig{Enabled: true, MaxEntries: 10, TTLMs: 60_000}),
		TokenBudget: 2000,
	}
	return runner, backend, require.New(t)
}

func TestRunnerTimesEachStageForAMemoryRouteQuery(t *testing.T) {
	runner, backend, req := newTestRunner(t)
	ctx := context.Background()
	now := time.Now().UTC()

	req.NoError(backend.SaveMemory(ctx, &types.Memory{
		ID: "m1", Kind: types.MemoryKindNote, Title: "t", Body: "alpha bravo",
		Importance: 0.7, CreatedAt: now, AccessedAt: now,
	}))
	vec, err := runner.RAG.Embed.Embed(ctx, "alpha bravo")
	req.NoError(err)
	req.NoError(runner.RAG.Vectors.Upsert(ctx, "v1", vec, map[string]interface{}{"memory_id": "m1"}))

	sample := runner.RunQuery(ctx, "alpha bravo", 0, now)
	req.Empty(sample.Error)
	req.Equal(types.RouteMemory, sample.Route)
	req.Contains(sample.Latency, types.StageRAG)
	req.Contains(sample.Latency, types.StageRerank)
	req.Contains(sample.Latency, types.StageFormat)
	req.Contains(sample.Latency, types.StageTokenize)
	req.Contains(sample.Latency, types.StageEvidence)
	req.Contains(sample.Latency, types.StageTotal)
	req.Greater(sample.Tokens, 0)
}

func TestRunnerSecondRunHitsCache(t *testing.T) {
	runner, backend, req := newTestRunner(t)
	ctx := context.Background()
	now := time.Now().UTC()

	req.NoError(backend.SaveMemory(ctx, &types.Memory{
		ID: "m1", Kind: types.MemoryKindNote, Title: "t", Body: "alpha", Importance: 0.5, CreatedAt: now, AccessedAt: now,
	}))
	vec, err := runner.RAG.Embed.Embed(ctx, "alpha")
	req.NoError(err)
	req.NoError(runner.RAG.Vectors.Upsert(ctx, "v1", vec, map[string]interface{}{"memory_id": "m1"}))

	first := runner.RunQuery(ctx, "alpha", 0, now)
	req.False(first.CacheHit)

	second := runner.RunQuery(ctx, "alpha", 1, now)
	req.True(second.CacheHit)
}

func TestRunnerRoutesCodeQueryThroughKAG(t *testing.T) {
	runner, _, req := newTestRunner(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sample := runner.RunQuery(ctx, "what calls getUserById(", 0, now)
	req.Empty(sample.Error)
	req.Equal(types.RouteCode, sample.Route)
	req.Contains(sample.Latency, types.StageKAG)
}

func TestRunRunsWarmupAndMeasuredRuns(t *testing.T) {
	runner, backend, req := newTestRunner(t)
	ctx := context.Background()
	now := time.Now().UTC()

	req.NoError(backend.SaveMemory(ctx, &types.Memory{
		ID: "m1", Kind: types.MemoryKindNote, Title: "t", Body: "alpha", Importance: 0.5, CreatedAt: now, AccessedAt: now,
	}))
	vec, err := runner.RAG.Embed.Embed(ctx, "alpha")
	req.NoError(err)
	req.NoError(runner.RAG.Vectors.Upsert(ctx, "v1", vec, map[string]interface{}{"memory_id": "m1"}))

	samples := runner.Run(ctx, []string{"alpha"}, 3, 1, now)
	req.Len(samples, 3)
	for _, s := range samples {
		req.GreaterOrEqual(s.Run, 0)
	}
}
