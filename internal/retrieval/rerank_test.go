package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func mkCandidate(id string, src types.Source, relevance float64, terms ...string) types.Candidate {
	set := map[string]struct{}{}
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return types.Candidate{ID: id, Source: src, Relevance: relevance, QueryTerms: set}
}

func TestRerankEmptyInputReturnsEmpty(t *testing.T) {
	assert.Empty(t, Rerank(nil, config.RouteRatio{RAG: 1}, types.RouteHybrid))
}

func TestRerankPreservesAllCandidates(t *testing.T) {
	cands := []types.Candidate{
		mkCandidate("r1", types.SourceRAG, 0.9),
		mkCandidate("r2", types.SourceRAG, 0.8),
		mkCandidate("k1", types.SourceKAG, 0.95),
		mkCandidate("g1", types.SourceGraphRAG, 0.7),
	}
	out := Rerank(cands, config.RouteRatio{RAG: 0.5, KAG: 0.3, GraphRAG: 0.2}, types.RouteHybrid)
	require.Len(t, out, len(cands))
}

func TestRerankNoMoreThanTwoConsecutiveSameSourceInHybridMode(t *testing.T) {
	cands := []types.Candidate{
		mkCandidate("r1", types.SourceRAG, 0.99),
		mkCandidate("r2", types.SourceRAG, 0.98),
		mkCandidate("r3", types.SourceRAG, 0.97),
		mkCandidate("r4", types.SourceRAG, 0.96),
		mkCandidate("k1", types.SourceKAG, 0.5),
		mkCandidate("g1", types.SourceGraphRAG, 0.5),
	}
	out := Rerank(cands, config.RouteRatio{RAG: 0.6, KAG: 0.2, GraphRAG: 0.2}, types.RouteHybrid)

	maxRun := 0
	run := 0
	var prev types.Source
	for i, c := range out {
		if i > 0 && c.Source == prev {
			run++
		} else {
			run = 1
		}
		if run > maxRun {
			maxRun = run
		}
		prev = c.Source
	}
	assert.LessOrEqual(t, maxRun, 2) // k1 and g1 break up the four RAG picks: r1 r2 k1 r3 r4 g1
}

func TestRerankCollapseGuardAppliesOnlyInHybridMode(t *testing.T) {
	cands := func() []types.Candidate {
		return []types.Candidate{
			mkCandidate("r1", types.SourceRAG, 0.99),
			mkCandidate("r2", types.SourceRAG, 0.98),
			mkCandidate("r3", types.SourceRAG, 0.97),
			mkCandidate("r4", types.SourceRAG, 0.96),
			mkCandidate("k1", types.SourceKAG, 0.5),
		}
	}
	ratio := config.RouteRatio{RAG: 0.7, KAG: 0.3}

	memory := Rerank(cands(), ratio, types.RouteMemory)
	require.Len(t, memory, 5)
	// outside hybrid mode the guard is off: pure relevance order wins.
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "k1"}, candidateIDs(memory))

	hybrid := Rerank(cands(), ratio, types.RouteHybrid)
	require.Len(t, hybrid, 5)
	// in hybrid mode the guard forces k1 in after two consecutive RAG picks
	// instead of leaving it for the very end.
	assert.Equal(t, []string{"r1", "r2", "k1", "r3", "r4"}, candidateIDs(hybrid))
}

func candidateIDs(cs []types.Candidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

func TestRerankNoveltyPromotesCandidateWithUncoveredTerms(t *testing.T) {
	x := mkCandidate("x", types.SourceRAG, 0.5, "common")
	a := mkCandidate("a", types.SourceRAG, 0.5, "common")
	b := mkCandidate("b", types.SourceKAG, 0.5, "beta")

	out := Rerank([]types.Candidate{x, a, b}, config.RouteRatio{RAG: 0.67, KAG: 0.33}, types.RouteHybrid)
	require.Len(t, out, 3)
	assert.Equal(t, "x", out[0].ID)
	// "a" repeats x's already-covered term while "b" introduces a new one;
	// the novelty boost should surface "b" ahead of "a" in the second slot.
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "a", out[2].ID)
}
