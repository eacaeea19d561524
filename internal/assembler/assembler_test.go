package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func TestBuildEmptyCandidatesProducesStub(t *testing.T) {
	a := New()
	res := a.Build(types.ContextInput{Query: "auth policy", TokenBudget: 1000}, nil, types.RouteMemory)
	assert.Equal(t, 0, res.Metadata.SectionsIncluded)
	assert.Contains(t, res.Context, "auth policy")
}

func TestBuildNeverExceedsBudget(t *testing.T) {
	a := New()
	var cands []types.Candidate
	for i := 0; i < 50; i++ {
		cands = append(cands, types.Candidate{
			ID: "c" + string(rune('a'+i)), Source: types.SourceRAG, Relevance: 1,
			SectionTitle: "Title", SectionBody: "one two three four five six seven eight nine ten",
		})
	}
	res := a.Build(types.ContextInput{Query: "q", TokenBudget: 300}, cands, types.RouteMemory)
	assert.LessOrEqual(t, res.Metadata.TotalTokens, 300)
	assert.True(t, res.Metadata.Truncated)
}

func TestBuildOrdersRAGThenKAGThenGraphRAG(t *testing.T) {
	a := New()
	cands := []types.Candidate{
		{ID: "g1", Source: types.SourceGraphRAG, SectionTitle: "G", SectionBody: "g body"},
		{ID: "k1", Source: types.SourceKAG, SectionTitle: "K", SectionBody: "k body"},
		{ID: "r1", Source: types.SourceRAG, SectionTitle: "R", SectionBody: "r body"},
	}
	res := a.Build(types.ContextInput{Query: "q", TokenBudget: 5000, IncludeEvidence: true}, cands, types.RouteHybrid)
	require.Len(t, res.Evidence, 3)
	assert.Equal(t, types.SourceRAG, res.Evidence[0].Source)
	assert.Equal(t, types.SourceKAG, res.Evidence[1].Source)
	assert.Equal(t, types.SourceGraphRAG, res.Evidence[2].Source)
}

func TestBuildCompactTemplateUsesFirstLineOnly(t *testing.T) {
	a := New()
	cands := []types.Candidate{
		{ID: "r1", Source: types.SourceRAG, SectionTitle: "R", SectionBody: "first line\nsecond line\nthird line"},
	}
	res := a.Build(types.ContextInput{Query: "q", TokenBudget: 5000, Template: types.TemplateCompact}, cands, types.RouteMemory)
	assert.NotContains(t, res.Context, "second line")
	assert.Contains(t, res.Context, "first line")
}

func TestBuildDetailedTemplateInlinesTagsAndImportance(t *testing.T) {
	a := New()
	cands := []types.Candidate{
		{ID: "r1", Source: types.SourceRAG, Relevance: 0.42, SectionTitle: "R", SectionBody: "body",
			Tags: []string{"auth", "security"}, Importance: 0.75},
	}
	res := a.Build(types.ContextInput{Query: "q", TokenBudget: 5000, Template: types.TemplateDetailed}, cands, types.RouteMemory)
	assert.Contains(t, res.Context, "auth, security")
	assert.Contains(t, res.Context, "0.75")
}

func TestBuildDetailedTemplateShowsNoneForUntaggedCandidate(t *testing.T) {
	a := New()
	cands := []types.Candidate{
		{ID: "k1", Source: types.SourceKAG, SectionTitle: "K", SectionBody: "body"},
	}
	res := a.Build(types.ContextInput{Query: "q", TokenBudget: 5000, Template: types.TemplateDetailed}, cands, types.RouteCode)
	assert.Contains(t, res.Context, "tags: none")
}

func TestBuildEvidenceCarriesGraphFieldsForGraphRAG(t *testing.T) {
	a := New()
	cands := []types.Candidate{
		{ID: "g1", Source: types.SourceGraphRAG, EntityID: "e1", SourceMemoryIDs: []string{"m1", "m2"},
			SectionTitle: "G", SectionBody: "body", Relevance: 0.6},
	}
	res := a.Build(types.ContextInput{Query: "q", TokenBudget: 5000, IncludeEvidence: true}, cands, types.RouteHybrid)
	require.Len(t, res.Evidence, 1)
	require.NotNil(t, res.Evidence[0].Graph)
	assert.Equal(t, "e1", res.Evidence[0].Graph.EntityID)
	assert.ElementsMatch(t, []string{"m1", "m2"}, res.Evidence[0].Graph.SourceMemoryIDs)
}
