package retrieval

import (
	"context"
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/embeddings"
	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/scoring"
	"github.com/lerianstudio/memory-retrieval/internal/storage"
	"github.com/lerianstudio/memory-retrieval/internal/types"
	"github.com/lerianstudio/memory-retrieval/internal/vectorstore"
)

// RAGChannel implements the embed, ANN search, load, score, sort pipeline.
type RAGChannel struct {
	Embed   embeddings.Client
	Vectors vectorstore.VectorStore
	Backend storage.Backend
	Scorer  *scoring.Scorer
}

// Run returns up to limit candidates matching q and filters, scored against
// now and sorted by descending boosted relevance.
func (c *RAGChannel) Run(ctx context.Context, q string, filters types.Filters, limit int, now time.Time) ([]types.Candidate, error) {
	vec, err := c.Embed.Embed(ctx, q)
	if err != nil {
		return nil, memerrors.New(memerrors.KindEmbedding, "rag.Run", err)
	}

	filter := buildFilter(filters)
	hits, err := c.Vectors.Search(ctx, vec, filter, limit)
	if err != nil {
		return nil, memerrors.New(memerrors.KindVectorStore, "rag.Run", err)
	}

	candidates := make([]types.Candidate, 0, len(hits))
	for _, h := range hits {
		id := h.MemoryID
		if id == "" {
			id = h.ID
		}
		m, err := c.Backend.GetMemory(ctx, id)
		if err != nil {
 continue // dropped: memory missing (step 3)
		}

		breakdown := c.Scorer.Score(m, h.Score, now)
		candidates = append(candidates, types.Candidate{
			ID:           "rag:" + m.ID,
			Source:       types.SourceRAG,
			Relevance:    breakdown.Boosted,
			QueryTerms:   queryTermSet(q),
			SectionTitle: m.Title,
			SectionBody:  formatMemorySection(m),
			MemoryID:     m.ID,
			Tags:         sortedTags(m.Tags),
			Importance:   m.Importance,
			Breakdown:    breakdown,
		})
	}

	sortCandidatesDesc(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func buildFilter(f types.Filters) *vectorstore.Filter {
	var conds []vectorstore.FilterCondition
	if f.Kind != "" {
		conds = append(conds, vectorstore.MatchValueCond("kind", string(f.Kind)))
	}
	if len(f.Tags) > 0 {
		conds = append(conds, vectorstore.MatchAnyOfCond("tags", f.Tags))
	}
	if f.MinImportance > 0 {
		conds = append(conds, vectorstore.RangeGTECond("importance", f.MinImportance))
	}
	if len(f.RelatedFiles) > 0 {
		conds = append(conds, vectorstore.MatchAnyOfCond("related_files", f.RelatedFiles))
	}
	if len(conds) == 0 {
		return nil
	}
	return &vectorstore.Filter{Conditions: conds}
}

func formatMemorySection(m *types.Memory) string {
	if m.Summary != "" {
		return m.Summary + "\n\n" + m.Body
	}
	return m.Body
}

func sortCandidatesDesc(cs []types.Candidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].Relevance > cs[j-1].Relevance; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}
