package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lerianstudio/memory-retrieval/internal/embeddings"
	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/storage"
	"github.com/lerianstudio/memory-retrieval/internal/types"
	"github.com/lerianstudio/memory-retrieval/internal/vectorstore"
)

const (
	graphRAGMinSemantic = 0.12
	graphRAGMinLexical  = 0.2
	graphRAGMaxReports  = 10
)

// GraphRAGChannel implements three search modes. Entities
// and community reports live in separate vector collections, mirroring the
// Qdrant adapter's one-collection-per-concern design.
type GraphRAGChannel struct {
	Embed            embeddings.Client
	EntityVectors    vectorstore.VectorStore
	ReportVectors    vectorstore.VectorStore
	Backend          storage.Backend
	MaxDepth         int
	MinEdgeWeight    int
	MaxIterations    int
	ConvergenceThreshold float64
}

// Run dispatches to the requested mode and flattens the result into
// candidate sections for the fusion reranker.
func (c *GraphRAGChannel) Run(ctx context.Context, q string, mode types.GraphRAGMode) ([]types.Candidate, error) {
	switch mode {
	case types.GraphRAGGlobal:
		res, err := c.Global(ctx, q)
		if err != nil {
			return nil, err
		}
		return globalCandidates(q, res), nil
	case types.GraphRAGDrift:
		res, err := c.Drift(ctx, q)
		if err != nil {
			return nil, err
		}
		return localEntityCandidates(q, res.Entities, nil), nil
	default:
		res, err := c.Local(ctx, q)
		if err != nil {
			return nil, err
		}
		return localEntityCandidates(q, res.Entities, res.Relationships), nil
	}
}

// Local implements the entity-centric mode.
func (c *GraphRAGChannel) Local(ctx context.Context, q string) (*types.GraphRAGLocalResult, error) {
	vec, err := c.Embed.Embed(ctx, q)
	if err != nil {
		return nil, memerrors.New(memerrors.KindEmbedding, "graphrag.Local", err)
	}

	hits, err := c.EntityVectors.Search(ctx, vec, nil, 50)
	if err != nil {
		return nil, memerrors.New(memerrors.KindVectorStore, "graphrag.Local", err)
	}

	terms := queryTermSet(q)
	var seedEntities []types.Entity
	for _, h := range hits {
		if h.Score < graphRAGMinSemantic {
			continue
		}
		e, err := c.Backend.GetEntity(ctx, entityIDFromHit(h))
		if err != nil || e == nil {
			continue
		}
		if lexicalOverlap(terms, e.CanonicalName) < graphRAGMinLexical {
			continue
		}
		seedEntities = append(seedEntities, *e)
	}

	visited := make(map[string]struct{}, len(seedEntities))
	entities := append([]types.Entity{}, seedEntities...)
	for _, e := range seedEntities {
		visited[e.ID] = struct{}{}
	}
	var relationships []types.Relationship
	frontier := seedEntities
	for depth := 0; depth < c.MaxDepth; depth++ {
		var next []types.Entity
		for _, e := range frontier {
			rels, err := c.Backend.RelationshipsFrom(ctx, e.ID, c.MinEdgeWeight)
			if err != nil {
				continue
			}
			for _, r := range rels {
				relationships = append(relationships, r)
				if _, ok := visited[r.TargetID]; ok {
					continue
				}
				target, err := c.Backend.GetEntity(ctx, r.TargetID)
				if err != nil || target == nil {
					continue
				}
				visited[r.TargetID] = struct{}{}
				entities = append(entities, *target)
				next = append(next, *target)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	return &types.GraphRAGLocalResult{
		Entities:      entities,
		Relationships: relationships,
		TotalExpanded: len(visited),
	}, nil
}

// Global implements the community-centric mode.
func (c *GraphRAGChannel) Global(ctx context.Context, q string) (*types.GraphRAGGlobalResult, error) {
	vec, err := c.Embed.Embed(ctx, q)
	if err != nil {
		return nil, memerrors.New(memerrors.KindEmbedding, "graphrag.Global", err)
	}

	filter := &vectorstore.Filter{Conditions: []vectorstore.FilterCondition{
		vectorstore.MatchValueCond("type", "GRAPHRAG_REPORT"),
	}}
	hits, err := c.ReportVectors.Search(ctx, vec, filter, graphRAGMaxReports*3)
	if err != nil {
		return nil, memerrors.New(memerrors.KindVectorStore, "graphrag.Global", err)
	}

	bestScore := make(map[string]float64)
	for _, h := range hits {
		id := reportIDFromHit(h)
		if id == "" {
			continue
		}
		if s, ok := bestScore[id]; !ok || h.Score > s {
			bestScore[id] = h.Score
		}
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(bestScore))
	for id, s := range bestScore {
		ranked = append(ranked, scored{id, s})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > graphRAGMaxReports {
		ranked = ranked[:graphRAGMaxReports]
	}

	reports := make([]types.CommunityReport, 0, len(ranked))
	var summaries []string
	for _, r := range ranked {
		rep, err := c.Backend.GetCommunityReport(ctx, r.id)
		if err != nil || rep == nil {
			continue
		}
		reports = append(reports, *rep)
		summaries = append(summaries, fmt.Sprintf("%s: %s (source: community %s)", rep.Title, rep.Summary, rep.CommunityID))
	}

	return &types.GraphRAGGlobalResult{
		Reports:           reports,
		SynthesisedAnswer: strings.Join(summaries, "\n"),
	}, nil
}

// Drift implements the iterative mode: seed with Local, synthesise a
// hypothesis, re-embed it, and iterate until convergence or MaxIterations.
func (c *GraphRAGChannel) Drift(ctx context.Context, q string) (*types.GraphRAGDriftResult, error) {
	local, err := c.Local(ctx, q)
	if err != nil {
		return nil, err
	}

	hypothesis := synthesiseHypothesis(q, local.Entities)
	hypotheses := []string{hypothesis}

	prevVec, err := c.Embed.Embed(ctx, hypothesis)
	if err != nil {
		return nil, memerrors.New(memerrors.KindEmbedding, "graphrag.Drift", err)
	}

	maxIter := c.MaxIterations
	if maxIter <= 0 {
		maxIter = 3
	}

	converged := false
	iterations := 1
	for i := 1; i < maxIter; i++ {
		next, err := c.Local(ctx, hypothesis)
		if err != nil {
			break
		}
		local.Entities = mergeEntities(local.Entities, next.Entities)

		nextHypothesis := synthesiseHypothesis(q, local.Entities)
		nextVec, err := c.Embed.Embed(ctx, nextHypothesis)
		if err != nil {
			break
		}

		sim := cosineSimilarity(prevVec, nextVec)
		hypotheses = append(hypotheses, nextHypothesis)
		iterations++
		prevVec = nextVec
		hypothesis = nextHypothesis

		if sim >= c.ConvergenceThreshold {
			converged = true
			break
		}
	}

	return &types.GraphRAGDriftResult{
		Entities:   local.Entities,
		Hypotheses: hypotheses,
		Iterations: iterations,
		Converged:  converged,
	}, nil
}

func synthesiseHypothesis(q string, entities []types.Entity) string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.CanonicalName)
	}
	return fmt.Sprintf("%s relates to: %s", q, strings.Join(names, ", "))
}

func mergeEntities(a, b []types.Entity) []types.Entity {
	seen := make(map[string]struct{}, len(a))
	out := append([]types.Entity{}, a...)
	for _, e := range a {
		seen[e.ID] = struct{}{}
	}
	for _, e := range b {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

func entityIDFromHit(h vectorstore.Hit) string {
	if id, ok := h.Payload["entityId"].(string); ok && id != "" {
		return id
	}
	return h.ID
}

// reportIDFromHit resolves a report's storage id from a search hit,
// preferring an explicit payload report id, falling back to the memory id
// surfaced by the vector store, and finally the raw point id.
func reportIDFromHit(h vectorstore.Hit) string {
	if id, ok := h.Payload["reportId"].(string); ok && id != "" {
		return id
	}
	if h.MemoryID != "" {
		return h.MemoryID
	}
	return h.ID
}

func lexicalOverlap(terms map[string]struct{}, name string) float64 {
	nameTerms := strings.Fields(strings.ToLower(name))
	if len(nameTerms) == 0 || len(terms) == 0 {
		return 0
	}
	matches := 0
	for _, t := range nameTerms {
		if _, ok := terms[t]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(nameTerms))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func localEntityCandidates(q string, entities []types.Entity, relationships []types.Relationship) []types.Candidate {
	out := make([]types.Candidate, 0, len(entities))
	for _, e := range entities {
		out = append(out, types.Candidate{
			ID:              "graphrag:entity:" + e.ID,
			Source:          types.SourceGraphRAG,
			Relevance:       e.ExtractionConfidence,
			QueryTerms:      queryTermSet(q),
			SectionTitle:    e.CanonicalName,
			SectionBody:     formatEntitySection(e, relationships),
			EntityID:        e.ID,
			SourceMemoryIDs: e.SourceMemoryIDs,
		})
	}
	return out
}

func globalCandidates(q string, res *types.GraphRAGGlobalResult) []types.Candidate {
	out := make([]types.Candidate, 0, len(res.Reports))
	for _, r := range res.Reports {
		relevance := 0.5
		if r.Rating != nil {
			relevance = *r.Rating
		}
		out = append(out, types.Candidate{
			ID:           "graphrag:report:" + r.ID,
			Source:       types.SourceGraphRAG,
			Relevance:    relevance,
			QueryTerms:   queryTermSet(q),
			SectionTitle: r.Title,
			SectionBody:  r.Summary,
			EntityID:     r.CommunityID,
		})
	}
	return out
}

func formatEntitySection(e types.Entity, relationships []types.Relationship) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", e.CanonicalName, e.Type)
	if e.Description != "" {
		fmt.Fprintf(&b, "%s\n", e.Description)
	}
	var edges []string
	for _, r := range relationships {
		if r.SourceID == e.ID {
			edges = append(edges, fmt.Sprintf("%s %s", r.Type, r.TargetID))
		}
	}
	if len(edges) > 0 {
		fmt.Fprintf(&b, "Relationships: %s\n", strings.Join(truncateList(edges, 5), ", "))
	}
	return b.String()
}
