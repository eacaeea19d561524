package benchmark

import (
	"context"
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/assembler"
	"github.com/lerianstudio/memory-retrieval/internal/cache"
	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/retrieval"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Runner times each retrieval stage individually (sequentially, rather than
// through the orchestrator's concurrent fan-out) so per-channel latencies
// are attributable rather than skewed by overlap.
type Runner struct {
	RAG         *retrieval.RAGChannel
	KAG         *retrieval.KAGChannel
	GraphRAG    *retrieval.GraphRAGChannel
	Ratios      map[types.Route]config.RouteRatio
	Assembler   *assembler.Assembler
	Cache       *cache.Cache // optional; nil disables caching for the run
	ScoringHash string
	TokenBudget int
}

// RunQuery executes query once (as run-index run) and returns the timed
// sample. now is the fixed instant the run is measured against, so repeated
// runs in a single benchmark invocation stay comparable.
func (r *Runner) RunQuery(ctx context.Context, query string, run int, now time.Time) types.QuerySample {
	sample := types.QuerySample{Query: query, Run: run, Latency: make(map[types.Stage]float64)}
	totalStart := time.Now()

	input := types.ContextInput{
		Query: query, TokenBudget: r.TokenBudget,
		IncludeCodeGraph: true, IncludeGraphRAG: true, IncludeEvidence: true,
		RequestedAt: now,
	}

	var key string
	if r.Cache != nil {
		key = cache.Fingerprint(input, r.ScoringHash)
		if cached, ok := r.Cache.Get(key, now); ok {
			sample.CacheHit = true
			sample.Route = cached.Metadata.Route
			sample.Tokens = cached.Metadata.TotalTokens
			sample.Sections = cached.Metadata
			sample.Latency[types.StageTotal] = millisSince(totalStart)
			return sample
		}
	}

	route := retrieval.Classify(query, input.IncludeCodeGraph)
	sample.Route = route
	ratio := r.Ratios[route]

	var ragCands, kagCands, graphragCands []types.Candidate
	var err error

	if r.RAG != nil && (ratio.RAG > 0 || route == types.RouteMemory) {
		start := time.Now()
		ragCands, err = r.RAG.Run(ctx, query, input.Filters, retrieval.RAGLimitFor(ratio), now)
		sample.Latency[types.StageRAG] = millisSince(start)
		if err != nil {
			sample.Error = err.Error()
			sample.Latency[types.StageTotal] = millisSince(totalStart)
			return sample
		}
	}

	if r.KAG != nil && ratio.KAG > 0 && input.IncludeCodeGraph {
		start := time.Now()
		kagCands, err = r.KAG.Run(ctx, query)
		sample.Latency[types.StageKAG] = millisSince(start)
		if err != nil {
			sample.Error = err.Error()
			sample.Latency[types.StageTotal] = millisSince(totalStart)
			return sample
		}
	}

	if r.GraphRAG != nil && ratio.GraphRAG > 0 && input.IncludeGraphRAG {
		start := time.Now()
		graphragCands, err = r.GraphRAG.Run(ctx, query, types.GraphRAGLocal)
		sample.Latency[types.StageGraphRAG] = millisSince(start)
		if err != nil {
			sample.Error = err.Error()
			sample.Latency[types.StageTotal] = millisSince(totalStart)
			return sample
		}
	}

	rerankStart := time.Now()
	all := make([]types.Candidate, 0, len(ragCands)+len(kagCands)+len(graphragCands))
	all = append(all, ragCands...)
	all = append(all, kagCands...)
	all = append(all, graphragCands...)
	candidates := retrieval.Rerank(all, ratio, route)
	sample.Latency[types.StageRerank] = millisSince(rerankStart)

	formatStart := time.Now()
	doc, ordered, truncated := r.Assembler.Format(input, candidates)
	sample.Latency[types.StageFormat] = millisSince(formatStart)

	tokenizeStart := time.Now()
	tokens := r.Assembler.Tokenize(doc)
	sample.Latency[types.StageTokenize] = millisSince(tokenizeStart)

	evidenceStart := time.Now()
	var evidence []types.Evidence
	if input.IncludeEvidence {
		evidence = r.Assembler.Evidence(ordered)
	}
	sample.Latency[types.StageEvidence] = millisSince(evidenceStart)

	metadata := types.ContextMetadata{
		TotalTokens:      tokens,
		SectionsIncluded: len(ordered),
		RAGSections:      countSource(ordered, types.SourceRAG),
		KAGSections:      countSource(ordered, types.SourceKAG),
		GraphRAGSections: countSource(ordered, types.SourceGraphRAG),
		Truncated:        truncated,
		Route:            route,
	}
	sample.Tokens = tokens
	sample.Sections = metadata

	if r.Cache != nil {
		result := types.ContextResult{Context: doc, Metadata: metadata, Evidence: evidence}
		r.Cache.Set(key, result, contributingIDs(candidates), now)
	}

	sample.Latency[types.StageTotal] = millisSince(totalStart)
	return sample
}

// Run executes every query in queries for runsPerQuery runs each (after
// warmupRuns discarded runs per query) and returns the per-sample results.
func (r *Runner) Run(ctx context.Context, queries []string, runsPerQuery, warmupRuns int, now time.Time) []types.QuerySample {
	var samples []types.QuerySample
	for _, q := range queries {
		for w := 0; w < warmupRuns; w++ {
			r.RunQuery(ctx, q, -1-w, now)
		}
		for run := 0; run < runsPerQuery; run++ {
			samples = append(samples, r.RunQuery(ctx, q, run, now))
		}
	}
	return samples
}

func millisSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func countSource(cs []types.Candidate, src types.Source) int {
	n := 0
	for _, c := range cs {
		if c.Source == src {
			n++
		}
	}
	return n
}

func contributingIDs(candidates []types.Candidate) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range candidates {
		if c.MemoryID != "" {
			ids[c.MemoryID] = struct{}{}
		}
		for _, id := range c.SourceMemoryIDs {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
