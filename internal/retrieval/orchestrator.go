package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Orchestrator fans out the three retrieval channels concurrently: a
// context deadline propagates to every sub-task, and the first failure
// cancels the others.
type Orchestrator struct {
	RAG      *RAGChannel
	KAG      *KAGChannel
	GraphRAG *GraphRAGChannel
	Ratios   map[types.Route]config.RouteRatio
}

// Retrieve classifies the route, runs whichever channels the route calls
// for, and returns the fused candidate list.
func (o *Orchestrator) Retrieve(ctx context.Context, input types.ContextInput) ([]types.Candidate, types.Route, error) {
	route := Classify(input.Query, input.IncludeCodeGraph)
	ratio := o.Ratios[route]

	var ragCands, kagCands, graphragCands []types.Candidate

	g, gctx := errgroup.WithContext(ctx)

	if ratio.RAG > 0 || route == types.RouteMemory {
		g.Go(func() error {
			limit := RAGLimitFor(ratio)
			cands, err := o.RAG.Run(gctx, input.Query, input.Filters, limit, input.RequestedAt)
			if err != nil {
				return err
			}
			ragCands = cands
			return nil
		})
	}

	if ratio.KAG > 0 && input.IncludeCodeGraph {
		g.Go(func() error {
			cands, err := o.KAG.Run(gctx, input.Query)
			if err != nil {
				return err
			}
			kagCands = cands
			return nil
		})
	}

	if ratio.GraphRAG > 0 && input.IncludeGraphRAG {
		g.Go(func() error {
			cands, err := o.GraphRAG.Run(gctx, input.Query, types.GraphRAGLocal)
			if err != nil {
				return err
			}
			graphragCands = cands
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, route, err
	}

	all := make([]types.Candidate, 0, len(ragCands)+len(kagCands)+len(graphragCands))
	all = append(all, ragCands...)
	all = append(all, kagCands...)
	all = append(all, graphragCands...)

	return Rerank(all, ratio, route), route, nil
}

// RAGLimitFor derives the RAG channel's candidate limit from its route
// quota, so narrower channels don't over-fetch only to be discarded by the
// reranker's quota split.
func RAGLimitFor(ratio config.RouteRatio) int {
	const base = 20
	if ratio.RAG <= 0 {
		return base
	}
	n := int(float64(base) * ratio.RAG * 2)
	if n < 5 {
		n = 5
	}
	return n
}

// WithTimeout returns a context bounded by d, or ctx unchanged if d <= 0.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
