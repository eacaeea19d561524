// Package engine wires the retrieval orchestrator, context assembler, and
// fingerprinted cache into the single buildContext entry point 
// exposes to MCP tools and the HTTP API.
package engine

import (
	"context"
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/assembler"
	"github.com/lerianstudio/memory-retrieval/internal/cache"
	"github.com/lerianstudio/memory-retrieval/internal/retrieval"
	"github.com/lerianstudio/memory-retrieval/internal/scoring"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Engine is the assembled retrieval pipeline: classify+retrieve+rerank,
// assemble, cache.
type Engine struct {
	Orchestrator *retrieval.Orchestrator
	Assembler    *assembler.Assembler
	Cache        *cache.Cache
	ScoringHash  string
}

// New builds an Engine from its collaborators. scoringCfg is hashed once so
// every cache key reflects the active scoring configuration.
func New(orch *retrieval.Orchestrator, asm *assembler.Assembler, c *cache.Cache, scoringCfg types.ScoringConfig) *Engine {
	return &Engine{Orchestrator: orch, Assembler: asm, Cache: c, ScoringHash: scoring.ConfigHash(scoringCfg)}
}

// BuildContext implements buildContext: check the cache, else
// retrieve+rerank+assemble and populate it.
func (e *Engine) BuildContext(ctx context.Context, input types.ContextInput) (types.ContextResult, error) {
	now := input.RequestedAt
	if now.IsZero() {
		now = time.Now()
	}

	key := cache.Fingerprint(input, e.ScoringHash)
	if cached, ok := e.Cache.Get(key, now); ok {
		result := *cached
		result.Metadata.CacheHit = true
		return result, nil
	}

	input.RequestedAt = now
	candidates, route, err := e.Orchestrator.Retrieve(ctx, input)
	if err != nil {
		return types.ContextResult{}, err
	}

	result := e.Assembler.Build(input, candidates, route)
	e.Cache.Set(key, result, contributingIDs(candidates), now)
	return result, nil
}

// ResetCache clears every cached entry (resetContextCache).
func (e *Engine) ResetCache() {
	e.Cache.InvalidateAll()
}

// CacheStats exposes the cache's current counters (
// getContextCacheStats).
func (e *Engine) CacheStats() types.CacheStats {
	return e.Cache.Stats()
}

// InvalidateMemory drops cached entries influenced by memoryID (targeted
// invalidation, triggered by memory write/delete tools).
func (e *Engine) InvalidateMemory(memoryID string) {
	e.Cache.InvalidateByMemoryID(memoryID)
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
