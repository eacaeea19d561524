// Package mcptools registers the retrieval engine's MCP tool surface:
// buildContext, resetContextCache, getContextCacheStats, and the
// benchmark harness, via mcp.NewTool + mcp.ObjectSchema + AddTool.
package mcptools

import (
	"context"
	"fmt"
	"time"

	mcp "github.com/fredcamaral/gomcp-sdk"
	"github.com/fredcamaral/gomcp-sdk/server"

	"github.com/lerianstudio/memory-retrieval/internal/benchmark"
	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/engine"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

const (
	toolBuildContext        = "build_context"
	toolResetContextCache   = "reset_context_cache"
	toolGetContextCacheStats = "get_context_cache_stats"
	toolBenchmarkRetrieval  = "benchmark_context_retrieval"
)

// Register attaches the retrieval tool surface to srv.
func Register(srv *server.Server, eng *engine.Engine, runner *benchmark.Runner, cfg *config.BenchmarkConfig) {
	srv.AddTool(mcp.NewTool(
		toolBuildContext,
		"Assemble a token-budgeted context document from memory (RAG), code-graph (KAG), and entity-graph (GraphRAG) retrieval, fused and reranked for the query.",
		mcp.ObjectSchema("Build context parameters", map[string]interface{}{
			"query":            mcp.StringParam("Natural-language query to retrieve context for", true),
			"tokenBudget":      mcp.NumberParam("Maximum tokens the assembled document may use", false),
			"includeCodeGraph": mcp.BooleanParam("Allow KAG (code-graph) retrieval for this query", false),
			"includeGraphRAG":  mcp.BooleanParam("Allow GraphRAG (entity-graph) retrieval for this query", false),
			"includeEvidence":  mcp.BooleanParam("Attach machine-readable evidence citations", false),
			"template":         mcp.StringParam("Rendering template: default, compact, or detailed", false),
		}, []string{"query"}),
	), mcp.ToolHandlerFunc(handleBuildContext(eng)))

	srv.AddTool(mcp.NewTool(
		toolResetContextCache,
		"Clear the fingerprinted context cache.",
		mcp.ObjectSchema("Reset cache parameters", map[string]interface{}{}, nil),
	), mcp.ToolHandlerFunc(handleResetContextCache(eng)))

	srv.AddTool(mcp.NewTool(
		toolGetContextCacheStats,
		"Report context cache hit/miss/eviction/invalidation counters.",
		mcp.ObjectSchema("Get cache stats parameters", map[string]interface{}{}, nil),
	), mcp.ToolHandlerFunc(handleGetContextCacheStats(eng)))

	srv.AddTool(mcp.NewTool(
		toolBenchmarkRetrieval,
		"Run the retrieval benchmark against a set of queries and report per-stage percentile latencies.",
		mcp.ObjectSchema("Benchmark parameters", map[string]interface{}{
			"queries":      mcp.ArraySchema("Queries to benchmark", map[string]interface{}{"type": "string"}),
			"runsPerQuery": mcp.NumberParam("Measured runs per query (default from config)", false),
			"warmupRuns":   mcp.NumberParam("Discarded warmup runs per query (default from config)", false),
		}, []string{"queries"}),
	), mcp.ToolHandlerFunc(handleBenchmark(runner, cfg)))
}

func handleBuildContext(eng *engine.Engine) func(context.Context, map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		query, ok := params["query"].(string)
		if !ok || query == "" {
			return nil, fmt.Errorf("query parameter is required and must be a non-empty string")
		}

		input := types.ContextInput{
			Query:            query,
			TokenBudget:      intParam(params, "tokenBudget", 4000),
			IncludeCodeGraph: boolParam(params, "includeCodeGraph", false),
			IncludeGraphRAG:  boolParam(params, "includeGraphRAG", false),
			IncludeEvidence:  boolParam(params, "includeEvidence", false),
			Template:         types.Template(stringParam(params, "template", string(types.TemplateDefault))),
			RequestedAt:      time.Now(),
		}

		result, err := eng.BuildContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("build context: %w", err)
		}
		return result, nil
	}
}

func handleResetContextCache(eng *engine.Engine) func(context.Context, map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		eng.ResetCache()
		return map[string]string{"status": "ok"}, nil
	}
}

func handleGetContextCacheStats(eng *engine.Engine) func(context.Context, map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return eng.CacheStats(), nil
	}
}

func handleBenchmark(runner *benchmark.Runner, cfg *config.BenchmarkConfig) func(context.Context, map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		rawQueries, ok := params["queries"].([]interface{})
		if !ok || len(rawQueries) == 0 {
			return nil, fmt.Errorf("queries parameter is required and must be a non-empty array of strings")
		}
		queries := make([]string, 0, len(rawQueries))
		for _, q := range rawQueries {
			if s, ok := q.(string); ok && s != "" {
				queries = append(queries, s)
			}
		}

		runsPerQuery := intParam(params, "runsPerQuery", cfg.RunsPerQuery)
		warmupRuns := intParam(params, "warmupRuns", cfg.WarmupRuns)

		samples := runner.Run(ctx, queries, runsPerQuery, warmupRuns, time.Now())
		return benchmark.Aggregate(samples, runner.Cache.Stats()), nil
	}
}

func intParam(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return def
}

func boolParam(params map[string]interface{}, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

func stringParam(params map[string]interface{}, key string, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}
