// Command server is the retrieval engine's main binary. It wires storage,
// vectorstore, embeddings, scoring, the three retrieval channels, the
// assembler, and the context cache into an engine.Engine, then exposes it
// over stdio MCP or HTTP behind a flag-based mode switch with graceful
// shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mcpsdk "github.com/fredcamaral/gomcp-sdk"
	"github.com/fredcamaral/gomcp-sdk/transport"

	"github.com/lerianstudio/memory-retrieval/internal/assembler"
	"github.com/lerianstudio/memory-retrieval/internal/benchmark"
	"github.com/lerianstudio/memory-retrieval/internal/cache"
	"github.com/lerianstudio/memory-retrieval/internal/codegraph"
	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/embeddings"
	"github.com/lerianstudio/memory-retrieval/internal/engine"
	"github.com/lerianstudio/memory-retrieval/internal/httpapi"
	"github.com/lerianstudio/memory-retrieval/internal/logging"
	"github.com/lerianstudio/memory-retrieval/internal/mcptools"
	"github.com/lerianstudio/memory-retrieval/internal/resilience"
	"github.com/lerianstudio/memory-retrieval/internal/retrieval"
	"github.com/lerianstudio/memory-retrieval/internal/scoring"
	"github.com/lerianstudio/memory-retrieval/internal/storage"
	"github.com/lerianstudio/memory-retrieval/internal/vectorstore"
)

const (
	serverName    = "memory-retrieval"
	serverVersion = "0.1.0"
)

func main() {
	var (
		mode = flag.String("mode", "stdio", "Server mode: stdio or http")
		addr = flag.String("addr", "", "HTTP server address (when mode=http); defaults to config HTTPAddr")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	logger := logging.New(logging.INFO)

	eng, runner, err := buildEngine(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	mcpServer := mcpsdk.NewServer(serverName, serverVersion)
	mcptools.Register(mcpServer, eng, runner, &cfg.Benchmark)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "stdio":
		logger.Info("starting in stdio mode")
		mcpServer.SetTransport(transport.NewStdioTransport())
		if err := mcpServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("mcp server failed: %v", err)
		}

	case "http":
		logger.Info("starting in http mode", "addr", cfg.HTTPAddr)
		router := httpapi.NewRouter(eng, logger)
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router.Handler(), ReadHeaderTimeout: 10 * time.Second}

		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}

	default:
		log.Fatalf("invalid mode %q: use 'stdio' or 'http'", *mode)
	}
}

// buildEngine composes the storage backend, vectorstore, embeddings client,
// scorer, and retrieval channels into an engine.Engine and a benchmark.Runner
// sharing the same collaborators.
func buildEngine(ctx context.Context, cfg *config.Config, logger logging.Logger) (*engine.Engine, *benchmark.Runner, error) {
	backend, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	entityVectors := newVectorStore(cfg, logger, cfg.Vector.Collection)
	reportVectors := newVectorStore(cfg, logger, cfg.Vector.ReportCollection)
	if err := entityVectors.Initialize(ctx); err != nil {
		return nil, nil, err
	}
	if err := reportVectors.Initialize(ctx); err != nil {
		return nil, nil, err
	}

	embedClient := newEmbeddingsClient(cfg, logger)
	scorer := scoring.New(cfg.Scoring)
	graph := codegraph.NewInMemoryStore()

	orch := &retrieval.Orchestrator{
		RAG: &retrieval.RAGChannel{
			Embed: embedClient, Vectors: entityVectors, Backend: backend, Scorer: scorer,
		},
		KAG: &retrieval.KAGChannel{
			Graph: graph, MaxDepth: cfg.Retrieval.KAGMaxDepth, MaxNodes: cfg.Retrieval.KAGMaxNodes,
		},
		GraphRAG: &retrieval.GraphRAGChannel{
			Embed: embedClient, EntityVectors: entityVectors, ReportVectors: reportVectors, Backend: backend,
			MaxDepth: cfg.Retrieval.GraphRAGMaxDepth, MinEdgeWeight: cfg.Retrieval.GraphRAGMinEdgeWeight,
			MaxIterations: cfg.Retrieval.GraphRAGMaxIterations, ConvergenceThreshold: cfg.Retrieval.GraphRAGConvergenceThreshold,
		},
		Ratios: cfg.Retrieval.RouteRatios,
	}

	asm := assembler.New()
	ctxCache := cache.New(cfg.Cache)
	eng := engine.New(orch, asm, ctxCache, cfg.Scoring)

	runner := &benchmark.Runner{
		RAG: orch.RAG, KAG: orch.KAG, GraphRAG: orch.GraphRAG, Ratios: cfg.Retrieval.RouteRatios,
		Assembler: asm, Cache: cache.New(cfg.Cache), ScoringHash: eng.ScoringHash, TokenBudget: cfg.Benchmark.TokenBudget,
	}

	return eng, runner, nil
}

// newVectorStore builds the Qdrant-backed store when a host is configured,
// and falls back to the in-memory store for local development and tests.
func newVectorStore(cfg *config.Config, logger logging.Logger, collection string) vectorstore.VectorStore {
	if cfg.Vector.Host == "" {
		return vectorstore.NewInMemoryStore()
	}
	qcfg := vectorstore.QdrantConfig{
		Host: cfg.Vector.Host, Port: cfg.Vector.Port, APIKey: cfg.Vector.APIKey, UseTLS: cfg.Vector.UseTLS,
		Collection: collection, Dimension: cfg.Vector.Dimension, TimeoutSeconds: cfg.Vector.TimeoutSeconds,
	}
	return vectorstore.NewQdrantStore(qcfg, logger)
}

// newEmbeddingsClient wraps a mock client (the real embeddings provider is
// out of scope; see DESIGN.md) with the optional Redis cache and the
// circuit-breaker/retry decorator every outbound client gets.
func newEmbeddingsClient(cfg *config.Config, logger logging.Logger) embeddings.Client {
	var client embeddings.Client = embeddings.NewMockClient(cfg.Vector.Dimension)

	if cfg.EmbeddingCache.Enabled {
		client = embeddings.NewRedisCachedClient(client, cfg.EmbeddingCache.Addr, cfg.EmbeddingCache.TTL, logger)
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("embeddings")
	client = embeddings.NewResilientClient(client, breakerCfg, resilience.DefaultRetryConfig())
	return client
}
