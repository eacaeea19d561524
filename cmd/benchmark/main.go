// Command benchmark drives the retrieval benchmark harness: run queries and
// record history, compare a run against its baseline, and enforce the
// performance gate in CI. Subcommands are built with cobra and colored
// output uses fatih/color, matching this module's other CLI entrypoints.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lerianstudio/memory-retrieval/internal/assembler"
	"github.com/lerianstudio/memory-retrieval/internal/benchmark"
	"github.com/lerianstudio/memory-retrieval/internal/cache"
	"github.com/lerianstudio/memory-retrieval/internal/codegraph"
	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/embeddings"
	"github.com/lerianstudio/memory-retrieval/internal/logging"
	"github.com/lerianstudio/memory-retrieval/internal/report"
	"github.com/lerianstudio/memory-retrieval/internal/resilience"
	"github.com/lerianstudio/memory-retrieval/internal/retrieval"
	"github.com/lerianstudio/memory-retrieval/internal/scoring"
	"github.com/lerianstudio/memory-retrieval/internal/storage"
	"github.com/lerianstudio/memory-retrieval/internal/types"
	"github.com/lerianstudio/memory-retrieval/internal/vectorstore"
)

var (
	errColor = color.New(color.FgRed, color.Bold)
	okColor  = color.New(color.FgGreen, color.Bold)

	flagQueries      []string
	flagRunsPerQuery int
	flagWarmupRuns   int
	flagBranch       string
	flagCommitSHA    string
	flagSource       string
	flagFormat       string
	flagOutputFile   string
	flagSameBranch   bool
	flagSameConfig   bool
)

func main() {
	root := &cobra.Command{
		Use:   "benchmark",
		Short: "Retrieval benchmark harness: run, gate, and history commands",
	}

	root.AddCommand(newRunCmd(), newGateCmd(), newHistoryCmd())

	if err := root.Execute(); err != nil {
		errColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark against a set of queries and append the result to history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), false)
		},
	}
	bindRunFlags(cmd)
	return cmd
}

func newGateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Run the benchmark and exit non-zero if it fails the performance gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), true)
		},
	}
	bindRunFlags(cmd)
	return cmd
}

func bindRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagQueries, "query", nil, "query to benchmark (repeatable)")
	cmd.Flags().IntVar(&flagRunsPerQuery, "runs", 0, "measured runs per query (0 = config default)")
	cmd.Flags().IntVar(&flagWarmupRuns, "warmup", -1, "discarded warmup runs per query (-1 = config default)")
	cmd.Flags().StringVar(&flagBranch, "branch", "", "branch name recorded with this run")
	cmd.Flags().StringVar(&flagCommitSHA, "commit", "", "commit SHA recorded with this run")
	cmd.Flags().StringVar(&flagSource, "source", string(types.BenchmarkSourceLocal), "run source: ci or local")
	cmd.Flags().StringVar(&flagFormat, "format", "markdown", "report format: markdown, html, yaml, or json")
	cmd.Flags().StringVar(&flagOutputFile, "out", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&flagSameBranch, "baseline-same-branch", true, "require the baseline to share this run's branch")
	cmd.Flags().BoolVar(&flagSameConfig, "baseline-same-config", false, "require the baseline to share this run's config snapshot")
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded benchmark history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			hist := benchmark.NewHistory(cfg.Benchmark.HistoryPath, cfg.Benchmark.HistoryRetention)
			records, err := hist.Load()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
	return cmd
}

// defaultBenchmarkQueries is the built-in query set used when neither
// --query, BENCH_QUERIES_JSON, nor BENCH_QUERIES_PATH supplies one.
var defaultBenchmarkQueries = []string{
	"how does authentication work",
	"explain the retry and circuit breaker logic",
	"where is the rate limiter configured",
	"how are memories scored for relevance",
}

// resolveQueries picks the benchmark query set: explicit --query flags take
// precedence, then BENCH_QUERIES_JSON (a JSON array of strings), then
// BENCH_QUERIES_PATH (a fixture file, JSON array or newline-delimited), then
// the built-in defaults.
func resolveQueries() ([]string, error) {
	if len(flagQueries) > 0 {
		return flagQueries, nil
	}
	if raw := os.Getenv("BENCH_QUERIES_JSON"); raw != "" {
		var qs []string
		if err := json.Unmarshal([]byte(raw), &qs); err != nil {
			return nil, fmt.Errorf("parse BENCH_QUERIES_JSON: %w", err)
		}
		if len(qs) == 0 {
			return nil, fmt.Errorf("BENCH_QUERIES_JSON contains no queries")
		}
		return qs, nil
	}
	if path := os.Getenv("BENCH_QUERIES_PATH"); path != "" {
		return loadQueriesFile(path)
	}
	return defaultBenchmarkQueries, nil
}

func loadQueriesFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read BENCH_QUERIES_PATH: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var qs []string
		if err := json.Unmarshal(trimmed, &qs); err != nil {
			return nil, fmt.Errorf("parse BENCH_QUERIES_PATH as JSON: %w", err)
		}
		if len(qs) == 0 {
			return nil, fmt.Errorf("BENCH_QUERIES_PATH %q contains no queries", path)
		}
		return qs, nil
	}

	var qs []string
	for _, line := range strings.Split(string(trimmed), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			qs = append(qs, line)
		}
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("BENCH_QUERIES_PATH %q contains no queries", path)
	}
	return qs, nil
}

func runBenchmark(ctx context.Context, gateOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	queries, err := resolveQueries()
	if err != nil {
		return err
	}
	runsPerQuery := cfg.Benchmark.RunsPerQuery
	if flagRunsPerQuery > 0 {
		runsPerQuery = flagRunsPerQuery
	}
	warmupRuns := cfg.Benchmark.WarmupRuns
	if flagWarmupRuns >= 0 {
		warmupRuns = flagWarmupRuns
	}

	runner, err := buildRunner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build benchmark runner: %w", err)
	}

	now := time.Now().UTC()
	samples := runner.Run(ctx, queries, runsPerQuery, warmupRuns, now)
	result := benchmark.Aggregate(samples, runner.Cache.Stats())

	meta := types.BenchmarkRunMetadata{
		RunID: uuid.NewString(), Timestamp: now, CommitSHA: flagCommitSHA,
		Branch: flagBranch, Source: types.BenchmarkSource(flagSource),
	}
	record := types.BenchmarkHistoryRecord{
		Metadata:       meta,
		ConfigSnapshot: configSnapshot(cfg),
		Result:         result,
	}

	hist := benchmark.NewHistory(cfg.Benchmark.HistoryPath, cfg.Benchmark.HistoryRetention)
	history, err := hist.Load()
	if err != nil {
		return fmt.Errorf("load benchmark history: %w", err)
	}

	baseline := benchmark.FindBaseline(history, record, benchmark.BaselineOptions{
		CurrentRunID: meta.RunID, CurrentBranch: flagBranch,
		SameBranch: flagSameBranch, SameConfig: flagSameConfig,
		MaxLookback: cfg.Benchmark.HistoryMaxLookback,
	})

	gate := benchmark.EvaluateGate(result, baseline, cfg.Benchmark.Gate)

	var cmp *types.Comparison
	if baseline != nil {
		c := benchmark.Compare(result, &baseline.Result)
		cmp = &c
	}

	if _, _, err := hist.Append(record); err != nil {
		return fmt.Errorf("append benchmark history: %w", err)
	}

	if err := writeReport(meta, result, cmp, gate); err != nil {
		return err
	}

	if gate.Passed {
		okColor.Println("gate: PASSED")
	} else {
		errColor.Println("gate: FAILED")
		for _, v := range gate.Violations {
			errColor.Printf("  - %s\n", v.Description)
		}
		if gateOnly {
			os.Exit(1)
		}
	}
	return nil
}

func writeReport(meta types.BenchmarkRunMetadata, result types.BenchmarkResult, cmp *types.Comparison, gate types.GateResult) error {
	var out []byte
	var err error

	switch flagFormat {
	case "markdown", "":
		out = []byte(report.Markdown(meta, result, cmp, gate))
	case "html":
		md := report.Markdown(meta, result, cmp, gate)
		html, herr := report.HTML(md)
		if herr != nil {
			return fmt.Errorf("render html report: %w", herr)
		}
		out = []byte(html)
	case "json":
		out, err = json.MarshalIndent(struct {
			Metadata   types.BenchmarkRunMetadata
			Result     types.BenchmarkResult
			Comparison *types.Comparison
			Gate       types.GateResult
		}{meta, result, cmp, gate}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json report: %w", err)
		}
	case "yaml":
		out, err = yaml.Marshal(struct {
			Metadata   types.BenchmarkRunMetadata `yaml:"metadata"`
			Result     types.BenchmarkResult      `yaml:"result"`
			Comparison *types.Comparison          `yaml:"comparison,omitempty"`
			Gate       types.GateResult           `yaml:"gate"`
		}{meta, result, cmp, gate})
		if err != nil {
			return fmt.Errorf("marshal yaml report: %w", err)
		}
	default:
		return fmt.Errorf("unknown report format %q", flagFormat)
	}

	if flagOutputFile == "" {
		fmt.Println(string(out))
		return nil
	}
	return os.WriteFile(flagOutputFile, out, 0o644)
}

// configSnapshot captures the scoring and route-ratio knobs that affect
// benchmark results, for FindBaseline's SameConfig comparison.
func configSnapshot(cfg *config.Config) map[string]interface{} {
	raw, _ := json.Marshal(cfg.Scoring)
	var scoring map[string]interface{}
	_ = json.Unmarshal(raw, &scoring)
	return map[string]interface{}{
		"scoring":      scoring,
		"tokenBudget":  cfg.Benchmark.TokenBudget,
		"storage":      string(cfg.Storage.Backend),
	}
}

// buildRunner composes the same collaborators as cmd/server's engine, minus
// the HTTP/MCP transport layer, for a standalone CLI invocation.
func buildRunner(ctx context.Context, cfg *config.Config) (*benchmark.Runner, error) {
	logger := logging.New(logging.INFO)

	backend, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var entityVectors vectorstore.VectorStore = vectorstore.NewInMemoryStore()
	reportVectors := vectorstore.NewInMemoryStore()
	if cfg.Vector.Host != "" {
		entityVectors = vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host: cfg.Vector.Host, Port: cfg.Vector.Port, APIKey: cfg.Vector.APIKey, UseTLS: cfg.Vector.UseTLS,
			Collection: cfg.Vector.Collection, Dimension: cfg.Vector.Dimension, TimeoutSeconds: cfg.Vector.TimeoutSeconds,
		}, logger)
	}

	var embedClient embeddings.Client = embeddings.NewMockClient(cfg.Vector.Dimension)
	embedClient = embeddings.NewResilientClient(embedClient, resilience.DefaultCircuitBreakerConfig("embeddings"), resilience.DefaultRetryConfig())

	scorer := scoring.New(cfg.Scoring)
	graph := codegraph.NewInMemoryStore()

	runner := &benchmark.Runner{
		RAG: &retrieval.RAGChannel{Embed: embedClient, Vectors: entityVectors, Backend: backend, Scorer: scorer},
		KAG: &retrieval.KAGChannel{Graph: graph, MaxDepth: cfg.Retrieval.KAGMaxDepth, MaxNodes: cfg.Retrieval.KAGMaxNodes},
		GraphRAG: &retrieval.GraphRAGChannel{
			Embed: embedClient, EntityVectors: entityVectors, ReportVectors: reportVectors, Backend: backend,
			MaxDepth: cfg.Retrieval.GraphRAGMaxDepth, MinEdgeWeight: cfg.Retrieval.GraphRAGMinEdgeWeight,
			MaxIterations: cfg.Retrieval.GraphRAGMaxIterations, ConvergenceThreshold: cfg.Retrieval.GraphRAGConvergenceThreshold,
		},
		Ratios:      cfg.Retrieval.RouteRatios,
		Assembler:   assembler.New(),
		Cache:       cache.New(cfg.Cache),
		ScoringHash: scoring.ConfigHash(cfg.Scoring),
		TokenBudget: cfg.Benchmark.TokenBudget,
	}
	return runner, nil
}
