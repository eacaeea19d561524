// Package config loads and validates the retrieval engine's configuration:
// environment variables (via godotenv + viper) layered over hard-coded
// defaults, with env overrides taking precedence. No configuration file other
// than .env is read.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// StorageBackend selects which StorageBackend implementation to construct.
type StorageBackend string

const (
	StorageBackendPostgres StorageBackend = "postgres"
	StorageBackendSQLite   StorageBackend = "sqlite"
)

// StorageConfig configures the persistent storage adapter.
type StorageConfig struct {
	Backend         StorageBackend
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// VectorConfig configures the Qdrant-backed VectorStore adapter.
type VectorConfig struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	Collection     string
	ReportCollection string
	Dimension      int
	TimeoutSeconds int
}

// EmbeddingCacheConfig configures the redis-backed embedding cache.
type EmbeddingCacheConfig struct {
	Enabled bool
	Addr    string
	TTL     time.Duration
}

// RetrievalConfig configures channel defaults and route ratios.
type RetrievalConfig struct {
	RAGDefaultLimit int
	KAGMaxDepth     int
	KAGMaxNodes     int
	GraphRAGMaxDepth     int
	GraphRAGMinEdgeWeight int
	GraphRAGMaxIterations int
	GraphRAGConvergenceThreshold float64
	RouteRatios map[types.Route]RouteRatio
	MaxConcurrentPerChannel int
	MaxInFlightRequests     int
	QueryTimeout            time.Duration
}

// RouteRatio is the (rag, kag, graphrag) weighting for one route.
type RouteRatio struct {
	RAG, KAG, GraphRAG float64
}

// BenchmarkConfig configures the benchmark harness.
type BenchmarkConfig struct {
	RunsPerQuery  int
	WarmupRuns    int
	TokenBudget   int
	HistoryPath   string
	HistoryRetention int
	HistoryMaxLookback int
	HistorySameBranch  bool
	HistorySameConfig  bool
	Gate types.GateThresholds
}

// Config is the root configuration object.
type Config struct {
	Storage    StorageConfig
	Vector     VectorConfig
	EmbeddingCache EmbeddingCacheConfig
	Cache      types.CacheConfig
	Scoring    types.ScoringConfig
	Retrieval  RetrievalConfig
	Benchmark  BenchmarkConfig
	HTTPAddr   string
}

const envPrefix = "MEMRET"

// Default returns the configuration's hard-coded defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:         StorageBackendSQLite,
			DSN:             "./data/memory-retrieval.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			QueryTimeout:    10 * time.Second,
		},
		Vector: VectorConfig{
			Host:             "localhost",
			Port:             6334,
			Collection:       "memory_vectors",
			ReportCollection: "graphrag_reports",
			Dimension:        1536,
			TimeoutSeconds:   30,
		},
		EmbeddingCache: EmbeddingCacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     15 * time.Minute,
		},
		Cache: types.DefaultCacheConfig(),
		Scoring: defaultScoringConfig(),
		Retrieval: RetrievalConfig{
			RAGDefaultLimit: 10,
			KAGMaxDepth:     2,
			KAGMaxNodes:     50,
			GraphRAGMaxDepth:      2,
			GraphRAGMinEdgeWeight: 2,
			GraphRAGMaxIterations: 3,
			GraphRAGConvergenceThreshold: 0.9,
			RouteRatios: map[types.Route]RouteRatio{
				types.RouteMemory: {RAG: 0.9, KAG: 0.1, GraphRAG: 0},
				types.RouteCode:   {RAG: 0.25, KAG: 0.75, GraphRAG: 0},
				types.RouteHybrid: {RAG: 0.5, KAG: 0.3, GraphRAG: 0.2},
			},
			MaxConcurrentPerChannel: 1,
			MaxInFlightRequests:     16,
			QueryTimeout:            5 * time.Second,
		},
		Benchmark: BenchmarkConfig{
			RunsPerQuery: 3,
			WarmupRuns:   1,
			TokenBudget:  4000,
			HistoryPath:  "./data/benchmark-history.jsonl",
			HistoryRetention: 200,
			HistoryMaxLookback: 50,
			HistorySameBranch:  true,
			HistorySameConfig:  false,
			Gate: types.GateThresholds{
				MaxOverallP95Ms:    2000,
				MaxOverallP95Ratio: 1.5,
				PerStageP95Ms: map[types.Stage]float64{
					types.StageRAG: 500, types.StageKAG: 500, types.StageGraphRAG: 800,
					types.StageRerank: 50, types.StageFormat: 50, types.StageTokenize: 20,
					types.StageEvidence: 20, types.StageTotal: 2000,
				},
				HistoryMaxP95Ratio:   1.5,
				HistoryMaxP95DeltaMs: 500,
				RequireBaseline:      false,
			},
		},
		HTTPAddr: ":8085",
	}
}

func defaultScoringConfig() types.ScoringConfig {
	return types.ScoringConfig{
		Weights: types.ScoreWeights{Semantic: 0.4, Recency: 0.2, Confidence: 0.2, Frequency: 0.2},
		Recency: types.RecencyConfig{
			Policy:        types.RecencyExponential,
			HalfLifeDays:  30,
			FullDecayDays: 90,
			Thresholds: []types.StepThreshold{
				{Days: 0, Value: 1.0}, {Days: 7, Value: 0.8}, {Days: 30, Value: 0.5}, {Days: 90, Value: 0.2},
			},
		},
		Frequency: types.FrequencyConfig{Method: types.FrequencyLog, MaxCount: 100, ColdStartValue: 0.5},
		ConfidenceDecay: types.ConfidenceDecayConfig{
			Enabled:         false,
			Function:        types.DecayFunctionExponential,
			HalfLifeDays:    90,
			FullDecayDays:   180,
			Floor:           0.1,
			RefreshOnAccess: false,
			ExemptTypes:     map[types.MemoryKind]struct{}{},
			ExemptTags:      map[string]struct{}{},
		},
		Boosts: nil,
	}
}

// Load loads a .env file (if present), binds environment variables under the
// MEMRET_ prefix with viper, and validates the result. Missing .env is not
// an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, memerrors.New(memerrors.KindInputValidation, "config.Load", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	bindOverrides(v, cfg)
	if err := applyPerfEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyPerfEnvOverrides recognises the unprefixed PERF_* / PERF_HISTORY_*
// environment variables that configure the benchmark harness and its
// quality gate, taking precedence over both Default() and the MEMRET_-
// prefixed viper bindings in bindOverrides.
func applyPerfEnvOverrides(cfg *Config) error {
	if err := envInt("PERF_RUNS_PER_QUERY", &cfg.Benchmark.RunsPerQuery); err != nil {
		return err
	}
	if err := envInt("PERF_WARMUP_RUNS", &cfg.Benchmark.WarmupRuns); err != nil {
		return err
	}
	if err := envInt("PERF_TOKEN_BUDGET", &cfg.Benchmark.TokenBudget); err != nil {
		return err
	}
	if err := envFloat("PERF_GATE_MAX_P95_MS", &cfg.Benchmark.Gate.MaxOverallP95Ms); err != nil {
		return err
	}
	if err := envFloat("PERF_GATE_MAX_P95_RATIO", &cfg.Benchmark.Gate.MaxOverallP95Ratio); err != nil {
		return err
	}

	if cfg.Benchmark.Gate.PerStageP95Ms == nil {
		cfg.Benchmark.Gate.PerStageP95Ms = map[types.Stage]float64{}
	}
	for _, stage := range types.AllStages {
		name := "PERF_GATE_MAX_" + strings.ToUpper(string(stage)) + "_P95_MS"
		if raw := os.Getenv(name); raw != "" {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return memerrors.New(memerrors.KindInputValidation, "config.Load", fmt.Errorf("%s: %w", name, err))
			}
			cfg.Benchmark.Gate.PerStageP95Ms[stage] = f
		}
	}

	if v := os.Getenv("PERF_HISTORY_PATH"); v != "" {
		cfg.Benchmark.HistoryPath = v
	}
	if err := envInt("PERF_HISTORY_RETENTION", &cfg.Benchmark.HistoryRetention); err != nil {
		return err
	}
	if err := envInt("PERF_HISTORY_LOOKBACK", &cfg.Benchmark.HistoryMaxLookback); err != nil {
		return err
	}
	if err := envBool("PERF_HISTORY_SAME_BRANCH", &cfg.Benchmark.HistorySameBranch); err != nil {
		return err
	}
	if err := envBool("PERF_HISTORY_SAME_CONFIG", &cfg.Benchmark.HistorySameConfig); err != nil {
		return err
	}
	if err := envBool("PERF_HISTORY_REQUIRE_BASELINE", &cfg.Benchmark.Gate.RequireBaseline); err != nil {
		return err
	}
	if err := envFloat("PERF_HISTORY_MAX_RATIO", &cfg.Benchmark.Gate.HistoryMaxP95Ratio); err != nil {
		return err
	}
	if err := envFloat("PERF_HISTORY_MAX_DELTA_MS", &cfg.Benchmark.Gate.HistoryMaxP95DeltaMs); err != nil {
		return err
	}
	return nil
}

func envInt(name string, dst *int) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return memerrors.New(memerrors.KindInputValidation, "config.Load", fmt.Errorf("%s: %w", name, err))
	}
	*dst = n
	return nil
}

func envFloat(name string, dst *float64) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return memerrors.New(memerrors.KindInputValidation, "config.Load", fmt.Errorf("%s: %w", name, err))
	}
	*dst = f
	return nil
}

func envBool(name string, dst *bool) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return memerrors.New(memerrors.KindInputValidation, "config.Load", fmt.Errorf("%s: %w", name, err))
	}
	*dst = b
	return nil
}

func bindOverrides(v *viper.Viper, cfg *Config) {
	if addr := v.GetString("http_addr"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if dsn := v.GetString("storage_dsn"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if backend := v.GetString("storage_backend"); backend != "" {
		cfg.Storage.Backend = StorageBackend(backend)
	}
	if host := v.GetString("vector_host"); host != "" {
		cfg.Vector.Host = host
	}
	if port := v.GetInt("vector_port"); port != 0 {
		cfg.Vector.Port = port
	}
	if budget := v.GetInt("benchmark_token_budget"); budget != 0 {
		cfg.Benchmark.TokenBudget = budget
	}
	if runs := v.GetInt("perf_runs_per_query"); runs != 0 {
		cfg.Benchmark.RunsPerQuery = runs
	}
	if warmup := v.GetInt("perf_warmup_runs"); warmup != 0 {
		cfg.Benchmark.WarmupRuns = warmup
	}
	if maxP95 := v.GetFloat64("perf_gate_max_p95_ms"); maxP95 != 0 {
		cfg.Benchmark.Gate.MaxOverallP95Ms = maxP95
	}
	if maxRatio := v.GetFloat64("perf_gate_max_p95_ratio"); maxRatio != 0 {
		cfg.Benchmark.Gate.MaxOverallP95Ratio = maxRatio
	}
}

// Validate returns an InputValidation error describing the first invalid
// field found, or nil.
func (c *Config) Validate() error {
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return memerrors.New(memerrors.KindInputValidation, "config.Validate", fmt.Errorf("cache.maxEntries must be > 0"))
	}
	if c.Cache.Enabled && c.Cache.TTLMs <= 0 {
		return memerrors.New(memerrors.KindInputValidation, "config.Validate", fmt.Errorf("cache.ttlMs must be > 0"))
	}
	w := c.Scoring.Weights
	if w.Semantic < 0 || w.Recency < 0 || w.Confidence < 0 || w.Frequency < 0 {
		return memerrors.New(memerrors.KindInputValidation, "config.Validate", fmt.Errorf("scoring weights must be non-negative"))
	}
	if c.Benchmark.TokenBudget <= 0 {
		return memerrors.New(memerrors.KindInputValidation, "config.Validate", fmt.Errorf("benchmark token budget must be > 0"))
	}
	switch c.Storage.Backend {
	case StorageBackendPostgres, StorageBackendSQLite:
	default:
		return memerrors.New(memerrors.KindInputValidation, "config.Validate", fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	return nil
}
