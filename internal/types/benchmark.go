package types

import "time"

// BenchmarkSource names where a benchmark run was launched from.
type BenchmarkSource string

const (
	BenchmarkSourceCI    BenchmarkSource = "ci"
	BenchmarkSourceLocal BenchmarkSource = "local"
)

// Stage names one timed phase of a single retrieval.
type Stage string

const (
	StageRAG      Stage = "rag"
	StageKAG      Stage = "kag"
	StageGraphRAG Stage = "graphrag"
	StageRerank   Stage = "rerank"
	StageFormat   Stage = "format"
	StageTokenize Stage = "tokenize"
	StageEvidence Stage = "evidence"
	StageTotal    Stage = "total"
)

// AllStages lists every timed stage in a fixed order, for stable reports.
var AllStages = []Stage{StageRAG, StageKAG, StageGraphRAG, StageRerank, StageFormat, StageTokenize, StageEvidence, StageTotal}

// PercentileStats summarises a sorted sample of latencies.
type PercentileStats struct {
	Min, Max, Avg float64
	P50, P95, P99 float64
	Count         int
}

// QuerySample is one (query, run) measurement.
type QuerySample struct {
	Query    string
	Run      int
	Route    Route
	Latency  map[Stage]float64 // milliseconds
	Tokens   int
	Sections ContextMetadata
	CacheHit bool
	Error    string // non-empty if this query/run failed
}

// BenchmarkRunMetadata identifies one benchmark run.
type BenchmarkRunMetadata struct {
	RunID     string
	Timestamp time.Time // ISO-8601
	CommitSHA string
	Branch    string
	Source    BenchmarkSource
	ProjectPath string
}

// BenchmarkResult is the aggregate outcome of a run.
type BenchmarkResult struct {
	Overall     PercentileStats
	PerStage    map[Stage]PercentileStats
	PerRoute    map[Route]PercentileStats
	CacheStats  CacheStats
	Samples     []QuerySample
}

// BenchmarkHistoryRecord is one append-only JSONL line.
type BenchmarkHistoryRecord struct {
	Metadata      BenchmarkRunMetadata
	ConfigSnapshot map[string]interface{}
	Result        BenchmarkResult
}

// Comparison is the delta between a run and its baseline.
type Comparison struct {
	OverallP50Delta   float64
	OverallP95Delta   float64
	OverallAvgDelta   float64
	OverallP95Ratio   float64 // current / max(0.01, baseline)
	PerStageP95Delta  map[Stage]float64
	PerStageP95Ratio  map[Stage]float64
	CacheHitRateDelta float64
}

// GateThresholds configures the quality gate.
type GateThresholds struct {
	MaxOverallP95Ms    float64
	MaxOverallP95Ratio float64 // 0 disables the ratio check
	PerStageP95Ms      map[Stage]float64
	HistoryMaxP95Ratio float64
	HistoryMaxP95DeltaMs float64
	RequireBaseline    bool
}

// GateViolation names one failed threshold.
type GateViolation struct {
	Description string
}

// GateResult is the outcome of comparing a run against its baseline and
// thresholds.
type GateResult struct {
	Passed     bool
	Violations []GateViolation
	Baseline   *BenchmarkHistoryRecord
}
