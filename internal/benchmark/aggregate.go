package benchmark

import "github.com/lerianstudio/memory-retrieval/internal/types"

// Aggregate builds a BenchmarkResult from a run's samples, summarising
// overall latency, per-stage latency, and per-route latency distributions
// (step 3). Failed samples (non-empty Error) are excluded from
// every percentile computation but retained in Samples.
func Aggregate(samples []types.QuerySample, cacheStats types.CacheStats) types.BenchmarkResult {
	var overall []float64
	perStage := make(map[types.Stage][]float64, len(types.AllStages))
	perRoute := make(map[types.Route][]float64)

	for _, s := range samples {
		if s.Error != "" {
			continue
		}
		if total, ok := s.Latency[types.StageTotal]; ok {
			overall = append(overall, total)
			perRoute[s.Route] = append(perRoute[s.Route], total)
		}
		for _, stage := range types.AllStages {
			if v, ok := s.Latency[stage]; ok {
				perStage[stage] = append(perStage[stage], v)
			}
		}
	}

	result := types.BenchmarkResult{
		Overall:    Summarize(overall),
		PerStage:   make(map[types.Stage]types.PercentileStats, len(perStage)),
		PerRoute:   make(map[types.Route]types.PercentileStats, len(perRoute)),
		CacheStats: cacheStats,
		Samples:    samples,
	}
	for stage, values := range perStage {
		result.PerStage[stage] = Summarize(values)
	}
	for route, values := range perRoute {
		result.PerRoute[route] = Summarize(values)
	}
	return result
}
