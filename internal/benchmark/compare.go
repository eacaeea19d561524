package benchmark

import "github.com/lerianstudio/memory-retrieval/internal/types"

// Compare computes current's deltas against baseline (
// "Comparison"). A nil baseline compares against the zero value, so ratios
// come out as current/0.01 — callers should check for a nil baseline before
// trusting a ratio-based gate.
func Compare(current types.BenchmarkResult, baseline *types.BenchmarkResult) types.Comparison {
	var base types.BenchmarkResult
	if baseline != nil {
		base = *baseline
	}

	cmp := types.Comparison{
		OverallP50Delta:   current.Overall.P50 - base.Overall.P50,
		OverallP95Delta:   current.Overall.P95 - base.Overall.P95,
		OverallAvgDelta:   current.Overall.Avg - base.Overall.Avg,
		OverallP95Ratio:   current.Overall.P95 / maxFloat(0.01, base.Overall.P95),
		PerStageP95Delta:  make(map[types.Stage]float64, len(types.AllStages)),
		PerStageP95Ratio:  make(map[types.Stage]float64, len(types.AllStages)),
		CacheHitRateDelta: current.CacheStats.HitRate() - base.CacheStats.HitRate(),
	}

	for _, stage := range types.AllStages {
		curP95 := current.PerStage[stage].P95
		baseP95 := base.PerStage[stage].P95
		cmp.PerStageP95Delta[stage] = curP95 - baseP95
		cmp.PerStageP95Ratio[stage] = curP95 / maxFloat(0.01, baseP95)
	}

	return cmp
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
