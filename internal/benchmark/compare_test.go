package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func TestCompareAgainstNilBaselineUsesFloorDivisor(t *testing.T) {
	current := types.BenchmarkResult{Overall: types.PercentileStats{P95: 50}}
	cmp := Compare(current, nil)
	assert.Equal(t, 50.0/0.01, cmp.OverallP95Ratio)
	assert.Equal(t, 50.0, cmp.OverallP95Delta)
}

func TestCompareComputesDeltasAndRatios(t *testing.T) {
	current := types.BenchmarkResult{
		Overall:  types.PercentileStats{P50: 20, P95: 100, Avg: 30},
		PerStage: map[types.Stage]types.PercentileStats{types.StageRAG: {P95: 40}},
		CacheStats: types.CacheStats{Hits: 8, Misses: 2},
	}
	baseline := types.BenchmarkResult{
		Overall:  types.PercentileStats{P50: 15, P95: 80, Avg: 25},
		PerStage: map[types.Stage]types.PercentileStats{types.StageRAG: {P95: 20}},
		CacheStats: types.CacheStats{Hits: 5, Misses: 5},
	}

	cmp := Compare(current, &baseline)
	assert.Equal(t, 5.0, cmp.OverallP50Delta)
	assert.Equal(t, 20.0, cmp.OverallP95Delta)
	assert.Equal(t, 5.0, cmp.OverallAvgDelta)
	assert.InDelta(t, 1.25, cmp.OverallP95Ratio, 0.0001)
	assert.Equal(t, 20.0, cmp.PerStageP95Delta[types.StageRAG])
	assert.Equal(t, 2.0, cmp.PerStageP95Ratio[types.StageRAG])
	assert.InDelta(t, 0.3, cmp.CacheHitRateDelta, 0.0001)
}
