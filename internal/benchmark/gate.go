package benchmark

import (
	"fmt"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// EvaluateGate applies the quality gate to result, comparing against
// baseline when thresholds require a history check. baseline is nil when
// no eligible prior run was found.
func EvaluateGate(result types.BenchmarkResult, baseline *types.BenchmarkHistoryRecord, thresholds types.GateThresholds) types.GateResult {
	var violations []types.GateViolation

	if thresholds.RequireBaseline && baseline == nil {
		violations = append(violations, types.GateViolation{
			Description: "no eligible baseline found in history and requireBaseline is set",
		})
	}

	if thresholds.MaxOverallP95Ms > 0 && result.Overall.P95 > thresholds.MaxOverallP95Ms {
		violations = append(violations, types.GateViolation{
			Description: fmt.Sprintf("overall p95 %.2fms exceeds max %.2fms", result.Overall.P95, thresholds.MaxOverallP95Ms),
		})
	}

	for _, stage := range types.AllStages {
		limit, ok := thresholds.PerStageP95Ms[stage]
		if !ok || limit <= 0 {
			continue
		}
		got := result.PerStage[stage].P95
		if got > limit {
			violations = append(violations, types.GateViolation{
				Description: fmt.Sprintf("stage %q p95 %.2fms exceeds max %.2fms", stage, got, limit),
			})
		}
	}

	if baseline != nil {
		cmp := Compare(result, &baseline.Result)

		if thresholds.MaxOverallP95Ratio > 0 && cmp.OverallP95Ratio > thresholds.MaxOverallP95Ratio {
			violations = append(violations, types.GateViolation{
				Description: fmt.Sprintf("overall p95 ratio %.3f exceeds max %.3f (baseline run %s)", cmp.OverallP95Ratio, thresholds.MaxOverallP95Ratio, baseline.Metadata.RunID),
			})
		}
		if thresholds.HistoryMaxP95Ratio > 0 && cmp.OverallP95Ratio > thresholds.HistoryMaxP95Ratio {
			violations = append(violations, types.GateViolation{
				Description: fmt.Sprintf("overall p95 ratio %.3f exceeds history max %.3f", cmp.OverallP95Ratio, thresholds.HistoryMaxP95Ratio),
			})
		}
		if thresholds.HistoryMaxP95DeltaMs > 0 && cmp.OverallP95Delta > thresholds.HistoryMaxP95DeltaMs {
			violations = append(violations, types.GateViolation{
				Description: fmt.Sprintf("overall p95 delta %.2fms exceeds history max %.2fms", cmp.OverallP95Delta, thresholds.HistoryMaxP95DeltaMs),
			})
		}
	}

	return types.GateResult{Passed: len(violations) == 0, Violations: violations, Baseline: baseline}
}
