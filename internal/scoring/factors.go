// Package scoring implements the multi-factor relevance scorer of
// : semantic/recency/confidence/frequency factors, a weighted
// combination, boost rules, and the optional confidence-decay feature.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// semanticFactor clamps a raw similarity score to [0,1]; non-finite inputs
// score 0.
func semanticFactor(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return clamp(s, 0, 1)
}

// ageDays returns the age in days of t relative to now; it is negative when
// t is after now. recencyFactor treats a non-finite or negative age as fresh.
func ageDays(t, now time.Time) float64 {
	d := now.Sub(t).Hours() / 24
	return d
}

// recencyFactor implements the three selectable decay policies of
// A non-finite or negative age is treated as "fresh" (1.0).
func recencyFactor(cfg types.RecencyConfig, anchor, now time.Time) float64 {
	days := ageDays(anchor, now)
	if math.IsNaN(days) || math.IsInf(days, 0) || days < 0 {
		return 1
	}
	switch cfg.Policy {
	case types.RecencyLinear:
		full := cfg.FullDecayDays
		if full <= 0 {
			return 1
		}
		return math.Max(0, 1-days/full)
	case types.RecencyStep:
		return stepValue(cfg.Thresholds, days)
	case types.RecencyExponential:
		fallthrough
	default:
		half := cfg.HalfLifeDays
		if half <= 0 {
			return 1
		}
		return math.Pow(2, -days/half)
	}
}

// stepValue returns the value of the last threshold whose Days <= age.
// Thresholds must be sorted ascending by Days; the table's zeroth entry is
// the floor for ages below every listed threshold.
func stepValue(thresholds []types.StepThreshold, days float64) float64 {
	if len(thresholds) == 0 {
		return 1
	}
	v := thresholds[0].Value
	for _, th := range thresholds {
		if days >= th.Days {
			v = th.Value
		} else {
			break
		}
	}
	return v
}

// confidenceFactor clamps importance to [0,1]; NaN scores 0.5.
func confidenceFactor(importance float64) float64 {
	if math.IsNaN(importance) {
		return 0.5
	}
	return clamp(importance, 0, 1)
}

// frequencyFactor normalises access-count with the configured method.
// access-count == 0 returns the cold-start value; scores are capped at 1
// once count exceeds maxCount.
func frequencyFactor(cfg types.FrequencyConfig, accessCount int64) float64 {
	if accessCount == 0 {
		cold := cfg.ColdStartValue
		if cold == 0 {
			cold = 0.5
		}
		return cold
	}
	maxCount := cfg.MaxCount
	if maxCount <= 0 {
		maxCount = 1
	}
	count := float64(accessCount)
	if count >= maxCount {
		return 1
	}
	ratio := count / maxCount
	switch cfg.Method {
	case types.FrequencyLinear:
		return clamp(ratio, 0, 1)
	case types.FrequencySigmoid:
		// Centered sigmoid over the normalised ratio, rescaled to [0,1].
		x := (ratio - 0.5) * 12
		return clamp(1/(1+math.Exp(-x)), 0, 1)
	case types.FrequencyLog:
		fallthrough
	default:
		if count <= 0 {
			return 0
		}
		return clamp(math.Log1p(count)/math.Log1p(maxCount), 0, 1)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeWeights renormalises w so its components sum to 1; an all-zero
// input defaults to equal quarters ("Weighted combination").
func normalizeWeights(w types.ScoreWeights) types.ScoreWeights {
	sum := w.Semantic + w.Recency + w.Confidence + w.Frequency
	if sum <= 0 {
		return types.ScoreWeights{Semantic: 0.25, Recency: 0.25, Confidence: 0.25, Frequency: 0.25}
	}
	return types.ScoreWeights{
		Semantic:   w.Semantic / sum,
		Recency:    w.Recency / sum,
		Confidence: w.Confidence / sum,
		Frequency:  w.Frequency / sum,
	}
}

func lower(s string) string { return strings.ToLower(s) }
