package scoring

import (
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Floor returns the confidence floor applicable to m under cfg: the
// per-memory override if set, else cfg.Floor.
func Floor(m *types.Memory, cfg types.ConfidenceDecayConfig) float64 {
	if m.ConfidenceFloor != nil {
		return *m.ConfidenceFloor
	}
	return cfg.Floor
}

// exemptFromDecay reports whether m is exempt from confidence decay
// ("A memory is exempt from decay if...").
func exemptFromDecay(m *types.Memory, cfg types.ConfidenceDecayConfig) bool {
	if _, ok := cfg.ExemptTypes[m.Kind]; ok {
		return true
	}
	for tag := range m.Tags {
		if _, ok := cfg.ExemptTags[tag]; ok {
			return true
		}
	}
	if m.DecayRate != nil && *m.DecayRate == 0 {
		return true
	}
	if m.DecayFunction == types.DecayFunctionNone {
		return true
	}
	return false
}

// anchorTimestamp picks the decay anchor per priority:
// last-refreshed-at > accessed-at (only if refreshOnAccess) > created-at.
func anchorTimestamp(m *types.Memory, cfg types.ConfidenceDecayConfig) time.Time {
	if m.RefreshedAt != nil {
		return *m.RefreshedAt
	}
	if cfg.RefreshOnAccess {
		return m.AccessedAt
	}
	return m.CreatedAt
}

// effectiveDecayConfig scales half-life/full-decay/thresholds by 1/rate for
// a per-memory decay-rate override.
func effectiveDecayConfig(cfg types.ConfidenceDecayConfig, m *types.Memory) types.ConfidenceDecayConfig {
	if m.DecayRate == nil || *m.DecayRate == 0 || *m.DecayRate == 1 {
		return cfg
	}
	rate := *m.DecayRate
	out := cfg
	out.HalfLifeDays = cfg.HalfLifeDays / rate
	out.FullDecayDays = cfg.FullDecayDays / rate
	if len(cfg.Thresholds) > 0 {
		scaled := make([]types.StepThreshold, len(cfg.Thresholds))
		for i, th := range cfg.Thresholds {
			scaled[i] = types.StepThreshold{Days: th.Days / rate, Value: th.Value}
		}
		out.Thresholds = scaled
	}
	return out
}

// CalculateDecayedConfidence computes the decayed confidence of m at time
// now. The result is always in [floor(m,cfg), importance]; when the floor
// exceeds importance, the result is importance.
func CalculateDecayedConfidence(m *types.Memory, cfg types.ConfidenceDecayConfig, now time.Time) float64 {
	floor := Floor(m, cfg)
	if !cfg.Enabled || exemptFromDecay(m, cfg) {
		return min(m.Importance, max(floor, m.Importance))
	}

	decayFn := m.DecayFunction
	if decayFn == "" {
		decayFn = cfg.Function
	}

	eff := effectiveDecayConfig(cfg, m)
	anchor := anchorTimestamp(m, cfg)

	var decayFactor float64
	switch decayFn {
	case types.DecayFunctionLinear:
		decayFactor = recencyFactor(types.RecencyConfig{Policy: types.RecencyLinear, FullDecayDays: eff.FullDecayDays}, anchor, now)
	case types.DecayFunctionStep:
		decayFactor = recencyFactor(types.RecencyConfig{Policy: types.RecencyStep, Thresholds: eff.Thresholds}, anchor, now)
	case types.DecayFunctionNone:
		decayFactor = 1
	case types.DecayFunctionExponential:
		fallthrough
	default:
		decayFactor = recencyFactor(types.RecencyConfig{Policy: types.RecencyExponential, HalfLifeDays: eff.HalfLifeDays}, anchor, now)
	}

	decayed := m.Importance * decayFactor
	// Floor never inflates above importance.
	return min(m.Importance, max(floor, decayed))
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
