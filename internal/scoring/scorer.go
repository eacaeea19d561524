package scoring

import (
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Scorer computes the multi-factor relevance score for a memory given a
// raw semantic similarity. It is safe for concurrent use: the only mutable
// state is an internal, lock-protected decay memo.
type Scorer struct {
	cfg   types.ScoringConfig
	decay *decayCache
}

// New builds a Scorer from cfg (normally config.Config.Scoring).
func New(cfg types.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg, decay: newDecayCache()}
}

// Score computes m's final relevance score against semantic similarity s at
// time now, returning a breakdown naming every factor's contribution.
func (sc *Scorer) Score(m *types.Memory, s float64, now time.Time) *types.ScoreBreakdown {
	weights := normalizeWeights(sc.cfg.Weights)

	confidence := sc.decayedConfidence(m, now)

	sem := semanticFactor(s)
	rec := recencyFactor(sc.cfg.Recency, anchorForBoost(m), now)
	conf := confidenceFactor(confidence)
	freq := frequencyFactor(sc.cfg.Frequency, m.AccessCount)

	raw := weights.Semantic*sem + weights.Recency*rec + weights.Confidence*conf + weights.Frequency*freq

	boosted, applied := applyBoosts(m, sc.cfg.Boosts, raw, now)

	return &types.ScoreBreakdown{
		Semantic:      sem,
		Recency:       rec,
		Confidence:    conf,
		Frequency:     freq,
		Raw:           raw,
		Boosted:       boosted,
		AppliedBoosts: applied,
	}
}

// decayedConfidence returns CalculateDecayedConfidence(m, cfg, now), memoised
// per (memory id, anchor timestamp) for decayCacheTTL.
func (sc *Scorer) decayedConfidence(m *types.Memory, now time.Time) float64 {
	anchor := anchorTimestamp(m, sc.cfg.ConfidenceDecay)
	key := decayCacheKey{memoryID: m.ID, anchor: anchor.UnixNano()}

	if v, ok := sc.decay.get(key, now); ok {
		return v
	}
	v := CalculateDecayedConfidence(m, sc.cfg.ConfidenceDecay, now)
	sc.decay.put(key, v, now)
	return v
}
