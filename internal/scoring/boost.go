package scoring

import (
	"time"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// applyBoosts applies cfg's boost rules to raw in listed order, each
// multiplying the running score, per ("Boost rules"):
// "final = raw · Π factors, clamped to [0, 2]". It returns the boosted
// score and the names of every rule that matched.
func applyBoosts(m *types.Memory, rules []types.BoostRule, raw float64, now time.Time) (float64, []string) {
	score := raw
	var applied []string
	for _, rule := range rules {
		if !boostMatches(m, rule, now) {
			continue
		}
		factor := rule.Factor
		if factor == 0 {
			factor = 1
		}
		score *= factor
		applied = append(applied, rule.Name)
	}
	return clamp(score, 0, 2), applied
}

func boostMatches(m *types.Memory, rule types.BoostRule, now time.Time) bool {
	switch rule.Condition {
	case types.BoostRecency:
		return ageDays(anchorForBoost(m), now) <= rule.MaxDays
	case types.BoostStaleness:
		return ageDays(anchorForBoost(m), now) >= rule.MaxDays
	case types.BoostImportance:
		return m.Importance >= rule.MinValue
	case types.BoostFrequency:
		return m.AccessCount >= rule.MinAccessCount
	case types.BoostMemoryType:
		_, ok := rule.Types[m.Kind]
		return ok
	case types.BoostTags:
		return tagsMatch(m, rule.Tags, rule.Match)
	default:
		return false
	}
}

// anchorForBoost uses last-refreshed-at if present, else created-at; boost
// rules do not honour refresh-on-access (that is a confidence-decay-only
// setting).
func anchorForBoost(m *types.Memory) time.Time {
	if m.RefreshedAt != nil {
		return *m.RefreshedAt
	}
	return m.CreatedAt
}

func tagsMatch(m *types.Memory, tags []string, match types.TagMatch) bool {
	if len(tags) == 0 {
		return false
	}
	if match == types.TagMatchAll {
		for _, t := range tags {
			if !m.HasTag(lower(t)) {
				return false
			}
		}
		return true
	}
	for _, t := range tags {
		if m.HasTag(lower(t)) {
			return true
		}
	}
	return false
}
