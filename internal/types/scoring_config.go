package types

// RecencyPolicy selects the decay curve for the recency factor.
type RecencyPolicy string

const (
	RecencyExponential RecencyPolicy = "exponential"
	RecencyLinear      RecencyPolicy = "linear"
	RecencyStep        RecencyPolicy = "step"
)

// FrequencyMethod selects the normalisation curve for the frequency factor.
type FrequencyMethod string

const (
	FrequencyLog     FrequencyMethod = "log"
	FrequencyLinear  FrequencyMethod = "linear"
	FrequencySigmoid FrequencyMethod = "sigmoid"
)

// StepThreshold is one entry of a step decay/recency table: Days maps to
// Value once age in days reaches (or exceeds) Days. The table must be kept
// sorted ascending by Days; the last matching threshold wins.
type StepThreshold struct {
	Days  float64
	Value float64
}

// RecencyConfig configures the recency factor.
type RecencyConfig struct {
	Policy         RecencyPolicy
	HalfLifeDays   float64 // exponential
	FullDecayDays  float64 // linear
	Thresholds     []StepThreshold // step, sorted ascending by Days
}

// FrequencyConfig configures the frequency factor.
type FrequencyConfig struct {
	Method        FrequencyMethod
	MaxCount      float64
	ColdStartValue float64 // score returned when access-count == 0
}

// ConfidenceDecayConfig configures the optional confidence-decay feature
// ("Confidence decay (feature)").
type ConfidenceDecayConfig struct {
	Enabled         bool
	Function        DecayFunction
	HalfLifeDays    float64
	FullDecayDays   float64
	Thresholds      []StepThreshold
	Floor           float64
	RefreshOnAccess bool
	ExemptTypes     map[MemoryKind]struct{}
	ExemptTags      map[string]struct{} // canonicalised (lower-cased)
}

// BoostConditionKind names a boost rule's condition family.
type BoostConditionKind string

const (
	BoostRecency    BoostConditionKind = "recency"
	BoostStaleness  BoostConditionKind = "staleness"
	BoostImportance BoostConditionKind = "importance"
	BoostFrequency  BoostConditionKind = "frequency"
	BoostMemoryType BoostConditionKind = "memoryType"
	BoostTags       BoostConditionKind = "tags"
)

// TagMatch selects whether a tags{} boost condition requires any or all of
// its tags to be present.
type TagMatch string

const (
	TagMatchAny TagMatch = "any"
	TagMatchAll TagMatch = "all"
)

// BoostRule is one multiplicative rule applied after the weighted
// combination ("Boost rules").
type BoostRule struct {
	Name       string
	Condition  BoostConditionKind
	MaxDays    float64            // recency / staleness
	MinValue   float64            // importance
	MinAccessCount int64          // frequency
	Types      map[MemoryKind]struct{} // memoryType
	Tags       []string           // tags (canonicalised on use)
	Match      TagMatch           // tags
	Factor     float64
}

// ScoreWeights are the four factor weights; renormalised to sum to 1.
type ScoreWeights struct {
	Semantic   float64
	Recency    float64
	Confidence float64
	Frequency  float64
}

// ScoringConfig is consumed input to the scorer.
type ScoringConfig struct {
	Weights         ScoreWeights
	Recency         RecencyConfig
	Frequency       FrequencyConfig
	ConfidenceDecay ConfidenceDecayConfig
	Boosts          []BoostRule
}
