package benchmark

import "github.com/lerianstudio/memory-retrieval/internal/types"

// BaselineOptions configures FindBaseline's filter (step 4).
type BaselineOptions struct {
	CurrentRunID  string
	CurrentBranch string
	SameBranch    bool
	SameConfig    bool
	MaxLookback   int // 0 = unlimited
}

// FindBaseline scans history newest-first for the most recent record that
// is not the current run, is strictly older, and (when requested) matches
// branch and config-snapshot. It stops after MaxLookback candidates if set,
// even if no match is found within that window.
func FindBaseline(history []types.BenchmarkHistoryRecord, current types.BenchmarkHistoryRecord, opts BaselineOptions) *types.BenchmarkHistoryRecord {
	lookback := 0
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]

		if rec.Metadata.RunID == current.Metadata.RunID || opts.CurrentRunID != "" && rec.Metadata.RunID == opts.CurrentRunID {
			continue
		}
		if !rec.Metadata.Timestamp.Before(current.Metadata.Timestamp) {
			continue
		}

		lookback++
		if opts.MaxLookback > 0 && lookback > opts.MaxLookback {
			break
		}

		if opts.SameBranch && rec.Metadata.Branch != current.Metadata.Branch {
			continue
		}
		if opts.SameConfig && !configSnapshotsEqual(rec.ConfigSnapshot, current.ConfigSnapshot) {
			continue
		}

		found := rec
		return &found
	}
	return nil
}

func configSnapshotsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || !deepEqualScalar(v, bv) {
			return false
		}
	}
	return true
}

// deepEqualScalar compares two decoded JSON-ish values. It covers the
// scalar and slice shapes a config snapshot actually contains; it is not a
// general-purpose deep-equal.
func deepEqualScalar(a, b interface{}) bool {
	as, aok := a.([]interface{})
	bs, bok := b.([]interface{})
	if aok || bok {
		if !aok || !bok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !deepEqualScalar(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
