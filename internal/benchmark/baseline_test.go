package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func recordAt(id, branch string, ts time.Time) types.BenchmarkHistoryRecord {
	return types.BenchmarkHistoryRecord{
		Metadata: types.BenchmarkRunMetadata{RunID: id, Branch: branch, Timestamp: ts},
	}
}

func TestFindBaselineReturnsMostRecentEarlierRun(t *testing.T) {
	now := time.Now().UTC()
	history := []types.BenchmarkHistoryRecord{
		recordAt("r1", "main", now.Add(-3*time.Hour)),
		recordAt("r2", "main", now.Add(-2*time.Hour)),
		recordAt("r3", "main", now.Add(-1*time.Hour)),
	}
	current := recordAt("r4", "main", now)

	got := FindBaseline(history, current, BaselineOptions{})
	require.NotNil(t, got)
	assert.Equal(t, "r3", got.Metadata.RunID)
}

func TestFindBaselineSkipsCurrentRunIfPresentInHistory(t *testing.T) {
	now := time.Now().UTC()
	current := recordAt("r4", "main", now)
	history := []types.BenchmarkHistoryRecord{
		recordAt("r3", "main", now.Add(-time.Hour)),
		current,
	}

	got := FindBaseline(history, current, BaselineOptions{})
	require.NotNil(t, got)
	assert.Equal(t, "r3", got.Metadata.RunID)
}

func TestFindBaselineSameBranchFilterSkipsOtherBranches(t *testing.T) {
	now := time.Now().UTC()
	history := []types.BenchmarkHistoryRecord{
		recordAt("r1", "feature", now.Add(-2*time.Hour)),
		recordAt("r2", "main", now.Add(-time.Hour)),
	}
	current := recordAt("r3", "main", now)

	got := FindBaseline(history, current, BaselineOptions{SameBranch: true})
	require.NotNil(t, got)
	assert.Equal(t, "r2", got.Metadata.RunID)
}

func TestFindBaselineReturnsNilWhenNothingEligible(t *testing.T) {
	now := time.Now().UTC()
	current := recordAt("r1", "main", now)
	got := FindBaseline(nil, current, BaselineOptions{})
	assert.Nil(t, got)
}

func TestFindBaselineRespectsMaxLookback(t *testing.T) {
	now := time.Now().UTC()
	history := []types.BenchmarkHistoryRecord{
		recordAt("r1", "main", now.Add(-3*time.Hour)),
		recordAt("r2", "other", now.Add(-2*time.Hour)),
		recordAt("r3", "other", now.Add(-1*time.Hour)),
	}
	current := recordAt("r4", "main", now)

	got := FindBaseline(history, current, BaselineOptions{SameBranch: true, MaxLookback: 1})
	assert.Nil(t, got, "r1 matches branch but lies beyond the one-record lookback window")
}
