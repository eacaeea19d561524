package benchmark

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

func record(id string, ts time.Time) types.BenchmarkHistoryRecord {
	return types.BenchmarkHistoryRecord{
		Metadata: types.BenchmarkRunMetadata{RunID: id, Timestamp: ts, Branch: "main"},
		Result:   types.BenchmarkResult{Overall: types.PercentileStats{P95: 100}},
	}
}

func TestHistoryAppendThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	h := NewHistory(path, 0)

	now := time.Now().UTC()
	total, pruned, err := h.Append(record("r1", now))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, 0, pruned)

	loaded, err := h.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "r1", loaded[0].Metadata.RunID)
}

func TestHistoryLoadOnMissingFileReturnsEmpty(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "nope.jsonl"), 0)
	loaded, err := h.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestHistoryPrunesOldestPastRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	h := NewHistory(path, 2)

	now := time.Now().UTC()
	_, _, err := h.Append(record("r1", now))
	require.NoError(t, err)
	_, _, err = h.Append(record("r2", now.Add(time.Minute)))
	require.NoError(t, err)
	total, pruned, err := h.Append(record("r3", now.Add(2*time.Minute)))
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, 1, pruned)

	loaded, err := h.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "r2", loaded[0].Metadata.RunID)
	require.Equal(t, "r3", loaded[1].Metadata.RunID)
}
