package benchmark

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// History is an append-only JSONL log of benchmark runs.
// Each line is one BenchmarkHistoryRecord; retention is enforced on append
// by pruning the oldest records once the file exceeds maxRecords.
type History struct {
	path       string
	maxRecords int
}

// NewHistory opens a history backed by path, retaining at most maxRecords
// entries. maxRecords <= 0 disables pruning.
func NewHistory(path string, maxRecords int) *History {
	return &History{path: path, maxRecords: maxRecords}
}

// Append writes record as the newest line, pruning the oldest records past
// maxRecords. It returns the history's total record count after the append
// and how many records were pruned.
func (h *History) Append(record types.BenchmarkHistoryRecord) (totalRecords, prunedRecords int, err error) {
	existing, err := h.Load()
	if err != nil {
		return 0, 0, err
	}
	existing = append(existing, record)

	pruned := 0
	if h.maxRecords > 0 && len(existing) > h.maxRecords {
		pruned = len(existing) - h.maxRecords
		existing = existing[pruned:]
	}

	if err := h.writeAll(existing); err != nil {
		return 0, 0, err
	}
	return len(existing), pruned, nil
}

// Load reads every record currently in the history, oldest first. A missing
// file is treated as an empty history, not an error.
func (h *History) Load() ([]types.BenchmarkHistoryRecord, error) {
	f, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, memerrors.New(memerrors.KindStorage, "benchmark.History.Load", err)
	}
	defer f.Close()

	var records []types.BenchmarkHistoryRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec types.BenchmarkHistoryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, memerrors.New(memerrors.KindStorage, "benchmark.History.Load", fmt.Errorf("parse history line: %w", err))
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, memerrors.New(memerrors.KindStorage, "benchmark.History.Load", err)
	}
	return records, nil
}

func (h *History) writeAll(records []types.BenchmarkHistoryRecord) error {
	if dir := filepath.Dir(h.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return memerrors.New(memerrors.KindStorage, "benchmark.History.writeAll", err)
		}
	}

	tmp := h.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return memerrors.New(memerrors.KindStorage, "benchmark.History.writeAll", err)
	}

	w := bufio.NewWriter(f)
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			return memerrors.New(memerrors.KindStorage, "benchmark.History.writeAll", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			return memerrors.New(memerrors.KindStorage, "benchmark.History.writeAll", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return memerrors.New(memerrors.KindStorage, "benchmark.History.writeAll", err)
	}
	if err := f.Close(); err != nil {
		return memerrors.New(memerrors.KindStorage, "benchmark.History.writeAll", err)
	}
	return os.Rename(tmp, h.path)
}
