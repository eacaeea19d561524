// Package report renders a benchmark run into a Markdown summary and its
// HTML rendering (via goldmark) for CI artefacts and local inspection.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Markdown renders result, its comparison against baseline (if any), and
// the gate outcome as a Markdown document.
func Markdown(meta types.BenchmarkRunMetadata, result types.BenchmarkResult, cmp *types.Comparison, gate types.GateResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Benchmark report: %s\n\n", meta.RunID)
	fmt.Fprintf(&b, "- Timestamp: %s\n", meta.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "- Branch: %s\n", meta.Branch)
	fmt.Fprintf(&b, "- Commit: %s\n", meta.CommitSHA)
	fmt.Fprintf(&b, "- Source: %s\n\n", meta.Source)

	if gate.Passed {
		b.WriteString("**Gate: PASSED**\n\n")
	} else {
		b.WriteString("**Gate: FAILED**\n\n")
		for _, v := range gate.Violations {
			fmt.Fprintf(&b, "- %s\n", v.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Overall latency (ms)\n\n")
	writePercentileTable(&b, map[string]types.PercentileStats{"overall": result.Overall})

	b.WriteString("\n## Per-stage p95 (ms)\n\n")
	b.WriteString("| stage | p50 | p95 | p99 | count |\n|---|---|---|---|---|\n")
	for _, stage := range types.AllStages {
		s := result.PerStage[stage]
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %d |\n", stage, s.P50, s.P95, s.P99, s.Count)
	}

	b.WriteString("\n## Per-route latency (ms)\n\n")
	b.WriteString("| route | p50 | p95 | p99 | count |\n|---|---|---|---|---|\n")
	routes := make([]string, 0, len(result.PerRoute))
	for route := range result.PerRoute {
		routes = append(routes, string(route))
	}
	sort.Strings(routes)
	for _, route := range routes {
		s := result.PerRoute[types.Route(route)]
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %.2f | %d |\n", route, s.P50, s.P95, s.P99, s.Count)
	}

	fmt.Fprintf(&b, "\n## Cache\n\nhit rate: %.3f, hits: %d, misses: %d, evictions: %d, invalidations: %d, size: %d\n",
		result.CacheStats.HitRate(), result.CacheStats.Hits, result.CacheStats.Misses,
		result.CacheStats.Evictions, result.CacheStats.Invalidations, result.CacheStats.Size)

	if cmp != nil {
		fmt.Fprintf(&b, "\n## Comparison vs baseline\n\noverall p95 ratio: %.3f, p95 delta: %.2fms, p50 delta: %.2fms, avg delta: %.2fms, cache hit-rate delta: %.3f\n",
			cmp.OverallP95Ratio, cmp.OverallP95Delta, cmp.OverallP50Delta, cmp.OverallAvgDelta, cmp.CacheHitRateDelta)
	}

	return b.String()
}

func writePercentileTable(b *strings.Builder, rows map[string]types.PercentileStats) {
	b.WriteString("| | min | p50 | p95 | p99 | max | avg | count |\n|---|---|---|---|---|---|---|---|\n")
	for name, s := range rows {
		fmt.Fprintf(b, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %d |\n",
			name, s.Min, s.P50, s.P95, s.P99, s.Max, s.Avg, s.Count)
	}
}

// HTML converts a Markdown report to a standalone HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}
