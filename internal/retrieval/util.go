package retrieval

import (
	"sort"
	"strconv"
	"strings"
)

// sortedTags returns the keys of a tag set in ascending order.
func sortedTags(tags map[string]struct{}) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// queryTermSet lower-cases and splits q on whitespace, used by the reranker's
// novelty boost to detect which candidates introduce previously-unseen terms.
func queryTermSet(q string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(q))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func truncateList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	more := len(items) - max
	out := make([]string, 0, max+1)
	out = append(out, items[:max]...)
	out = append(out, strconv.Itoa(more)+" more")
	return out
}
