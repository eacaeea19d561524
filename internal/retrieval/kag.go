package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/lerianstudio/memory-retrieval/internal/codegraph"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// KAGChannel implements identifier extraction, bounded call-graph
// expansion, and caller/callee/implementation sections.
type KAGChannel struct {
	Graph    codegraph.Store
	MaxDepth int
	MaxNodes int
}

// Run extracts identifiers from q and produces one candidate section per
// resolved code-graph node.
func (c *KAGChannel) Run(ctx context.Context, q string) ([]types.Candidate, error) {
	identifiers := ExtractIdentifiers(q)
	var out []types.Candidate

	for _, name := range identifiers {
		node, err := c.Graph.FindByName(ctx, name)
		if err != nil || node == nil {
			continue
		}

		visited := map[string]struct{}{node.ID: {}}
		expanded := c.expand(ctx, node, 0, visited)

		body := formatCodeSection(node, expanded)
		relevance := 0.8
		if len(node.Implementations) > 0 {
			relevance = 0.7
		}

		out = append(out, types.Candidate{
			ID:           "kag:" + node.ID,
			Source:       types.SourceKAG,
			Relevance:    relevance,
			QueryTerms:   queryTermSet(q),
			SectionTitle: node.Name,
			SectionBody:  body,
			EntityID:     node.ID,
		})
	}
	return out, nil
}

// expand walks callers/callees up to c.MaxDepth, bounding total visited
// nodes at c.MaxNodes, and returns the names of every node reached beyond
// the starting node itself (in visit order) so the caller can surface the
// expanded call-graph neighborhood, not just direct callers/callees.
func (c *KAGChannel) expand(ctx context.Context, node *types.CodeNode, depth int, visited map[string]struct{}) []string {
	if depth >= c.MaxDepth || len(visited) >= c.MaxNodes {
		return nil
	}
	var names []string
	for _, id := range append(append([]string{}, node.Callers...), node.Callees...) {
		if len(visited) >= c.MaxNodes {
			return names
		}
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		next, err := c.Graph.GetNode(ctx, id)
		if err != nil || next == nil {
			continue
		}
		names = append(names, next.Name)
		names = append(names, c.expand(ctx, next, depth+1, visited)...)
	}
	return names
}

func formatCodeSection(n *types.CodeNode, expanded []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", n.Kind, n.Signature)
	if n.Summary != "" {
		fmt.Fprintf(&b, "%s\n", n.Summary)
	}
	if len(n.Callers) > 0 {
		fmt.Fprintf(&b, "Callers: %s\n", strings.Join(truncateList(n.Callers, 5), ", "))
	}
	if len(n.Callees) > 0 {
		fmt.Fprintf(&b, "Callees: %s\n", strings.Join(truncateList(n.Callees, 5), ", "))
	}
	if len(n.Implementations) > 0 {
		fmt.Fprintf(&b, "Implementations: %s\n", strings.Join(truncateList(n.Implementations, 5), ", "))
	}
	if len(expanded) > 0 {
		fmt.Fprintf(&b, "Related (%d expanded): %s\n", len(expanded), strings.Join(truncateList(expanded, 5), ", "))
	}
	return b.String()
}
