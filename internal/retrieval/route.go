// Package retrieval implements the three retrieval channels (RAG, KAG,
// GraphRAG), the route classifier, and the fusion reranker.
package retrieval

import (
	"regexp"
	"strings"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

var structuralTokens = regexp.MustCompile(`(?i)\b(calls?|depends on|implements?|what uses|callers?|callees?)\b`)

var semanticHistoryTokens = regexp.MustCompile(`(?i)\b(why did we|decided|tradeoff|trade-off|history)\b`)

// Classify maps (query, includeCodeGraph) to a Route 
func Classify(query string, includeCodeGraph bool) types.Route {
	if !includeCodeGraph {
		return types.RouteMemory
	}

	structural := structuralTokens.MatchString(query) || len(ExtractIdentifiers(query)) > 0
	semantic := semanticHistoryTokens.MatchString(query)

	switch {
	case structural && semantic:
		return types.RouteHybrid
	case structural:
		return types.RouteCode
	default:
		return types.RouteMemory
	}
}

// ExtractIdentifiers returns probable code identifiers from q: camelCase or
// PascalCase words of length >= 3, or any bare word immediately followed by
// "(", deduplicated in first-seen order.
func ExtractIdentifiers(q string) []string {
	tokens := identifierCandidate.FindAllString(q, -1)
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for _, tok := range tokens {
		calledLike := strings.HasSuffix(tok, "(")
		name := strings.TrimSuffix(tok, "(")
		if !calledLike && !(len(name) >= 3 && isCamelOrPascal(name)) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

var identifierCandidate = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*\(?`)

func isCamelOrPascal(word string) bool {
	hasUpper, hasLower := false, false
	for _, r := range word {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		}
	}
	return hasUpper && hasLower
}
