package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

const edgePunctuation = "\"'`.,!?;:()[]{}<>~_-"

// NormalizeQuery implements query normalisation: NFKC,
// lower-case, collapse whitespace, strip leading/trailing edge punctuation.
// Internal punctuation (e.g. "C++", "foo.bar") is preserved.
func NormalizeQuery(q string) string {
	folded := norm.NFKC.String(q)
	folded = strings.ToLower(folded)
	folded = collapseWhitespace(folded)

	return strings.Trim(folded, edgePunctuation+" ")
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteByte(' ')
			}
			lastWasSpace = true
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Fingerprint computes the stable SHA-256 cache key for input, optionally
// folding in a scoring-config hash when scoring is enabled. The payload is
// built as a map so encoding/json's key-sorting on map types gives a
// lexicographically-sorted canonical form; array elements are ordered
// after explicitly sorting Filters.Tags ascending.
func Fingerprint(input types.ContextInput, scoringHash string) string {
	tags := append([]string(nil), input.Filters.Tags...)
	sort.Strings(tags)
	files := append([]string(nil), input.Filters.RelatedFiles...)
	sort.Strings(files)

	payload := map[string]interface{}{
		"query":            NormalizeQuery(input.Query),
		"tokenBudget":      input.TokenBudget,
		"includeCodeGraph": input.IncludeCodeGraph,
		"includeGraphRAG":  input.IncludeGraphRAG,
		"includeEvidence":  input.IncludeEvidence,
		"template":         string(input.Template),
		"kind":             string(input.Filters.Kind),
		"tags":             tags,
		"minImportance":    input.Filters.MinImportance,
		"relatedFiles":     files,
	}
	if scoringHash != "" {
		payload["scoringHash"] = scoringHash
	}

	raw, _ := json.Marshal(payload) // marshal of scalars/slices/maps never errors
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
