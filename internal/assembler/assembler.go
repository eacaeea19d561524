// Package assembler implements the context assembler: it greedily admits
// ranked candidate sections into a token budget, groups them by channel for
// output, renders them per template, and emits evidence.
package assembler

import (
	"fmt"
	"strings"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// formattingOverheadTokens is reserved from the budget for headings,
// separators, and the document preamble (step 1).
const formattingOverheadTokens = 200

// Assembler renders ranked candidates into a single context document.
type Assembler struct{}

// New returns an Assembler. It is stateless; the zero value also works.
func New() *Assembler { return &Assembler{} }

// Build runs the admit/reorder/render/tokenize/evidence pipeline end to
// end, composing Format, Tokenize, and Evidence. Callers that need
// per-stage timing (the benchmark harness) call those three directly
// instead.
func (a *Assembler) Build(input types.ContextInput, candidates []types.Candidate, route types.Route) types.ContextResult {
	doc, ordered, truncated := a.Format(input, candidates)

	metadata := types.ContextMetadata{
		TotalTokens:      a.Tokenize(doc),
		SectionsIncluded: len(ordered),
		RAGSections:      countSource(ordered, types.SourceRAG),
		KAGSections:      countSource(ordered, types.SourceKAG),
		GraphRAGSections: countSource(ordered, types.SourceGraphRAG),
		Truncated:        truncated,
		Route:            route,
	}

	var evidence []types.Evidence
	if input.IncludeEvidence {
		evidence = a.Evidence(ordered)
	}

	return types.ContextResult{Context: doc, Metadata: metadata, Evidence: evidence}
}

// Format admits ranked candidates into input's token budget, groups them
// RAG-then-KAG-then-GraphRAG, and renders the combined document
// (steps 1-5). It returns the ordered, admitted candidates
// alongside the document so Tokenize and Evidence can run independently.
func (a *Assembler) Format(input types.ContextInput, candidates []types.Candidate) (doc string, ordered []types.Candidate, truncated bool) {
	template := input.Template
	if template == "" {
		template = types.TemplateDefault
	}

	budget := input.TokenBudget - formattingOverheadTokens
	if budget < 0 {
		budget = 0
	}

	admitted := make([]types.Candidate, 0, len(candidates))
	used := 0
	for _, c := range candidates {
		c.SectionBody = formatSectionBody(c, template)
		c.Tokens = tokenize(renderSection(c, template))
		if used+c.Tokens > budget {
			continue
		}
		admitted = append(admitted, c)
		used += c.Tokens
	}

	ordered = reorderForOutput(admitted)

	if len(ordered) == 0 {
		doc = fmt.Sprintf("No relevant context found for query: %q", input.Query)
	} else {
		doc = renderDocument(ordered, template)
	}

	return doc, ordered, len(candidates) > len(ordered)
}

// Tokenize implements step 6 on an already-rendered document.
func (a *Assembler) Tokenize(doc string) int {
	return tokenize(doc)
}

// Evidence implements step 7 over the ordered, admitted
// candidates Format returned.
func (a *Assembler) Evidence(ordered []types.Candidate) []types.Evidence {
	evidence := make([]types.Evidence, 0, len(ordered))
	for _, c := range ordered {
		evidence = append(evidence, toEvidence(c))
	}
	return evidence
}

// reorderForOutput groups admitted sections RAG first, KAG second, GraphRAG
// third, preserving within-group admitted order (step 4).
func reorderForOutput(admitted []types.Candidate) []types.Candidate {
	out := make([]types.Candidate, 0, len(admitted))
	for _, src := range []types.Source{types.SourceRAG, types.SourceKAG, types.SourceGraphRAG} {
		for _, c := range admitted {
			if c.Source == src {
				out = append(out, c)
			}
		}
	}
	return out
}

func countSource(cs []types.Candidate, src types.Source) int {
	n := 0
	for _, c := range cs {
		if c.Source == src {
			n++
		}
	}
	return n
}

func formatSectionBody(c types.Candidate, template types.Template) string {
	if template == types.TemplateCompact {
		return firstLine(c.SectionBody)
	}
	return c.SectionBody
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, ", ")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func renderSection(c types.Candidate, template types.Template) string {
	var b strings.Builder
	switch template {
	case types.TemplateCompact:
		fmt.Fprintf(&b, "%s: %s", c.SectionTitle, c.SectionBody)
	case types.TemplateDetailed:
		fmt.Fprintf(&b, "## %s\n%s\n", c.SectionTitle, c.SectionBody)
		fmt.Fprintf(&b, "_tags: %s, importance: %.2f_\n", formatTags(c.Tags), c.Importance)
	default:
		fmt.Fprintf(&b, "## %s\n%s\n", c.SectionTitle, c.SectionBody)
	}
	return b.String()
}

func renderDocument(ordered []types.Candidate, template types.Template) string {
	sections := make([]string, 0, len(ordered))
	for _, c := range ordered {
		sections = append(sections, renderSection(c, template))
	}
	return strings.Join(sections, "\n")
}

// tokenize approximates token count by whitespace-delimited word count.
// No tokenizer library appears anywhere in the retrieved pack, so this is a
// deliberate stdlib heuristic rather than a byte-exact model tokenizer.
func tokenize(s string) int {
	return len(strings.Fields(s))
}

func toEvidence(c types.Candidate) types.Evidence {
	ev := types.Evidence{Source: c.Source, Score: c.Relevance}
	if c.MemoryID != "" {
		ev.MemoryID = c.MemoryID
	}
	if c.EntityID != "" {
		ev.Graph = &types.GraphEvidence{EntityID: c.EntityID, SourceMemoryIDs: c.SourceMemoryIDs}
	}
	return ev
}
