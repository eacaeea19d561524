package types

import "time"

// Route classifies a query's intent.
type Route string

const (
	RouteMemory Route = "memory"
	RouteCode   Route = "code"
	RouteHybrid Route = "hybrid"
)

// Source names the retrieval channel a candidate came from.
type Source string

const (
	SourceRAG      Source = "rag"
	SourceKAG      Source = "kag"
	SourceGraphRAG Source = "graphrag"
)

// Template selects the context-assembler's rendering mode.
type Template string

const (
	TemplateDefault  Template = "default"
	TemplateCompact  Template = "compact"
	TemplateDetailed Template = "detailed"
)

// ScoreBreakdown names every factor's contribution to a final score.
type ScoreBreakdown struct {
	Semantic   float64
	Recency    float64
	Confidence float64
	Frequency  float64
	Raw        float64 // weighted combination, pre-boost
	Boosted    float64 // final, post-boost, clamped to [0,2]
	AppliedBoosts []string
}

// GraphEvidence is the graph-shaped payload of an Evidence record.
type GraphEvidence struct {
	EntityID        string
	SourceMemoryIDs []string
}

// Evidence is one machine-readable citation emitted alongside an admitted
// section (step 7).
type Evidence struct {
	Source   Source
	MemoryID string
	Graph    *GraphEvidence
	Score    float64
}

// Candidate is a unit of retrieved evidence flowing through routing,
// reranking, and assembly.
type Candidate struct {
	ID          string
	Source      Source
	Relevance   float64
	QueryTerms  map[string]struct{}

	// Section is the formatted (but not yet budget-checked) text.
	SectionTitle string
	SectionBody  string
	Tokens       int

	MemoryID   string // for RAG candidates
	EntityID   string // for GraphRAG candidates
	SourceMemoryIDs []string // propagated for cache invalidation

	// Tags and Importance mirror the source memory's metadata, for the
	// detailed template's raw-metadata rendering. Tags is sorted ascending.
	Tags       []string
	Importance float64

	Breakdown *ScoreBreakdown
}

// GraphRAGMode selects one of the three GraphRAG search strategies.
type GraphRAGMode string

const (
	GraphRAGLocal  GraphRAGMode = "local"
	GraphRAGGlobal GraphRAGMode = "global"
	GraphRAGDrift  GraphRAGMode = "drift"
)

// GraphRAGLocalResult is the local (entity-centric) search's structured
// return value.
type GraphRAGLocalResult struct {
	Entities      []Entity
	Relationships []Relationship
	TotalExpanded int
}

// GraphRAGGlobalResult is the global (community-centric) search's
// structured return value.
type GraphRAGGlobalResult struct {
	Reports          []CommunityReport
	SynthesisedAnswer string
}

// GraphRAGDriftResult is the drift (iterative) search's structured return
// value.
type GraphRAGDriftResult struct {
	Entities    []Entity
	Hypotheses  []string
	Iterations  int
	Converged   bool
}

// Filters narrows a RAG search.
type Filters struct {
	Kind          MemoryKind
	Tags          []string
	MinImportance float64
	RelatedFiles  []string
}

// ContextInput is the request to buildContext.
type ContextInput struct {
	Query            string
	TokenBudget      int
	IncludeCodeGraph bool
	IncludeGraphRAG  bool
	IncludeEvidence  bool
	Template         Template
	Filters          Filters
	RequestedAt      time.Time
}

// ContextMetadata accompanies the assembled document.
type ContextMetadata struct {
	TotalTokens      int
	SectionsIncluded int
	RAGSections      int
	KAGSections      int
	GraphRAGSections int
	Truncated        bool
	Route            Route
	CacheHit         bool
}

// ContextResult is buildContext's return value.
type ContextResult struct {
	Context  string
	Metadata ContextMetadata
	Evidence []Evidence
}
