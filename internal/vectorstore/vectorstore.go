// Package vectorstore defines the VectorStore collaborator contract
// and its adapters: a Qdrant-backed implementation and an
// in-memory implementation used by tests and local development.
package vectorstore

import "context"

// FilterCondition is one AND-ed clause of a Filter: exactly one of
// MatchValue, MatchAnyOf, or RangeGTE is set.
type FilterCondition struct {
	Key        string
	MatchValue string
	MatchAnyOf []string
	HasRangeGTE bool
	RangeGTE   float64
}

// Filter is an AND of FilterConditions.
type Filter struct {
	Conditions []FilterCondition
}

// MatchValueCond builds a key == value condition.
func MatchValueCond(key, value string) FilterCondition {
	return FilterCondition{Key: key, MatchValue: value}
}

// MatchAnyOfCond builds a key ∈ values condition.
func MatchAnyOfCond(key string, values []string) FilterCondition {
	return FilterCondition{Key: key, MatchAnyOf: values}
}

// RangeGTECond builds a key >= min condition.
func RangeGTECond(key string, min float64) FilterCondition {
	return FilterCondition{Key: key, HasRangeGTE: true, RangeGTE: min}
}

// Hit is one search result, with the caller's memory id surfaced directly
// for convenience alongside the raw payload.
type Hit struct {
	ID       string
	Score    float64
	MemoryID string
	Payload  map[string]interface{}
}

// VectorStore is the collaborator contract of : "upsert(id,
// vector, payload); search(vector, filter?, limit) -> [{id, score,
// memoryId?, payload}]; delete(id|filter); initialize(); close()."
type VectorStore interface {
	Initialize(ctx context.Context) error
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error
	Search(ctx context.Context, vector []float32, filter *Filter, limit int) ([]Hit, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByFilter(ctx context.Context, filter *Filter) error
	Close() error
}
