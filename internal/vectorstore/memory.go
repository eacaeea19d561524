package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// InMemoryStore is a VectorStore implementation backed by a plain map, used
// by tests and local development in place of Qdrant.
type InMemoryStore struct {
	mu     sync.RWMutex
	points map[string]point
}

type point struct {
	vector  []float32
	payload map[string]interface{}
}

// NewInMemoryStore constructs an empty in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{points: make(map[string]point)}
}

func (s *InMemoryStore) Initialize(ctx context.Context) error { return nil }

func (s *InMemoryStore) Upsert(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[id] = point{vector: append([]float32(nil), vector...), payload: payload}
	return nil
}

func (s *InMemoryStore) Search(ctx context.Context, vector []float32, filter *Filter, limit int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]Hit, 0, len(s.points))
	for id, p := range s.points {
		if !matches(filter, p.payload) {
			continue
		}
		score := cosineSimilarity(vector, p.vector)
		memoryID, _ := p.payload["memory_id"].(string)
		hits = append(hits, Hit{ID: id, Score: score, MemoryID: memoryID, Payload: p.payload})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit >= 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *InMemoryStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.points, id)
	return nil
}

func (s *InMemoryStore) DeleteByFilter(ctx context.Context, filter *Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if matches(filter, p.payload) {
			delete(s.points, id)
		}
	}
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

func matches(f *Filter, payload map[string]interface{}) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Conditions {
		v, ok := payload[c.Key]
		if !ok {
			return false
		}
		switch {
		case len(c.MatchAnyOf) > 0:
			s, _ := v.(string)
			found := false
			for _, want := range c.MatchAnyOf {
				if want == s {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case c.HasRangeGTE:
			n, ok := asFloat(v)
			if !ok || n < c.RangeGTE {
				return false
			}
		default:
			s, _ := v.(string)
			if s != c.MatchValue {
				return false
			}
		}
	}
	return true
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
