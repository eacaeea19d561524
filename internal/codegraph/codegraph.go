// Package codegraph is the KAG channel's collaborator: a lookup of
// CodeNodes by name with bounded caller/callee/implementation expansion.
package codegraph

import (
	"context"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Store resolves code-graph nodes by name and id. Population of the graph
// (static analysis, AST indexing) is out of scope; Store only serves reads
// against whatever nodes have been registered via Upsert.
type Store interface {
	FindByName(ctx context.Context, name string) (*types.CodeNode, error)
	GetNode(ctx context.Context, id string) (*types.CodeNode, error)
	Upsert(ctx context.Context, n *types.CodeNode) error
}

// InMemoryStore is a Store backed by a plain map, suitable for tests, local
// development, and as the default when no external code-indexing service is
// configured.
type InMemoryStore struct {
	byID   map[string]*types.CodeNode
	byName map[string]string // lower(name) -> id
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]*types.CodeNode), byName: make(map[string]string)}
}

func (s *InMemoryStore) Upsert(_ context.Context, n *types.CodeNode) error {
	cp := *n
	s.byID[n.ID] = &cp
	s.byName[lower(n.Name)] = n.ID
	return nil
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (*types.CodeNode, error) {
	id, ok := s.byName[lower(name)]
	if !ok {
		return nil, nil
	}
	n := s.byID[id]
	cp := *n
	return &cp, nil
}

func (s *InMemoryStore) GetNode(_ context.Context, id string) (*types.CodeNode, error) {
	n, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
