// Package embeddings defines the EmbeddingClient collaborator contract,
// a mock implementation for tests and local development, and a
// Redis-backed cache decorator.
package embeddings

import "context"

// Client is the collaborator contract of : "embed(text) ->
// vector, embedBatch([text]) -> [vector]; vectors have a fixed, configured
// dimension; failures bubble as EmbeddingError."
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
