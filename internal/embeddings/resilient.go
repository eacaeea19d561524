package embeddings

import (
	"context"

	"github.com/lerianstudio/memory-retrieval/internal/resilience"
)

// ResilientClient wraps a Client with circuit breaking and retry, layered
// from the shared resilience package instead of a hand-rolled breaker.
type ResilientClient struct {
	inner   Client
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// NewResilientClient wraps inner with cfg's breaker and retry policy.
func NewResilientClient(inner Client, breakerCfg resilience.CircuitBreakerConfig, retryCfg resilience.RetryConfig) *ResilientClient {
	return &ResilientClient{inner: inner, breaker: resilience.NewBreaker(breakerCfg), retry: retryCfg}
}

func (c *ResilientClient) Dimension() int { return c.inner.Dimension() }

func (c *ResilientClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := c.breaker.Execute(ctx, "embeddings.Embed", func(ctx context.Context) error {
		return resilience.Retry(ctx, c.retry, "embeddings.Embed", func(ctx context.Context) error {
			v, err := c.inner.Embed(ctx, text)
			if err != nil {
				return err
			}
			result = v
			return nil
		})
	})
	return result, err
}

func (c *ResilientClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := c.breaker.Execute(ctx, "embeddings.EmbedBatch", func(ctx context.Context) error {
		return resilience.Retry(ctx, c.retry, "embeddings.EmbedBatch", func(ctx context.Context) error {
			v, err := c.inner.EmbedBatch(ctx, texts)
			if err != nil {
				return err
			}
			result = v
			return nil
		})
	})
	return result, err
}
