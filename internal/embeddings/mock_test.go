package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientIsDeterministic(t *testing.T) {
	c := NewMockClient(64)
	ctx := context.Background()

	a, err := c.Embed(ctx, "hello world")
	require.NoError(t, err)
	b, err := c.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestMockClientDiffersForDifferentText(t *testing.T) {
	c := NewMockClient(32)
	ctx := context.Background()

	a, err := c.Embed(ctx, "alpha")
	require.NoError(t, err)
	b, err := c.Embed(ctx, "beta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestMockClientRejectsEmptyText(t *testing.T) {
	c := NewMockClient(8)
	_, err := c.Embed(context.Background(), "")
	assert.Error(t, err)
}

func TestMockClientEmbedBatch(t *testing.T) {
	c := NewMockClient(16)
	vs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.NotEqual(t, vs[0], vs[1])
}
