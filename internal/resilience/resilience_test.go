package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(CircuitBreakerConfig{Name: "t", MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxSuccesses: 1})
	ctx := context.Background()
	failing := func(context.Context) error { return errors.New("boom") }

	_ = b.Execute(ctx, "op", failing)
	_ = b.Execute(ctx, "op", failing)

	err := b.Execute(ctx, "op", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, memerrors.Is(err, memerrors.KindStorage))
	assert.Equal(t, "open", b.State())
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker(DefaultCircuitBreakerConfig("t"))
	err := b.Execute(context.Background(), "op", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", b.State())
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), "op", func(context.Context) error {
		calls++
		return memerrors.New(memerrors.KindInputValidation, "op", errors.New("bad input"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesRetryableErrorUntilSuccess(t *testing.T) {
	calls := 0
	cfg := RetryConfig{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxElapsedTime: time.Second}
	err := Retry(context.Background(), cfg, "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return memerrors.Retryable(memerrors.New(memerrors.KindVectorStore, "op", errors.New("transient")))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
