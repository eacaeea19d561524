package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
)

// RetryConfig configures exponential-backoff retry of a collaborator call.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig returns sane defaults for a remote collaborator call.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// Retry runs fn with exponential backoff per cfg, bound to ctx. fn should
// return a *memerrors.Error; only errors marked Retryable are retried — any
// other error (or a non-*Error) stops retrying immediately.
func Retry(ctx context.Context, cfg RetryConfig, op string, fn func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = cfg.MaxElapsedTime

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var merr *memerrors.Error
		if errors.As(err, &merr) && !merr.Retryable {
			return backoff.Permanent(err)
		}
		if !errors.As(err, &merr) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}
