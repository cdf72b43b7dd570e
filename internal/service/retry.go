package service

import (
	"context"
	"errors"
	"time"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
)

// readWithRetry retries an idempotent read once after a transient storage
// failure. Writes never go through here.
func readWithRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !errors.Is(err, domain.ErrTransient) {
		return v, err
	}

	timer := time.NewTimer(config.ReadRetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return v, err
	case <-timer.C:
	}
	return fn(ctx)
}
