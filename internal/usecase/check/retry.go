package check

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryWithBackoff runs op up to maxRetries+1 times with exponential
// backoff starting at baseDelay, doubling each attempt. Cancellation of
// ctx aborts both the in-flight attempt and any pending sleep, so the
// surrounding timeout never waits out a retry schedule.
func retryWithBackoff[T any](ctx context.Context, maxRetries int, baseDelay time.Duration, op func(context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	return backoff.Retry(ctx,
		func() (T, error) { return op(ctx) },
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxRetries)+1),
	)
}
