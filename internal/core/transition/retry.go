package transition

import (
	"context"
	"time"
)

// RetryWithBackoff runs fn up to attempts times, sleeping base, 2*base,
// 4*base... between attempts, capped at max. It stops early when fn
// succeeds, when retryable rejects the error, or when the context ends
// (returning the context error).
func RetryWithBackoff(ctx context.Context, attempts int, base, max time.Duration, retryable func(error) bool, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := base
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == attempts || retryable == nil || !retryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > max {
			delay = max
		}
	}
	return err
}
