// Package retry re-runs idempotent operations that failed with a retryable
// error, backing off exponentially with jitter.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/fastprodman/coinescrow/internal/config"
	"github.com/fastprodman/coinescrow/internal/domain"
)

// Do calls fn up to cfg.MaxAttempts times. Only errors for which
// domain.IsRetryable reports true are retried; anything else is returned
// as is. The delay starts at cfg.BaseDelay and doubles after every
// attempt, with +-25% jitter.
func Do(ctx context.Context, cfg config.RetryConfig, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := cfg.BaseDelay

	var err error

	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsRetryable(err) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(jittered(delay))

		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
	}
}

func jittered(d time.Duration) time.Duration {
	jitter := int64(d / 4)
	if jitter <= 0 {
		return d
	}

	return d - time.Duration(jitter) + time.Duration(rand.Int64N(2*jitter+1))
}
