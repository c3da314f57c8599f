package extract

import (
	"context"
	"math/rand"
	"time"

	"github.com/allaspectsdev/windowcapd/internal/capturerr"
)

func isRetryable(err error) bool {
	return capturerr.Retryable(err)
}

// backoffDelay returns a full-jitter exponential backoff delay for the
// given attempt (0-indexed), capped at max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	d := base * time.Duration(1<<uint(attempt))
	if d > max || d <= 0 {
		d = max
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// sleepWithContext blocks for d or until ctx is cancelled, whichever comes
// first, returning ctx.Err() on cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryTransientOnce retries fn a single time if its first attempt returns
// a TransientIO-classified error. This is a soft retry, not an unbounded
// backoff loop: a capture call is cheap and idempotent, but a window's
// content may have changed by the time of the retry.
func retryTransientOnce(ctx context.Context, base time.Duration, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if !isRetryable(err) {
		return err
	}
	if sleepErr := sleepWithContext(ctx, backoffDelay(0, base, base*4)); sleepErr != nil {
		return sleepErr
	}
	return fn()
}
