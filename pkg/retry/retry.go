package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried: how many attempts it gets,
// which errors are worth retrying, and how long to wait between attempts.
// Delay may derive the wait from the error itself (e.g. a server-provided
// retry-after duration).
type Policy struct {
	MaxAttempts int
	Retryable   func(err error) bool
	Delay       func(attempt int, err error) time.Duration
}

// Do runs op until it succeeds, an error is deemed non-retryable, or
// MaxAttempts is exhausted. The final error is returned as-is.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		var delay time.Duration
		if p.Delay != nil {
			delay = p.Delay(attempt, err)
		}
		if delay > 0 {
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
