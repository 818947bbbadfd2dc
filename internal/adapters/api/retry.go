package api

import (
	"context"
	"math/rand"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = time.Second
	defaultJitter      = 500 * time.Millisecond
)

// RetryExecutor retries transient failures with exponential backoff and
// jitter. Permanent failures are returned immediately. The per-call attempt
// count is surfaced through OnAttempts for metrics.
type RetryExecutor struct {
	maxAttempts int
	backoffBase time.Duration
	jitter      time.Duration
	clock       shared.Clock

	// OnAttempts, when set, receives the operation name and total attempt
	// count after each call completes.
	OnAttempts func(op string, attempts int)
}

// NewRetryExecutor creates a retry executor. Zero arguments fall back to
// defaults; a nil clock uses the real clock.
func NewRetryExecutor(maxAttempts int, backoffBase, jitter time.Duration, clock shared.Clock) *RetryExecutor {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	if jitter <= 0 {
		jitter = defaultJitter
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RetryExecutor{
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		jitter:      jitter,
		clock:       clock,
	}
}

// Do runs fn, retrying transient failures up to the configured attempt
// budget. A server-supplied Retry-After interval replaces the computed
// backoff for that attempt.
func (r *RetryExecutor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		attempts = attempt
		err := fn(ctx)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err

		if !shared.IsTransient(err) || attempt == r.maxAttempts {
			break
		}
		if ctx.Err() != nil {
			lastErr = shared.NewTransientError(op, "cancelled during retry", ctx.Err())
			break
		}

		delay := r.backoffBase*time.Duration(1<<(attempt-1)) + time.Duration(rand.Int63n(int64(r.jitter)))
		if ra := retryAfterOf(err); ra > 0 {
			delay = ra
		}
		r.clock.Sleep(delay)
	}

	if r.OnAttempts != nil {
		r.OnAttempts(op, attempts)
	}
	return lastErr
}

func retryAfterOf(err error) time.Duration {
	var ce *shared.ClassifiedError
	if ok := asClassified(err, &ce); ok {
		return ce.RetryAfter
	}
	return 0
}
