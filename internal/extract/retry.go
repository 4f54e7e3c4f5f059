package extract

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/url"
	"time"

	"github.com/dgallion1/recgest/internal/logger"
)

const (
	DefaultMaxAttempts = 5
	maxBackoff         = 10 * time.Second
	minSleep           = 500 * time.Millisecond
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// Backoff returns 2^attempt seconds plus up to one second of jitter,
// capped at ten seconds. attempt is 0-indexed.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(min(attempt, 8))) * time.Second
	jitter := time.Duration(rand.Int64N(int64(time.Second)))
	return min(base+jitter, maxBackoff)
}

// RetryPolicy bounds how often a failed completion is re-sent.
type RetryPolicy struct {
	MaxAttempts int
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// delay honors an explicit Retry-After hint over the computed backoff.
func (p RetryPolicy) delay(attempt int, err error) time.Duration {
	d := Backoff(attempt)
	var retryErr *RetryableError
	if errors.As(err, &retryErr) && retryErr.RetryAfter > 0 {
		d = retryErr.RetryAfter
	}
	return max(d, minSleep)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempt ceiling is reached. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, log *logger.Logger, fn func(ctx context.Context) (string, error)) (string, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := range attempts {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == attempts-1 {
			break
		}
		d := p.delay(attempt, err)
		log.Warn("retryable completion error", "attempt", attempt+1, "sleep", d, "error", err)
		if err := sleep(ctx, d); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
