package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"syscall"
	"time"
)

// HTTPStatusError reports a non-2xx gateway response. The status code decides
// retryability: 5xx is transient, 4xx is a definitive rejection.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gateway returned status %d", e.StatusCode)
}

// RetryPolicy controls DoWithRetry. Delays grow exponentially from BaseDelay,
// capped at MaxDelay, with up to JitterFraction of random spread on each wait.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
}

// DefaultRetryPolicy matches the gateway exchange defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		JitterFraction: 0.2,
	}
}

// IsRetryable reports whether the error is transient: timeouts, connection
// resets and 5xx responses retry; 4xx responses never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	return false
}

// DoWithRetry runs op until it succeeds, fails with a non-retryable error, or
// the attempt budget is spent. The last error is returned as-is so callers
// can classify it.
func DoWithRetry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var err error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.backoff(attempt)):
			}
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
	}
	return err
}

// backoff computes the pre-attempt delay: BaseDelay doubled per prior attempt,
// capped at MaxDelay, jittered within ±JitterFraction
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFraction > 0 {
		spread := float64(delay) * p.JitterFraction
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
