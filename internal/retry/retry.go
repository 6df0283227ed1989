package retry

import (
	"context"
	"time"
)

// Policy bounds the retry loop. Retryable decides whether a given failure is
// worth another attempt; anything it rejects surfaces immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// DefaultPolicy retries transient transport failures up to three times with
// capped exponential backoff.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Retryable:   retryable,
	}
}

// Do executes fn, retrying under the policy with exponential backoff
// (base * 2^(attempt-1), capped at MaxDelay). Non-retryable failures and
// exhausted attempts return the last error unchanged so callers can match on
// the original failure.
func Do[T any](ctx context.Context, policy Policy, fn func() (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.Retryable == nil || !policy.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := policy.BaseDelay << (attempt - 1)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
