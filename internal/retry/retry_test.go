package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func quickPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		Retryable:   retryable,
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), quickPolicy(func(err error) bool {
		return errors.Is(err, errTransient)
	}), func() (string, error) {
		calls++
		if calls <= 2 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, calls)
}

func TestDoDoesNotRetryFatalErrors(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), quickPolicy(func(err error) bool {
		return errors.Is(err, errTransient)
	}), func() (int, error) {
		calls++
		return 0, errFatal
	})

	require.ErrorIs(t, err, errFatal)
	require.Equal(t, 1, calls)
}

func TestDoExhaustionReturnsLastErrorUnchanged(t *testing.T) {
	wrapped := errors.New("attempt specific")
	calls := 0
	_, err := Do(context.Background(), quickPolicy(func(error) bool { return true }), func() (int, error) {
		calls++
		if calls == 3 {
			return 0, wrapped
		}
		return 0, errTransient
	})

	require.Equal(t, 3, calls)
	// The final attempt's error surfaces as-is, not wrapped.
	require.Same(t, wrapped, err)
}

func TestDoRespectsContextDuringBackoff(t *testing.T) {
	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Second,
		Retryable:   func(error) bool { return true },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := Do(ctx, policy, func() (int, error) {
		calls++
		return 0, errTransient
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, calls)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), Policy{}, func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, result)
	require.Equal(t, 1, calls)
}
