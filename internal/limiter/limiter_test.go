package limiter

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("abc"))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 2, EstimateTokens("abcde"))
}

func TestAcquireWithinBudget(t *testing.T) {
	rl := New(Config{MaxRequests: 5, MaxTokens: 100, Window: time.Minute}, testLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Acquire(context.Background(), 10))
	}
}

func TestAcquireRejectsOversizedRequest(t *testing.T) {
	rl := New(Config{MaxRequests: 5, MaxTokens: 100, Window: time.Minute}, testLogger())
	err := rl.Acquire(context.Background(), 101)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds window budget")
}

func TestAcquireBlocksWhenExhausted(t *testing.T) {
	rl := New(Config{MaxRequests: 1, MaxTokens: 100, Window: time.Minute}, testLogger())
	require.NoError(t, rl.Acquire(context.Background(), 10))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Acquire(ctx, 10)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireAdmitsExactlyBudgetPerWindow(t *testing.T) {
	const budget = 3
	const callers = 8

	rl := New(Config{MaxRequests: budget, MaxTokens: 1000, Window: 100 * time.Millisecond}, testLogger())

	var admitted atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rl.Acquire(ctx, 1); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	// Only the window budget is admitted before the window rolls over.
	require.Equal(t, int32(budget), admitted.Load())
}

func TestAcquireWindowReset(t *testing.T) {
	current := time.Unix(1000, 0)
	rl := New(Config{MaxRequests: 1, MaxTokens: 100, Window: time.Minute}, testLogger())
	rl.now = func() time.Time { return current }

	require.NoError(t, rl.Acquire(context.Background(), 50))

	// Budget exhausted inside the window.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	require.Error(t, rl.Acquire(ctx, 50))
	cancel()

	// After the window elapses the budget is restored.
	current = current.Add(61 * time.Second)
	require.NoError(t, rl.Acquire(context.Background(), 50))
}
