package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EstimateTokens approximates the token count of a prompt without a real
// tokenizer. Four bytes per token is close enough to pace request volume.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Config bounds outbound LLM traffic over a rolling window.
type Config struct {
	MaxRequests int
	MaxTokens   int
	Window      time.Duration
}

// RateLimiter grants admission to outbound LLM calls under per-window request
// and token budgets. Construct one at the composition root and inject it into
// every caller; all counters live on the instance, never in package state.
type RateLimiter struct {
	mu          sync.Mutex
	cfg         Config
	windowStart time.Time
	requests    int
	tokens      int
	logger      zerolog.Logger
	now         func() time.Time
}

// New constructs a rate limiter. Zero or negative config values fall back to
// permissive defaults.
func New(cfg Config, logger zerolog.Logger) *RateLimiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 60
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100000
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return &RateLimiter{
		cfg:    cfg,
		logger: logger.With().Str("component", "rate_limiter").Logger(),
		now:    time.Now,
	}
}

// Acquire blocks until the estimated token cost fits into the current window
// budget, or the context is done. Admission decisions are serialized under the
// mutex so concurrent callers can never share a slot.
func (r *RateLimiter) Acquire(ctx context.Context, estimatedTokens int) error {
	if estimatedTokens > r.cfg.MaxTokens {
		return fmt.Errorf("request of %d tokens exceeds window budget of %d", estimatedTokens, r.cfg.MaxTokens)
	}

	for {
		r.mu.Lock()
		now := r.now()
		if r.windowStart.IsZero() || now.Sub(r.windowStart) >= r.cfg.Window {
			r.windowStart = now
			r.requests = 0
			r.tokens = 0
		}

		if r.requests < r.cfg.MaxRequests && r.tokens+estimatedTokens <= r.cfg.MaxTokens {
			r.requests++
			r.tokens += estimatedTokens
			r.mu.Unlock()
			return nil
		}

		wait := r.cfg.Window - now.Sub(r.windowStart)
		r.mu.Unlock()

		if wait <= 0 {
			continue
		}

		r.logger.Debug().Dur("wait", wait).Int("tokens", estimatedTokens).Msg("rate limit reached, waiting for window reset")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
