package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terakoya",
		Subsystem: "llm",
		Name:      "generate_duration_seconds",
		Help:      "Duration of LLM generate requests",
	}, []string{"provider", "model"})

	generateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terakoya",
		Subsystem: "llm",
		Name:      "generate_failures_total",
		Help:      "Number of failed LLM generate requests",
	}, []string{"provider", "model"})
)

// Options configures a single generate call. The zero value means
// provider defaults; Options are never mutated by adapters.
type Options struct {
	Temperature *float32
	MaxTokens   int
	JSONMode    bool
	Timeout     time.Duration
}

// Provider is the uniform contract every text-generation backend implements.
type Provider interface {
	// Generate sends the prompt and returns the full response text.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// CheckHealth reports backend reachability. It returns false rather than
	// erroring so health endpoints stay simple.
	CheckHealth(ctx context.Context) bool
	// Name identifies the provider for logs and metrics.
	Name() string
}

func observe(provider, model string, start time.Time, err error) {
	generateDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		generateFailures.WithLabelValues(provider, model).Inc()
	}
}
