package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoCandidates indicates a streaming response produced no text fragments at all.
var ErrNoCandidates = errors.New("no candidates returned")

// ErrEmptyCompletion indicates the backend answered successfully but with no text.
var ErrEmptyCompletion = errors.New("empty completion returned")

// ConfigError reports missing or invalid provider configuration. It is raised
// at call time and is never retryable.
type ConfigError struct {
	Provider string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// StatusError carries a non-2xx backend response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Code, e.Body)
}

// TimeoutError marks a client-side timeout, distinguishable from other
// transport failures so retry policies can treat it separately.
type TimeoutError struct {
	Provider string
	Timeout  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s", e.Provider, e.Timeout)
}

// IsRetryable is the default retry classifier: rate-limit responses and
// server-side failures are transient, everything else (configuration errors,
// client errors, timeouts) is not. Timeouts are excluded so retries do not
// compound already long waits.
func IsRetryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		switch status.Code {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return false
	}
	var config *ConfigError
	if errors.As(err, &config) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrNoCandidates) || errors.Is(err, ErrEmptyCompletion) {
		return false
	}

	// Remaining transport-level failures (connection refused, resets) are
	// worth another attempt.
	return true
}
