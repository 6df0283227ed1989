package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ollamaAgainst(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOllamaProvider(OllamaConfig{
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  testLogger(),
	})
}

func TestOllamaGenerate(t *testing.T) {
	provider := ollamaAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), `"model":"test-model"`)
		_, _ = io.WriteString(w, `{"response":"the answer"}`)
	})

	text, err := provider.Generate(context.Background(), "question", Options{})
	require.NoError(t, err)
	require.Equal(t, "the answer", text)
}

func TestOllamaGenerateTimeoutIsDistinguishable(t *testing.T) {
	provider := ollamaAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, `{"response":"late"}`)
	})

	_, err := provider.Generate(context.Background(), "question", Options{Timeout: 20 * time.Millisecond})
	require.Error(t, err)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	require.Equal(t, "ollama", timeout.Provider)
}

func TestOllamaGenerateTimeoutMidBody(t *testing.T) {
	provider := ollamaAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		// Headers and a partial body go out before the deadline fires.
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"response":"the ans`)
		w.(http.Flusher).Flush()
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, `wer"}`)
	})

	_, err := provider.Generate(context.Background(), "question", Options{Timeout: 20 * time.Millisecond})
	require.Error(t, err)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	require.False(t, IsRetryable(err))
}

func TestOllamaGenerateStatusError(t *testing.T) {
	provider := ollamaAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "model not loaded")
	})

	_, err := provider.Generate(context.Background(), "question", Options{})
	var status *StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusInternalServerError, status.Code)
	require.Contains(t, status.Body, "model not loaded")
}

func TestOllamaGenerateEmptyResponse(t *testing.T) {
	provider := ollamaAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":""}`)
	})

	_, err := provider.Generate(context.Background(), "question", Options{})
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOllamaJSONModeAndSampling(t *testing.T) {
	var gotBody string
	provider := ollamaAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = io.WriteString(w, `{"response":"{}"}`)
	})

	temp := float32(0.2)
	_, err := provider.Generate(context.Background(), "q", Options{
		JSONMode:    true,
		Temperature: &temp,
		MaxTokens:   128,
	})
	require.NoError(t, err)
	require.Contains(t, gotBody, `"format":"json"`)
	require.Contains(t, gotBody, `"num_predict":128`)
}

func TestOllamaCheckHealth(t *testing.T) {
	healthy := ollamaAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.True(t, healthy.CheckHealth(context.Background()))

	down := NewOllamaProvider(OllamaConfig{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Logger:  testLogger(),
	})
	require.False(t, down.CheckHealth(context.Background()))
}
