package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultOllamaTimeout = 60 * time.Second

// OllamaConfig configures the local-inference adapter.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// OllamaProvider generates text against a local Ollama-compatible inference
// server. The default backend for development and self-hosted deployments.
type OllamaProvider struct {
	cfg    OllamaConfig
	client *http.Client
	logger zerolog.Logger
}

// NewOllamaProvider builds the adapter. Missing values fall back to local defaults.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOllamaTimeout
	}

	return &OllamaProvider{
		cfg:    cfg,
		client: &http.Client{},
		logger: cfg.Logger.With().Str("component", "ollama_provider").Logger(),
	}
}

// Name implements Provider.
func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Format  string                 `json:"format,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// Generate posts the prompt to the local endpoint and returns the full
// response text. A client-side timeout aborts the in-flight request and is
// reported as a *TimeoutError distinguishable from other transport failures.
func (p *OllamaProvider) Generate(parent context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	text, err := p.generate(parent, prompt, opts)
	observe(p.Name(), p.cfg.Model, start, err)
	return text, err
}

func (p *OllamaProvider) generate(parent context.Context, prompt string, opts Options) (string, error) {
	timeout := p.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	payload := ollamaGenerateRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: false,
	}
	if opts.JSONMode {
		payload.Format = "json"
	}

	options := map[string]interface{}{}
	if opts.Temperature != nil {
		options["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		payload.Options = options
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return "", &TimeoutError{Provider: p.Name(), Timeout: timeout.String()}
		}
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Provider: p.Name(), Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var decoded ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		// The deadline can also fire mid-body, after headers arrived.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return "", &TimeoutError{Provider: p.Name(), Timeout: timeout.String()}
		}
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	if decoded.Response == "" {
		return "", ErrEmptyCompletion
	}

	return decoded.Response, nil
}

// CheckHealth does a lightweight GET against the server root. It never errors.
func (p *OllamaProvider) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Msg("ollama health check failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
