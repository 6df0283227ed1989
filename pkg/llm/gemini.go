package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	// Default model when none is configured. Overridable via TERAKOYA_GEMINI_MODEL.
	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiTimeout = 60 * time.Second
)

// GeminiConfig configures the hosted streaming adapter.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// GeminiProvider streams generations from the Gemini API. The response body is
// newline-delimited JSON; fragments are concatenated in arrival order.
type GeminiProvider struct {
	cfg    GeminiConfig
	client *http.Client
	logger zerolog.Logger
}

// NewGeminiProvider builds the adapter. The API key is deliberately not
// validated here: tests and late-bound configuration inject it after
// construction, so absence is surfaced at call time instead.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGeminiTimeout
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: &http.Client{},
		logger: cfg.Logger.With().Str("component", "gemini_provider").Logger(),
	}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiStreamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt to the streaming endpoint and reassembles the full
// text from the newline-delimited chunks. Individual malformed lines are
// skipped; a stream that yields no fragments at all is an ErrNoCandidates.
func (p *GeminiProvider) Generate(parent context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	text, err := p.generate(parent, prompt, opts)
	observe(p.Name(), p.cfg.Model, start, err)
	return text, err
}

func (p *GeminiProvider) generate(parent context.Context, prompt string, opts Options) (string, error) {
	if p.cfg.APIKey == "" {
		return "", &ConfigError{Provider: p.Name(), Message: "api key not set"}
	}

	timeout := p.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	generation := geminiGenerationConfig{}
	configured := false
	if opts.Temperature != nil {
		generation.Temperature = opts.Temperature
		configured = true
	}
	if opts.MaxTokens > 0 {
		generation.MaxOutputTokens = opts.MaxTokens
		configured = true
	}
	if opts.JSONMode {
		generation.ResponseMimeType = "application/json"
		configured = true
	}
	if configured {
		payload.GenerationConfig = &generation
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent", p.cfg.BaseURL, p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			return "", &TimeoutError{Provider: p.Name(), Timeout: timeout.String()}
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Provider: p.Name(), Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	text, err := p.collectStream(resp.Body)
	if err != nil {
		// The deadline can also fire mid-stream, after headers arrived.
		if ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			return "", &TimeoutError{Provider: p.Name(), Timeout: timeout.String()}
		}
		return "", err
	}

	return text, nil
}

// collectStream concatenates text fragments from every well-formed line in
// arrival order. Partial or malformed lines are tolerated; the framing is
// newline-delimited JSON objects, each holding zero or more candidates.
func (p *GeminiProvider) collectStream(body io.Reader) (string, error) {
	var builder strings.Builder
	fragments := 0

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk geminiStreamChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			p.logger.Debug().Err(err).Msg("skipping malformed stream line")
			continue
		}

		for _, candidate := range chunk.Candidates {
			for _, part := range candidate.Content.Parts {
				builder.WriteString(part.Text)
				fragments++
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read gemini stream: %w", err)
	}

	if fragments == 0 {
		return "", ErrNoCandidates
	}

	return builder.String(), nil
}

// CheckHealth verifies the API is reachable with the configured key. A missing
// key reports unhealthy rather than erroring.
func (p *GeminiProvider) CheckHealth(ctx context.Context) bool {
	if p.cfg.APIKey == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s", p.cfg.BaseURL, p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Msg("gemini health check failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
