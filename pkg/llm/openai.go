package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 60 * time.Second
)

// OpenAIConfig configures the hosted chat-completions adapter.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// OpenAIProvider generates text via the OpenAI chat-completions API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger zerolog.Logger
}

// NewOpenAIProvider builds the adapter. Configuration is validated here, at
// construction, so a missing key fails the composition root instead of the
// first request.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigError{Provider: "openai", Message: "api key is required"}
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOpenAITimeout
	}

	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))

	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "openai_provider").Logger(),
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Generate sends a single-turn chat completion. An empty completion is an
// error, and API failures carry the backend status code when available.
func (p *OpenAIProvider) Generate(parent context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	text, err := p.generate(parent, prompt, opts)
	observe(p.Name(), p.cfg.Model, start, err)
	return text, err
}

func (p *OpenAIProvider) generate(parent context.Context, prompt string, opts Options) (string, error) {
	timeout := p.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	request := openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if opts.Temperature != nil {
		request.Temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		request.MaxTokens = opts.MaxTokens
	}
	if opts.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return "", &TimeoutError{Provider: p.Name(), Timeout: timeout.String()}
		}

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: p.Name(), Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoCandidates
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	return content, nil
}

// CheckHealth lists models as a cheap reachability probe.
func (p *OpenAIProvider) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		p.logger.Debug().Err(err).Msg("openai health check failed")
		return false
	}
	return true
}
