package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	PromptDir    string
	EvalCacheTTL time.Duration

	LLMProvider    string
	LLMTimeout     time.Duration
	LLMTemperature float32
	LLMMaxTokens   int

	OllamaBaseURL string
	OllamaModel   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	RateMaxRequests int
	RateMaxTokens   int
	RateWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TERAKOYA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Terakoya API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("prompt.dir", "prompts")
	v.SetDefault("eval.cache_ttl", "10m")
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.timeout_ms", 60000)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.1")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("rate.max_requests", 60)
	v.SetDefault("rate.max_tokens", 100000)
	v.SetDefault("rate.window", "1m")

	cacheTTL, err := time.ParseDuration(v.GetString("eval.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid eval cache ttl: %w", err)
	}

	window, err := time.ParseDuration(v.GetString("rate.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate window: %w", err)
	}

	timeoutMs := v.GetInt("llm.timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 60000
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		JWTSecret:   v.GetString("jwt.secret"),

		PromptDir:    v.GetString("prompt.dir"),
		EvalCacheTTL: cacheTTL,

		LLMProvider:    strings.ToLower(v.GetString("llm.provider")),
		LLMTimeout:     time.Duration(timeoutMs) * time.Millisecond,
		LLMTemperature: float32(v.GetFloat64("llm.temperature")),
		LLMMaxTokens:   v.GetInt("llm.max_tokens"),

		OllamaBaseURL: v.GetString("ollama.base_url"),
		OllamaModel:   v.GetString("ollama.model"),
		GeminiAPIKey:  v.GetString("gemini.api_key"),
		GeminiModel:   v.GetString("gemini.model"),
		GeminiBaseURL: v.GetString("gemini.base_url"),
		OpenAIAPIKey:  v.GetString("openai.api_key"),
		OpenAIModel:   v.GetString("openai.model"),

		RateMaxRequests: v.GetInt("rate.max_requests"),
		RateMaxTokens:   v.GetInt("rate.max_tokens"),
		RateWindow:      window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
