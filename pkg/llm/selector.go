package llm

import (
	"fmt"
	"strings"
)

// Kind enumerates the known provider backends. Keeping this a closed enum
// makes adding a backend a compile-time concern in the switch below.
type Kind int

const (
	// KindOllama is the local-inference backend and the fallback default.
	KindOllama Kind = iota
	// KindGemini is the hosted streaming backend.
	KindGemini
	// KindOpenAI is the hosted chat-completions backend.
	KindOpenAI
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindGemini:
		return "gemini"
	case KindOpenAI:
		return "openai"
	default:
		return "ollama"
	}
}

// ParseKind maps a configuration string onto a provider kind. It is total:
// unset or unrecognized values fall through to the local-inference default
// rather than erroring.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		return KindGemini
	case "openai":
		return KindOpenAI
	default:
		return KindOllama
	}
}

// SelectorConfig carries the per-backend configuration needed to construct
// whichever provider is selected.
type SelectorConfig struct {
	Ollama OllamaConfig
	Gemini GeminiConfig
	OpenAI OpenAIConfig
}

// New constructs the provider for the given kind. The switch is exhaustive
// over Kind; the rest of the system depends only on the Provider interface.
func New(kind Kind, cfg SelectorConfig) (Provider, error) {
	switch kind {
	case KindGemini:
		return NewGeminiProvider(cfg.Gemini), nil
	case KindOpenAI:
		provider, err := NewOpenAIProvider(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case KindOllama:
		return NewOllamaProvider(cfg.Ollama), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %d", kind)
	}
}
