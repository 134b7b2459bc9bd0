package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// Config holds summarizer configuration
type Config struct {
	Provider string // openai, ollama, echo; empty auto-detects

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	OllamaHost  string
	OllamaModel string
	OllamaRaw   bool

	Timeout   time.Duration
	CacheSize int // Zero disables caching
}

// DetectProvider returns the provider New would use for cfg
// Priority:
// 1. Explicit Provider
// 2. openai when an API key is present
// 3. ollama
func DetectProvider(cfg Config) string {
	if p := strings.ToLower(strings.TrimSpace(cfg.Provider)); p != "" {
		return p
	}
	if cfg.OpenAIAPIKey != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}

// New creates a summarizer from cfg, wrapped in a cache when CacheSize > 0
func New(cfg Config) (Summarizer, error) {
	var s Summarizer

	switch provider := DetectProvider(cfg); provider {
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		s = p
	case ProviderOllama:
		s = NewOllamaProvider(cfg.OllamaHost, cfg.OllamaModel, cfg.OllamaRaw, cfg.Timeout)
	case ProviderEcho:
		s = NewEchoProvider()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	return NewCachingSummarizer(s, cfg.CacheSize), nil
}
