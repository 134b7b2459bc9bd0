package summarizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderFailed      = errors.New("summarization provider failed")
	ErrEmptyGeneration     = fmt.Errorf("%w: empty generation", ErrProviderFailed)
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrNoProviderEnabled   = errors.New("no summarization provider configured")
)

// Generation defaults. Output is a short factual summary, so the length cap
// and randomness are both low.
const (
	DefaultMaxTokens   = 100
	DefaultTemperature = 0.3
)

// Request is a single summarization call
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int     // Optional: defaults to DefaultMaxTokens
	Temperature float32 // Zero is sent as-is
}

// Summary is the generated text with metadata
type Summary struct {
	Text     string
	Provider string
	Model    string
	Cached   bool
}

// Summarizer turns a prompt into generated text
type Summarizer interface {
	// Summarize generates text for the request
	Summarize(ctx context.Context, req Request) (*Summary, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the summarizer
	Close() error
}

// ValidateRequest validates a summarization request
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if req.MaxTokens < 0 {
		return fmt.Errorf("%w: max tokens must not be negative", ErrInvalidInput)
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f out of range [0, 2]", ErrInvalidInput, req.Temperature)
	}
	return nil
}

// withDefaults fills unset generation parameters
func withDefaults(req Request) Request {
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	return req
}

// ComputeHash computes a SHA-256 cache key over the request and the backend
// that serves it
func ComputeHash(provider, model string, req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%g\x00", provider, model, req.MaxTokens, req.Temperature)
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// checkGeneration trims generated text and rejects empty output
func checkGeneration(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}
