package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"valid", Request{Prompt: "p", MaxTokens: 10, Temperature: 0.3}, nil},
		{"empty prompt", Request{Prompt: " \n"}, ErrEmptyPrompt},
		{"negative max tokens", Request{Prompt: "p", MaxTokens: -1}, ErrInvalidInput},
		{"temperature too high", Request{Prompt: "p", Temperature: 2.5}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComputeHash(t *testing.T) {
	req := Request{System: "s", Prompt: "p", MaxTokens: 100, Temperature: 0.3}

	h1 := ComputeHash("openai", "gpt", req)
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, ComputeHash("openai", "gpt", req))
	assert.NotEqual(t, h1, ComputeHash("ollama", "gpt", req))
	assert.NotEqual(t, h1, ComputeHash("openai", "gpt", Request{System: "sp", Prompt: "", MaxTokens: 100, Temperature: 0.3}))
}

func TestEmptyGenerationWrapsProviderFailed(t *testing.T) {
	_, err := checkGeneration(" \t")
	assert.ErrorIs(t, err, ErrEmptyGeneration)
	assert.ErrorIs(t, err, ErrProviderFailed)

	text, err := checkGeneration(" ok ")
	assert.NoError(t, err)
	assert.Equal(t, "ok", text)
}
