package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dshills/clinical-mcp/internal/prompt"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderEcho   = "echo"

	// Default models
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "tinyllama"
	EchoModel          = "echo"

	DefaultOllamaHost = "http://localhost:11434"
	DefaultTimeout    = 60 * time.Second
)

// OpenAIProvider implements Summarizer using the chat completions API of
// OpenAI or any compatible server (llama.cpp, vLLM, LM Studio)
type OpenAIProvider struct {
	client *openai.Client
	model  string
	retry  RetryConfig
}

// NewOpenAIProvider creates a new OpenAI summarizer. baseURL and model are
// optional.
func NewOpenAIProvider(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	config.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
		retry:  DefaultRetryConfig(),
	}, nil
}

func (o *OpenAIProvider) Summarize(ctx context.Context, req Request) (*Summary, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	req = withDefaults(req)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := retryWithBackoff(ctx, o.retry, func() (openai.ChatCompletionResponse, error) {
		return o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", ErrProviderFailed, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai: no choices returned", ErrEmptyGeneration)
	}
	text, err := checkGeneration(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}
	return &Summary{
		Text:     text,
		Provider: ProviderOpenAI,
		Model:    model,
	}, nil
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	return nil
}

// OllamaProvider implements Summarizer using a local Ollama runtime
type OllamaProvider struct {
	host       string
	model      string
	raw        bool
	httpClient *http.Client
	retry      RetryConfig
}

// NewOllamaProvider creates a new Ollama summarizer. With raw set the
// prompt is sent pre-rendered in chat-tag form and the model's own
// template is bypassed.
func NewOllamaProvider(host, model string, raw bool, timeout time.Duration) *OllamaProvider {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OllamaProvider{
		host:  strings.TrimRight(host, "/"),
		model: model,
		raw:   raw,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: DefaultRetryConfig(),
	}
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float32 `json:"temperature"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Raw     bool          `json:"raw,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *OllamaProvider) Summarize(ctx context.Context, req Request) (*Summary, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	req = withDefaults(req)

	body := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		System: req.System,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}
	if o.raw {
		body.Prompt = prompt.Prompt{System: req.System, User: req.Prompt}.Render()
		body.System = ""
		body.Raw = true
	}

	resp, err := retryWithBackoff(ctx, o.retry, func() (*ollamaGenerateResponse, error) {
		return o.callAPI(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %w", ErrProviderFailed, err)
	}

	text, err := checkGeneration(resp.Response)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Text:     text,
		Provider: ProviderOllama,
		Model:    o.model,
	}, nil
}

func (o *OllamaProvider) callAPI(ctx context.Context, reqBody ollamaGenerateRequest) (*ollamaGenerateResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	var apiResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != "" {
		return nil, fmt.Errorf("api error: %s", apiResp.Error)
	}
	return &apiResp, nil
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// EchoProvider returns the prompt itself, cut to MaxTokens whitespace
// separated tokens. It needs no model and is deterministic.
type EchoProvider struct{}

// NewEchoProvider creates an offline summarizer
func NewEchoProvider() *EchoProvider {
	return &EchoProvider{}
}

func (e *EchoProvider) Summarize(ctx context.Context, req Request) (*Summary, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: echo: %w", ErrProviderFailed, err)
	}
	req = withDefaults(req)

	words := strings.Fields(req.Prompt)
	if len(words) > req.MaxTokens {
		words = words[:req.MaxTokens]
	}
	text, err := checkGeneration(strings.Join(words, " "))
	if err != nil {
		return nil, err
	}
	return &Summary{
		Text:     text,
		Provider: ProviderEcho,
		Model:    EchoModel,
	}, nil
}

func (e *EchoProvider) Provider() string {
	return ProviderEcho
}

func (e *EchoProvider) Model() string {
	return EchoModel
}

func (e *EchoProvider) Close() error {
	return nil
}
