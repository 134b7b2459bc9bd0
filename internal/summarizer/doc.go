// Package summarizer turns composed prompts into generated clinical
// summaries behind a single Summarizer interface.
//
// # Providers
//
//   - openai: chat completions via github.com/sashabaranov/go-openai. Set
//     OpenAIBaseURL to target any OpenAI-compatible server.
//   - ollama: a local Ollama runtime over its /api/generate endpoint.
//   - echo: returns the prompt truncated to MaxTokens words. Offline and
//     deterministic, for demos and tests.
//
// The provider is picked once at startup by New. Every backend failure is
// reported as ErrProviderFailed so callers never branch on backend-specific
// error shapes.
//
// # Usage
//
//	s, err := summarizer.New(summarizer.Config{Provider: "ollama", CacheSize: 256})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	summary, err := s.Summarize(ctx, summarizer.Request{
//	    System:      "You are a clinical AI assistant.",
//	    Prompt:      "Summarize the following note: ...",
//	    MaxTokens:   100,
//	    Temperature: 0.3,
//	})
//
// # Retry
//
// Hosted providers retry transient failures with exponential backoff.
// Context cancellation and client errors other than 429 are not retried.
package summarizer
