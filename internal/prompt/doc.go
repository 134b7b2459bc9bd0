// Package prompt composes the summarization prompts for discharge notes and
// remote clinical narratives, keeping the input inside a token budget.
package prompt
