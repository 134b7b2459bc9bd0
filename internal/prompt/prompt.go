package prompt

import (
	"strings"
	"unicode/utf8"
)

const (
	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4

	// DefaultInputTokens leaves room for the generated summary in a
	// 2048-token context window
	DefaultInputTokens = 1800

	// TruncationMarker is appended when input is cut to fit the budget
	TruncationMarker = "[truncated]"
)

// SystemInstruction frames every summarization request
const SystemInstruction = "You are a clinical AI assistant specializing in summarizing patient notes accurately and concisely."

const (
	dischargeNoteTask = "Summarize the following clinical discharge note into a concise paragraph:"
	clinicalDataTask  = "Summarize the following clinical data into a concise, one-paragraph clinical summary:"
)

// Prompt is a system instruction plus the user request
type Prompt struct {
	System string
	User   string
}

// Render flattens the prompt into the chat-tag template used by small
// completion models such as TinyLlama
func (p Prompt) Render() string {
	var b strings.Builder
	b.WriteString("<|system|>\n")
	b.WriteString(p.System)
	b.WriteString("\n<|user|>\n")
	b.WriteString(p.User)
	b.WriteString("\n<|assistant|>\n")
	return b.String()
}

// DischargeNote builds the prompt for summarizing a stored discharge note.
// budget is the input token budget; zero or less disables truncation.
func DischargeNote(noteText string, budget int) Prompt {
	return build(dischargeNoteTask, noteText, budget)
}

// ClinicalData builds the prompt for summarizing a clinical narrative
func ClinicalData(narrative string, budget int) Prompt {
	return build(clinicalDataTask, narrative, budget)
}

func build(task, body string, budget int) Prompt {
	if budget > 0 {
		// The instruction and task count against the same window
		budget -= EstimateTokenCount(SystemInstruction) + EstimateTokenCount(task)
		if budget < 1 {
			budget = 1
		}
		body = Truncate(body, budget)
	}
	return Prompt{
		System: SystemInstruction,
		User:   task + "\n\n" + strings.TrimSpace(body),
	}
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}

// Truncate cuts text to roughly maxTokens tokens, preferring a whitespace
// boundary, and appends TruncationMarker when anything was removed
func Truncate(text string, maxTokens int) string {
	maxChars := maxTokens * TokensPerChar
	if maxTokens <= 0 || len(text) <= maxChars {
		return text
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	head := text[:cut]
	if i := strings.LastIndexAny(head, " \n\t"); i > len(head)/2 {
		head = head[:i]
	}
	return strings.TrimRight(head, " \n\t") + "\n" + TruncationMarker
}
