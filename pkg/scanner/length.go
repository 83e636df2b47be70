package scanner

import (
	"context"
	"fmt"
	"strings"
)

// TokenCounter is an interface for counting tokens in text
type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// SimpleTokenCounter approximates token count by whitespace-separated words.
type SimpleTokenCounter struct{}

// CountTokens counts tokens in text
func (s *SimpleTokenCounter) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// TokenLimit bounds the size of the scanned text. With a REDACT action the
// sanitized copy is truncated to the limit; with BLOCK the pipeline stops.
type TokenLimit struct {
	counter      TokenCounter
	truncateMode string // "start", "end", or "middle"
}

// TokenLimitOption represents an option for configuring the scanner
type TokenLimitOption func(*TokenLimit)

// WithTokenCounter sets the token counter
func WithTokenCounter(counter TokenCounter) TokenLimitOption {
	return func(t *TokenLimit) {
		t.counter = counter
	}
}

// WithTruncateMode sets where truncation removes text: "start", "end", or
// "middle"
func WithTruncateMode(mode string) TokenLimitOption {
	return func(t *TokenLimit) {
		t.truncateMode = mode
	}
}

// NewTokenLimit creates the scanner
func NewTokenLimit(options ...TokenLimitOption) *TokenLimit {
	t := &TokenLimit{
		counter:      &SimpleTokenCounter{},
		truncateMode: "end",
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Evaluate implements Scanner
func (t *TokenLimit) Evaluate(ctx context.Context, text string, spec Spec) (Outcome, error) {
	if spec.MaxTokens <= 0 {
		return Outcome{}, fmt.Errorf("scanner %s: max_tokens not configured", spec.Name)
	}

	tokens, err := t.counter.CountTokens(text)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to count tokens: %w", err)
	}

	if tokens <= spec.MaxTokens {
		return Outcome{Name: spec.Name, Text: text}, nil
	}

	return Outcome{
		Name:      spec.Name,
		Triggered: true,
		Text:      t.truncate(text, spec.MaxTokens),
		Reason:    fmt.Sprintf("%d tokens over limit %d", tokens, spec.MaxTokens),
	}, nil
}

// truncate shortens text to at most maxTokens tokens
func (t *TokenLimit) truncate(text string, maxTokens int) string {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}

	switch t.truncateMode {
	case "start":
		return strings.Join(words[len(words)-maxTokens:], " ")
	case "middle":
		half := maxTokens / 2
		return strings.Join(words[:half], " ") + " ... " + strings.Join(words[len(words)-half:], " ")
	default:
		return strings.Join(words[:maxTokens], " ") + " ..."
	}
}
