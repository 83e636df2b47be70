package scanner

import (
	"context"
	"fmt"
)

// Kind identifies the flavor of a scanner.
type Kind string

const (
	// KindClassifier delegates scoring to an external statistical model
	KindClassifier Kind = "classifier"

	// KindPattern is a deterministic rule-based scanner
	KindPattern Kind = "pattern"

	// KindLimiter bounds the size of the scanned text
	KindLimiter Kind = "limiter"
)

// Action is what the pipeline does when a scanner triggers.
type Action string

const (
	// ActionBlock stops the pipeline and blocks the exchange
	ActionBlock Action = "BLOCK"

	// ActionRedact replaces the carried text with the scanner's sanitized copy
	ActionRedact Action = "REDACT"
)

// Direction identifies which side of the model a pipeline guards.
type Direction string

const (
	// DirectionInput guards text on its way to the model
	DirectionInput Direction = "input"

	// DirectionOutput guards text on its way back to the user
	DirectionOutput Direction = "output"
)

// Spec is the declarative, process-wide configuration of one scanner. Specs
// are loaded once at startup and read-only thereafter.
type Spec struct {
	// Name is unique within a direction and selects the scanner factory
	Name string `yaml:"name"`

	// Kind is the scanner flavor
	Kind Kind `yaml:"kind"`

	// Action taken when the scanner triggers
	Action Action `yaml:"action"`

	// Threshold in [0,1]; classifier scanners trigger when score >= Threshold
	Threshold float64 `yaml:"threshold,omitempty"`

	// Rank orders execution; lower ranks run first. Rule-based scanners are
	// ranked before classifier scanners by configuration convention so a
	// cheap pattern match never pays for an ML invocation.
	Rank int `yaml:"rank"`

	// FailOpen opts this scanner out of the fail-closed default: an
	// execution failure is recorded and skipped instead of blocking
	FailOpen bool `yaml:"fail_open,omitempty"`

	// MaxTokens bounds the text size for limiter scanners
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Languages is the allow-list for the language scanner, ISO 639-3 codes
	Languages []string `yaml:"languages,omitempty"`
}

// Validate checks the spec's invariants
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scanner spec requires a name")
	}
	switch s.Kind {
	case KindClassifier, KindPattern, KindLimiter:
	default:
		return fmt.Errorf("scanner %s: unknown kind %q", s.Name, s.Kind)
	}
	switch s.Action {
	case ActionBlock, ActionRedact:
	default:
		return fmt.Errorf("scanner %s: unknown action %q", s.Name, s.Action)
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("scanner %s: threshold %v outside [0,1]", s.Name, s.Threshold)
	}
	return nil
}

// Outcome is the result of one scanner evaluation.
type Outcome struct {
	// Name of the scanner that produced this outcome
	Name string

	// Triggered reports whether the scanner fired
	Triggered bool

	// Score is the classifier score, when the scanner has one
	Score *float64

	// Text is the resulting text: unchanged, or a redacted copy
	Text string

	// Reason describes what triggered, for block notices and audit
	Reason string
}

// Scanner is the uniform contract every guardrail check implements.
type Scanner interface {
	// Evaluate runs the check against text under the given spec. A non-nil
	// error means the scanner itself could not execute; the pipeline treats
	// that as fail-closed unless the spec opts into fail-open.
	Evaluate(ctx context.Context, text string, spec Spec) (Outcome, error)
}
