package scanner

import (
	"context"
	"strings"
)

// invisibleRunes are zero-width and otherwise invisible code points that can
// smuggle content past a human reader while remaining visible to the model.
var invisibleRunes = map[rune]bool{
	'\u200b': true, // zero width space
	'\u200c': true, // zero width non-joiner
	'\u200d': true, // zero width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // zero width no-break space
	'\u00ad': true, // soft hyphen
	'\u180e': true, // mongolian vowel separator
}

// InvisibleText detects hidden zero-width characters. With a REDACT action
// the sanitized copy has the invisible runes stripped.
type InvisibleText struct{}

// NewInvisibleText creates the scanner
func NewInvisibleText() *InvisibleText {
	return &InvisibleText{}
}

// Evaluate implements Scanner
func (s *InvisibleText) Evaluate(ctx context.Context, text string, spec Spec) (Outcome, error) {
	found := false
	for _, r := range text {
		if invisibleRunes[r] {
			found = true
			break
		}
	}

	if !found {
		return Outcome{Name: spec.Name, Text: text}, nil
	}

	stripped := strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}
		return r
	}, text)

	return Outcome{
		Name:      spec.Name,
		Triggered: true,
		Text:      stripped,
		Reason:    "invisible characters",
	}, nil
}
