package scanner

import (
	"context"

	"github.com/abadojack/whatlanggo"
)

// LanguageMatch triggers when the scanned text is confidently detected as a
// language outside the spec's allow-list. Short or ambiguous text is left
// alone; only reliable detections trigger.
type LanguageMatch struct{}

// NewLanguageMatch creates the scanner
func NewLanguageMatch() *LanguageMatch {
	return &LanguageMatch{}
}

// Evaluate implements Scanner
func (s *LanguageMatch) Evaluate(ctx context.Context, text string, spec Spec) (Outcome, error) {
	allowed := spec.Languages
	if len(allowed) == 0 {
		allowed = []string{"eng"}
	}

	info := whatlanggo.Detect(text)
	code := whatlanggo.LangToString(info.Lang)
	score := info.Confidence

	if !info.IsReliable() {
		return Outcome{Name: spec.Name, Score: &score, Text: text}, nil
	}

	for _, lang := range allowed {
		if code == lang {
			return Outcome{Name: spec.Name, Score: &score, Text: text}, nil
		}
	}

	return Outcome{
		Name:      spec.Name,
		Triggered: true,
		Score:     &score,
		Text:      text,
		Reason:    "detected language " + code,
	}, nil
}
