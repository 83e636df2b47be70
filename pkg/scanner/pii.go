package scanner

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/talakunchi/chatguard/pkg/interfaces"
)

// PIIRedactor replaces sensitive spans with fixed category-coded placeholders
// such as [REDACTED:EMAIL]. Placeholder length is independent of the original
// span's length, so nothing about the redacted value leaks through. Text
// around the spans is never touched.
type PIIRedactor struct {
	recognizer interfaces.EntityRecognizer
}

// NewPIIRedactor creates the redactor backed by the given recognizer. A nil
// recognizer falls back to the built-in regex recognizer.
func NewPIIRedactor(recognizer interfaces.EntityRecognizer) *PIIRedactor {
	if recognizer == nil {
		recognizer = NewRegexRecognizer()
	}
	return &PIIRedactor{recognizer: recognizer}
}

// Evaluate implements Scanner
func (s *PIIRedactor) Evaluate(ctx context.Context, text string, spec Spec) (Outcome, error) {
	entities, err := s.recognizer.Recognize(ctx, text)
	if err != nil {
		return Outcome{}, fmt.Errorf("entity recognition failed: %w", err)
	}

	if len(entities) == 0 {
		return Outcome{Name: spec.Name, Text: text}, nil
	}

	var b strings.Builder
	last := 0
	categories := make([]string, 0, len(entities))
	for _, entity := range entities {
		if entity.Start < last || entity.End > len(text) {
			continue
		}
		b.WriteString(text[last:entity.Start])
		fmt.Fprintf(&b, "[REDACTED:%s]", entity.Category)
		last = entity.End
		categories = append(categories, entity.Category)
	}
	b.WriteString(text[last:])

	return Outcome{
		Name:      spec.Name,
		Triggered: true,
		Text:      b.String(),
		Reason:    strings.Join(categories, ","),
	}, nil
}

// RegexRecognizer is the built-in entity recognizer covering the common PII
// shapes. Deployments with a NER model plug it in through the same
// EntityRecognizer boundary.
type RegexRecognizer struct {
	patterns []categoryPattern
}

type categoryPattern struct {
	category string
	regex    *regexp.Regexp
}

// NewRegexRecognizer creates the recognizer with the default pattern set
func NewRegexRecognizer() *RegexRecognizer {
	return &RegexRecognizer{
		patterns: []categoryPattern{
			{"EMAIL", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
			{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
			{"CREDIT_CARD", regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)},
			{"IP_ADDRESS", regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
			{"PHONE", regexp.MustCompile(`\+\d{1,2}[\s.-]\(?\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}\b`)},
		},
	}
}

// Recognize implements interfaces.EntityRecognizer. Spans are returned in
// order of appearance; overlapping matches keep the earliest one.
func (r *RegexRecognizer) Recognize(ctx context.Context, text string) ([]interfaces.Entity, error) {
	var entities []interfaces.Entity
	for _, pattern := range r.patterns {
		for _, loc := range pattern.regex.FindAllStringIndex(text, -1) {
			entities = append(entities, interfaces.Entity{
				Category: pattern.category,
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}

	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Start < entities[j].Start
	})

	kept := entities[:0]
	last := -1
	for _, entity := range entities {
		if entity.Start < last {
			continue
		}
		kept = append(kept, entity)
		last = entity.End
	}

	return kept, nil
}
