package scanner

import (
	"context"
	"fmt"

	"github.com/talakunchi/chatguard/pkg/interfaces"
)

// ClassifierScanner delegates scoring to an external statistical model and
// triggers when the score reaches the spec's threshold. The backend is a
// stateless scoring function; the scanner never inspects its internals.
type ClassifierScanner struct {
	backend interfaces.Classifier
}

// NewClassifierScanner creates a scanner over the given backend
func NewClassifierScanner(backend interfaces.Classifier) *ClassifierScanner {
	return &ClassifierScanner{backend: backend}
}

// Evaluate implements Scanner
func (s *ClassifierScanner) Evaluate(ctx context.Context, text string, spec Spec) (Outcome, error) {
	if s.backend == nil {
		return Outcome{}, fmt.Errorf("scanner %s: no classifier backend configured", spec.Name)
	}

	score, err := s.backend.Score(ctx, text)
	if err != nil {
		return Outcome{}, fmt.Errorf("classifier %s failed: %w", s.backend.Name(), err)
	}

	outcome := Outcome{
		Name:  spec.Name,
		Score: &score,
		Text:  text,
	}
	if score >= spec.Threshold {
		outcome.Triggered = true
		outcome.Reason = fmt.Sprintf("score %.2f >= threshold %.2f", score, spec.Threshold)
	}

	return outcome, nil
}

// ClassifierFactory returns a registry factory producing classifier scanners
// over the given backend.
func ClassifierFactory(backend interfaces.Classifier) Factory {
	return func(spec Spec) (Scanner, error) {
		if spec.Kind != KindClassifier {
			return nil, fmt.Errorf("scanner %s: classifier backend requires kind %q", spec.Name, KindClassifier)
		}
		return NewClassifierScanner(backend), nil
	}
}
