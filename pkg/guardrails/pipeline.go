package guardrails

import (
	"context"
	"fmt"

	"github.com/talakunchi/chatguard/pkg/logging"
	"github.com/talakunchi/chatguard/pkg/scanner"
)

// Pipeline executes an ordered list of scanners over a text payload. It is an
// explicit fold: each scanner receives the output text of the previous one,
// so redactions compound and later scanners observe already-sanitized text.
// The pipeline stops at the first BLOCK trigger; REDACT triggers only replace
// the carried text. A scanner that cannot execute fails closed unless its
// spec opts into fail-open.
type Pipeline struct {
	direction scanner.Direction
	stages    []scanner.Configured
	logger    logging.Logger
}

// Option represents an option for configuring the pipeline
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline over stages already resolved and rank-ordered by the
// scanner registry.
func New(direction scanner.Direction, stages []scanner.Configured, options ...Option) *Pipeline {
	p := &Pipeline{
		direction: direction,
		stages:    stages,
		logger:    logging.New(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Direction returns the direction this pipeline guards
func (p *Pipeline) Direction() scanner.Direction {
	return p.direction
}

// Run evaluates every stage in rank order against text and returns the
// report. Run never fails as a Go call: scanner faults are folded into the
// verdict per the fail-closed policy.
func (p *Pipeline) Run(ctx context.Context, text string) *Report {
	report := &Report{
		Direction: p.direction,
		Outcomes:  make([]scanner.Outcome, 0, len(p.stages)),
		Verdict:   VerdictAllow,
		FinalText: text,
	}

	current := text
	for _, stage := range p.stages {
		outcome, err := stage.Scanner.Evaluate(ctx, current, stage.Spec)
		if err != nil {
			if stage.Spec.FailOpen {
				p.logger.Warn(ctx, "Scanner unavailable, skipping (fail-open)", map[string]interface{}{
					"scanner":   stage.Spec.Name,
					"direction": string(p.direction),
					"error":     err.Error(),
				})
				report.Outcomes = append(report.Outcomes, scanner.Outcome{
					Name:   stage.Spec.Name,
					Text:   current,
					Reason: fmt.Sprintf("skipped: %v", err),
				})
				continue
			}

			p.logger.Error(ctx, "Scanner unavailable, failing closed", map[string]interface{}{
				"scanner":   stage.Spec.Name,
				"direction": string(p.direction),
				"error":     err.Error(),
			})
			report.Outcomes = append(report.Outcomes, scanner.Outcome{
				Name:      stage.Spec.Name,
				Triggered: true,
				Text:      current,
				Reason:    fmt.Sprintf("scanner unavailable: %v", err),
			})
			report.Verdict = VerdictBlock
			report.FinalText = current
			return report
		}

		report.Outcomes = append(report.Outcomes, outcome)

		if !outcome.Triggered {
			continue
		}

		switch stage.Spec.Action {
		case scanner.ActionBlock:
			p.logger.Info(ctx, "Guardrail blocked text", map[string]interface{}{
				"scanner":   stage.Spec.Name,
				"direction": string(p.direction),
				"reason":    outcome.Reason,
			})
			report.Verdict = VerdictBlock
			report.FinalText = current
			return report

		case scanner.ActionRedact:
			p.logger.Info(ctx, "Guardrail redacted text", map[string]interface{}{
				"scanner":   stage.Spec.Name,
				"direction": string(p.direction),
				"reason":    outcome.Reason,
			})
			if report.Verdict == VerdictAllow {
				report.Verdict = VerdictRedact
			}
			current = outcome.Text
		}
	}

	report.FinalText = current
	return report
}
