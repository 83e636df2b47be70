package guardrails

import "github.com/talakunchi/chatguard/pkg/scanner"

// Verdict is the overall decision of one pipeline run.
type Verdict string

const (
	// VerdictAllow means no scanner triggered
	VerdictAllow Verdict = "ALLOW"

	// VerdictRedact means at least one REDACT scanner triggered and the
	// final text carries its substitutions
	VerdictRedact Verdict = "REDACT"

	// VerdictBlock means a BLOCK scanner triggered (or a scanner failed
	// closed); the text must not proceed
	VerdictBlock Verdict = "BLOCK"
)

// Report is the ordered record of one pipeline run over one direction.
type Report struct {
	// Direction the pipeline guards
	Direction scanner.Direction `json:"direction"`

	// Outcomes in execution order; ends early on a BLOCK trigger
	Outcomes []scanner.Outcome `json:"outcomes"`

	// Verdict aggregates the outcomes: BLOCK beats REDACT beats ALLOW
	Verdict Verdict `json:"verdict"`

	// FinalText is the last produced text, or the original if nothing
	// triggered
	FinalText string `json:"-"`
}

// BlockedBy returns the outcome that caused a BLOCK verdict, if any.
func (r *Report) BlockedBy() *scanner.Outcome {
	if r.Verdict != VerdictBlock || len(r.Outcomes) == 0 {
		return nil
	}
	last := r.Outcomes[len(r.Outcomes)-1]
	return &last
}
