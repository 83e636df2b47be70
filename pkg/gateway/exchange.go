package gateway

import (
	"time"

	"github.com/talakunchi/chatguard/pkg/extract"
	"github.com/talakunchi/chatguard/pkg/guardrails"
)

// State is one step of the per-request lifecycle. EXTRACTION_FAILED,
// INPUT_BLOCKED, MODEL_FAILED, OUTPUT_BLOCKED and DONE are terminal.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateExtracting       State = "EXTRACTING"
	StateExtractionFailed State = "EXTRACTION_FAILED"
	StateExtracted        State = "EXTRACTED"
	StateScanningInput    State = "SCANNING_INPUT"
	StateInputBlocked     State = "INPUT_BLOCKED"
	StateInputCleared     State = "INPUT_CLEARED"
	StateRelayingModel    State = "RELAYING_MODEL"
	StateModelFailed      State = "MODEL_FAILED"
	StateModelResponded   State = "MODEL_RESPONDED"
	StateScanningOutput   State = "SCANNING_OUTPUT"
	StateOutputBlocked    State = "OUTPUT_BLOCKED"
	StateOutputCleared    State = "OUTPUT_CLEARED"
	StateDone             State = "DONE"
)

// Request is one user turn submitted to the gateway.
type Request struct {
	// Prompt is the user's typed text
	Prompt string

	// Model names the backend model; empty selects the configured default
	Model string

	// Label is an optional caller-supplied tag carried through to the audit
	// trail, such as a red-team attack category
	Label string

	// Artifact is an optional attachment to extract and merge into the
	// prompt
	Artifact *extract.Artifact
}

// Exchange correlates everything produced while processing one user turn. It
// is constructed per request and handed to the caller; the gateway retains
// nothing afterward. Model response is present iff the input verdict is not
// BLOCK.
type Exchange struct {
	// ID uniquely identifies this exchange
	ID string `json:"id"`

	// Model is the backend model the exchange targeted
	Model string `json:"model"`

	// Label is the caller-supplied tag, when one was given
	Label string `json:"label,omitempty"`

	// RawInput is the typed text as received
	RawInput string `json:"-"`

	// Extraction is the attachment's text rendering, when one was attached
	Extraction *extract.ExtractedText `json:"-"`

	// ExtractionFormat records the rendering shape for observability
	ExtractionFormat string `json:"extraction_format,omitempty"`

	// CombinedInput is the typed text merged with the extracted text
	CombinedInput string `json:"-"`

	// InputReport is the input-direction pipeline report
	InputReport *guardrails.Report `json:"input_report,omitempty"`

	// ModelInvoked reports whether the relay was called
	ModelInvoked bool `json:"model_invoked"`

	// ModelResponse is the backend's raw response, when invoked
	ModelResponse string `json:"-"`

	// OutputReport is the output-direction pipeline report, when reached
	OutputReport *guardrails.Report `json:"output_report,omitempty"`

	// FinalText is what the caller shows the user: the sanitized response,
	// or a block notice
	FinalText string `json:"-"`

	// State is the terminal lifecycle state
	State State `json:"state"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall-clock time the exchange took
func (e *Exchange) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Verdict aggregates both pipeline reports into the exchange-level verdict:
// BLOCK if either direction blocked, else REDACT if either redacted, else
// ALLOW.
func (e *Exchange) Verdict() guardrails.Verdict {
	verdict := guardrails.VerdictAllow
	for _, report := range []*guardrails.Report{e.InputReport, e.OutputReport} {
		if report == nil {
			continue
		}
		switch report.Verdict {
		case guardrails.VerdictBlock:
			return guardrails.VerdictBlock
		case guardrails.VerdictRedact:
			verdict = guardrails.VerdictRedact
		}
	}
	return verdict
}

// Blocked reports whether either direction blocked the exchange
func (e *Exchange) Blocked() bool {
	return e.State == StateInputBlocked || e.State == StateOutputBlocked
}
