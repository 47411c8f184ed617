package domain

import "time"

// ResponseStatus tells callers which terminal state produced a response.
type ResponseStatus string

const (
	// StatusAnswered means the pipeline generated an answer.
	StatusAnswered ResponseStatus = "answered"
	// StatusBlocked means the input screen rejected the question.
	StatusBlocked ResponseStatus = "blocked"
	// StatusNoResults means the first search found no documents.
	StatusNoResults ResponseStatus = "no_results"
	// StatusUnavailable means an external service failed mid-query.
	StatusUnavailable ResponseStatus = "unavailable"
)

// ConfidenceNotApplicable is the confidence label of responses that never
// reached retrieval.
const ConfidenceNotApplicable = "N/A"

// QueryResponse is the externally visible result of one student question.
type QueryResponse struct {
	// ID correlates the response with log lines and traces.
	ID string `json:"id"`

	// Answer is the text shown to the student.
	Answer string `json:"answer"`

	// Quality is the tier of the final context.
	Quality QualityTier `json:"context_quality"`

	// RetrievalLevel is the last ladder rung used, or a terminal marker.
	RetrievalLevel RetrievalLevel `json:"retrieval_level"`

	// Sources lists deduplicated page labels of the final context.
	Sources []string `json:"sources"`

	// WasCorrected is set once query refinement has been attempted.
	WasCorrected bool `json:"was_corrected"`

	// GuardrailPassed is false only when the input screen blocked the query.
	GuardrailPassed bool `json:"guardrail_passed"`

	// BlockedCategory names the input rule that rejected the query.
	BlockedCategory SafetyCategory `json:"blocked_category,omitempty"`

	// OutputFiltered is set when the generated answer was replaced by the
	// output screen.
	OutputFiltered bool `json:"output_filtered"`

	// Confidence is the label derived from Quality.
	Confidence string `json:"confidence"`

	// Status is the terminal state of the pipeline.
	Status ResponseStatus `json:"status"`

	// Evaluation is the final context grade, when one was made.
	Evaluation *ContextEvaluation `json:"evaluation,omitempty"`

	// Latency is the wall time spent answering.
	Latency time.Duration `json:"latency_ns"`
}
