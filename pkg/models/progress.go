package models

import "time"

// StepKind classifies a progress record for observers.
type StepKind string

const (
	// StepPlanning marks decomposition progress.
	StepPlanning StepKind = "planning"
	// StepToolCall marks a tool selection or invocation.
	StepToolCall StepKind = "tool_call"
	// StepValidation marks cross-check progress.
	StepValidation StepKind = "validation"
	// StepError marks recovery progress after a failure.
	StepError StepKind = "error"
	// StepSummary marks final synthesis progress.
	StepSummary StepKind = "summary"
)

// ProgressRecord captures one step of orchestration progress.
// Records are structured and UI-agnostic; translation to a wire event
// shape is the boundary layer's job.
type ProgressRecord struct {
	// Kind classifies the record.
	Kind StepKind `json:"kind"`
	// Content is a human-readable description of the step.
	Content string `json:"content"`
	// Timestamp is when the record was created.
	Timestamp time.Time `json:"timestamp"`
	// Metadata carries structured details about the step.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewProgressRecord creates a progress record stamped with the current time.
func NewProgressRecord(kind StepKind, content string, metadata map[string]any) ProgressRecord {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ProgressRecord{
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
