package models

import "time"

// ToolExecution is an immutable record of one tool invocation.
// Records are append-only and never edited after creation.
type ToolExecution struct {
	// Tool is the name of the invoked tool.
	Tool string `json:"tool"`
	// Arguments are the arguments the tool was invoked with.
	Arguments map[string]any `json:"arguments"`
	// Result is the tool result text, empty on failure.
	Result string `json:"result,omitempty"`
	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
	// Timestamp is when the invocation happened.
	Timestamp time.Time `json:"timestamp"`
	// SubtaskID is the id of the subtask that owns this invocation.
	SubtaskID string `json:"subtask_id,omitempty"`
}

// NewToolExecution creates a tool execution record stamped with the current time.
func NewToolExecution(tool string, args map[string]any, result, errMsg, subtaskID string) ToolExecution {
	return ToolExecution{
		Tool:      tool,
		Arguments: args,
		Result:    result,
		Error:     errMsg,
		Timestamp: time.Now(),
		SubtaskID: subtaskID,
	}
}

// ErrorRecord is an append-only record of a domain-level failure.
type ErrorRecord struct {
	// SubtaskID is the subtask the failure belongs to.
	SubtaskID string `json:"subtask_id"`
	// Tool is the tool involved, or "unknown" for decision-parse failures.
	Tool string `json:"tool"`
	// Message describes the failure.
	Message string `json:"message"`
	// Timestamp is when the failure was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// NewErrorRecord creates an error record stamped with the current time.
func NewErrorRecord(subtaskID, tool, message string) ErrorRecord {
	return ErrorRecord{
		SubtaskID: subtaskID,
		Tool:      tool,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// ValidationResult holds the outcome of one cross-check of a
// result-sensitive calculation.
type ValidationResult struct {
	// IsValid is true when the cross-check did not contradict the original.
	IsValid bool `json:"is_valid"`
	// Confidence is the confidence assigned by the validator, in [0, 1].
	Confidence float64 `json:"confidence"`
	// Issues lists human-readable validation concerns, if any.
	Issues []string `json:"issues,omitempty"`
	// CrossCheck holds auxiliary evidence gathered during the check.
	CrossCheck map[string]any `json:"cross_check,omitempty"`
}
