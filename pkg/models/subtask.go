package models

// SubtaskStatus represents the current state of a subtask.
type SubtaskStatus string

const (
	// SubtaskPending indicates the subtask has not started.
	SubtaskPending SubtaskStatus = "pending"
	// SubtaskInProgress indicates the subtask is being worked on.
	SubtaskInProgress SubtaskStatus = "in_progress"
	// SubtaskCompleted indicates the subtask completed successfully.
	SubtaskCompleted SubtaskStatus = "completed"
	// SubtaskFailed indicates the subtask failed.
	SubtaskFailed SubtaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SubtaskStatus) Valid() bool {
	switch s {
	case SubtaskPending, SubtaskInProgress, SubtaskCompleted, SubtaskFailed:
		return true
	default:
		return false
	}
}

// Resolved returns true if the status is terminal (completed or failed).
func (s SubtaskStatus) Resolved() bool {
	return s == SubtaskCompleted || s == SubtaskFailed
}

// CanTransition reports whether a subtask may move from s to next.
// The only forward path is pending -> in_progress -> {completed, failed}.
// A resolved subtask may be reset to pending for a retry.
func (s SubtaskStatus) CanTransition(next SubtaskStatus) bool {
	switch s {
	case SubtaskPending:
		return next == SubtaskInProgress
	case SubtaskInProgress:
		return next == SubtaskCompleted || next == SubtaskFailed
	case SubtaskCompleted:
		return false
	case SubtaskFailed:
		// Recovery tiers 0 and 1 reposition a failed subtask for another
		// execution attempt; this is the one path back to pending.
		return next == SubtaskPending
	default:
		return false
	}
}

// Subtask represents one unit of decomposed work within a run.
type Subtask struct {
	// ID is the unique identifier for this subtask within its run.
	ID string `json:"id"`
	// Description is what needs to be done.
	Description string `json:"description"`
	// Status is the current state of the subtask.
	Status SubtaskStatus `json:"status"`
	// CandidateTools lists the tool names that may serve this subtask,
	// in preference order.
	CandidateTools []string `json:"candidate_tools,omitempty"`
	// Result holds the tool result once the subtask completes.
	Result string `json:"result,omitempty"`
	// Error holds the failure message if the subtask failed.
	Error string `json:"error,omitempty"`
	// AttemptCount is the number of execution attempts made.
	AttemptCount int `json:"attempt_count,omitempty"`
}

// Clone returns a deep copy of the subtask.
func (t *Subtask) Clone() *Subtask {
	cp := *t
	cp.CandidateTools = append([]string(nil), t.CandidateTools...)
	return &cp
}

// HasAlternativeTool returns true if more than one candidate tool exists.
func (t *Subtask) HasAlternativeTool() bool {
	return len(t.CandidateTools) > 1
}
