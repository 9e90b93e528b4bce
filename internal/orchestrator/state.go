package orchestrator

import (
	"github.com/ShayCichocki/penny/pkg/models"
)

// RunState is the single aggregate record threaded through one run.
// The Engine is its only writer: handlers read it and return sparse
// updates, which the Engine merges under the policy in merge.go.
type RunState struct {
	// RunID is the resumability key for this run.
	RunID string `json:"run_id"`
	// OriginalRequest is the user's request. Immutable after creation.
	OriginalRequest string `json:"original_request"`
	// CurrentTask is the id of the subtask the Executor should work on
	// next, or empty when no subtask is selected.
	CurrentTask string `json:"current_task,omitempty"`
	// Subtasks is the ordered plan produced by the Decomposer.
	Subtasks []*models.Subtask `json:"subtasks"`
	// CompletedIDs lists subtask ids in completion order. Append-only.
	CompletedIDs []string `json:"completed_ids"`
	// ToolLog records every tool invocation. Append-only.
	ToolLog []models.ToolExecution `json:"tool_log"`
	// ProgressLog records one entry per orchestration step. Append-only.
	ProgressLog []models.ProgressRecord `json:"progress_log"`
	// AvailableTools is the catalog tool names. Immutable after creation.
	AvailableTools []string `json:"available_tools"`
	// IterationCount is the number of handler invocations charged so far.
	// Monotonically increasing; the run terminates at MaxIterations.
	IterationCount int `json:"iteration_count"`
	// MaxIterations is the hard iteration ceiling.
	MaxIterations int `json:"max_iterations"`
	// Validations holds cross-check outcomes. Append-only.
	Validations []models.ValidationResult `json:"validations"`
	// NeedsValidation is set by the Decomposer when the plan includes the
	// result-sensitive calculation tool, cleared by the Validator.
	NeedsValidation bool `json:"needs_validation"`
	// ErrorLog records domain-level failures. Append-only.
	ErrorLog []models.ErrorRecord `json:"error_log"`
	// RetryCount is the recovery tier position. Never reset mid-run.
	RetryCount int `json:"retry_count"`
	// MaxRetries bounds how many recovery tiers may run.
	MaxRetries int `json:"max_retries"`
	// Results maps completed subtask ids to their result values.
	Results map[string]string `json:"results_by_subtask"`
	// FinalAnswer is set only by the Synthesizer; once non-empty the run
	// is complete regardless of routing.
	FinalAnswer string `json:"final_answer,omitempty"`
	// Continue reports whether the run still has work to do.
	Continue bool `json:"continue_flag"`
	// Replan forces the Decomposer to run again (recovery tier 2).
	Replan bool `json:"replan_flag"`
	// ErrorRecovery routes the next step to the Recovery Strategist.
	ErrorRecovery bool `json:"error_recovery_flag"`
}

// NewRunState creates the state for a fresh run.
func NewRunState(runID, request string, availableTools []string, maxIterations, maxRetries int) *RunState {
	return &RunState{
		RunID:           runID,
		OriginalRequest: request,
		AvailableTools:  append([]string(nil), availableTools...),
		MaxIterations:   maxIterations,
		MaxRetries:      maxRetries,
		Results:         map[string]string{},
		Continue:        true,
	}
}

// FindSubtask returns the subtask with the given id, or nil.
func (s *RunState) FindSubtask(id string) *models.Subtask {
	for _, t := range s.Subtasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// NextPending returns the first subtask with status pending, or nil.
func (s *RunState) NextPending() *models.Subtask {
	for _, t := range s.Subtasks {
		if t.Status == models.SubtaskPending {
			return t
		}
	}
	return nil
}

// FirstFailed returns the first subtask with status failed, or nil.
func (s *RunState) FirstFailed() *models.Subtask {
	for _, t := range s.Subtasks {
		if t.Status == models.SubtaskFailed {
			return t
		}
	}
	return nil
}

// AllResolved reports whether every subtask is completed or failed.
// Vacuously true when no subtasks exist.
func (s *RunState) AllResolved() bool {
	for _, t := range s.Subtasks {
		if !t.Status.Resolved() {
			return false
		}
	}
	return true
}

// CompletedCount returns the number of completed subtasks.
func (s *RunState) CompletedCount() int {
	n := 0
	for _, t := range s.Subtasks {
		if t.Status == models.SubtaskCompleted {
			n++
		}
	}
	return n
}

// CloneSubtasks deep-copies the subtask sequence so a handler can stage
// status changes without mutating state it does not own.
func (s *RunState) CloneSubtasks() []*models.Subtask {
	out := make([]*models.Subtask, len(s.Subtasks))
	for i, t := range s.Subtasks {
		out[i] = t.Clone()
	}
	return out
}

// CloneResults copies the results map for the same reason.
func (s *RunState) CloneResults() map[string]string {
	out := make(map[string]string, len(s.Results))
	for k, v := range s.Results {
		out[k] = v
	}
	return out
}

// Snapshot returns the observer-facing counters for event emission.
func (s *RunState) Snapshot() StateSnapshot {
	return StateSnapshot{
		IterationCount: s.IterationCount,
		CompletedCount: s.CompletedCount(),
		TotalSubtasks:  len(s.Subtasks),
	}
}
