package orchestrator

import (
	"time"
)

// EventType represents the type of engine event.
type EventType string

const (
	// EventReasoning carries a progress record from any handler.
	EventReasoning EventType = "reasoning"
	// EventSubtaskUpdate reports that the subtask plan changed.
	EventSubtaskUpdate EventType = "subtask_update"
	// EventToolExecution reports one tool invocation.
	EventToolExecution EventType = "tool_execution"
	// EventFinalAnswer carries the synthesized answer.
	EventFinalAnswer EventType = "final_answer"
	// EventDone marks run completion. Emitted exactly once.
	EventDone EventType = "done"
	// EventError reports a failure in the Engine itself. Domain errors
	// flow through the error log and reasoning events, not here.
	EventError EventType = "error"
)

// StateSnapshot is the observer-facing view of run progress attached to
// events. It reflects state after the emitting step's update was merged.
type StateSnapshot struct {
	// IterationCount is the iterations consumed so far.
	IterationCount int `json:"iteration_count"`
	// CompletedCount is the number of completed subtasks.
	CompletedCount int `json:"completed_count"`
	// TotalSubtasks is the size of the current plan.
	TotalSubtasks int `json:"total_subtasks"`
}

// Event is one typed engine event. Events are emitted strictly in the order
// steps execute, from the single engine goroutine, so a consumer sees a
// prefix-consistent view of the run.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// Data is the event payload: a progress record, a subtask summary, a
	// tool execution, the final answer text, or an error message.
	Data any
	// Snapshot is the post-merge progress view, when applicable.
	Snapshot *StateSnapshot
	// Timestamp is when the event was emitted.
	Timestamp time.Time
}
