// Package stream translates engine events into the wire shape served to
// front ends. The engine's handlers emit structured, UI-agnostic records;
// everything presentation-shaped lives here.
package stream

import (
	"github.com/ShayCichocki/penny/internal/orchestrator"
	"github.com/ShayCichocki/penny/pkg/models"
)

// WireSnapshot is the run-progress view embedded in wire events.
type WireSnapshot struct {
	IterationCount int `json:"iteration_count"`
	CompletedCount int `json:"completed_count"`
	TotalSubtasks  int `json:"total_subtasks"`
}

// WireEvent is the JSON shape served to front ends, one per engine event.
type WireEvent struct {
	EventType string        `json:"event_type"`
	Data      any           `json:"data"`
	Snapshot  *WireSnapshot `json:"state_snapshot,omitempty"`
}

// Translate converts one engine event into its wire shape.
func Translate(ev orchestrator.Event) WireEvent {
	out := WireEvent{
		EventType: string(ev.Type),
		Data:      translateData(ev),
	}
	if ev.Snapshot != nil {
		out.Snapshot = &WireSnapshot{
			IterationCount: ev.Snapshot.IterationCount,
			CompletedCount: ev.Snapshot.CompletedCount,
			TotalSubtasks:  ev.Snapshot.TotalSubtasks,
		}
	}
	return out
}

// translateData flattens typed payloads into the wire's loose data field.
func translateData(ev orchestrator.Event) any {
	switch data := ev.Data.(type) {
	case models.ProgressRecord:
		return map[string]any{
			"kind":      string(data.Kind),
			"content":   data.Content,
			"timestamp": data.Timestamp,
			"metadata":  data.Metadata,
		}
	case models.ToolExecution:
		return map[string]any{
			"tool":       data.Tool,
			"arguments":  data.Arguments,
			"result":     data.Result,
			"error":      data.Error,
			"subtask_id": data.SubtaskID,
			"timestamp":  data.Timestamp,
		}
	default:
		return ev.Data
	}
}
