package orchestrator

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/penny/pkg/models"
)

// Strategist picks a recovery tactic after a subtask failure. It is a
// 4-tier state machine keyed on the retry counter, advanced by one per
// invocation (tier 1 advances by two when no alternative tool exists):
//
//	tier 0: retry the identical subtask unchanged
//	tier 1: retry with a different candidate tool, or skip to tier 3
//	tier 2: request a fresh plan from the Decomposer
//	tier 3: give up and proceed with partial results
//
// The strategist never calls the oracle or the tool service; it only
// repositions state for the handlers that follow. Every tier clears the
// recovery flag when it finishes repositioning so the router resumes normal
// progress; the retry counter alone carries the tier position and is never
// reset mid-run.
type Strategist struct {
	logger *DebugLogger
}

// NewStrategist creates a Strategist.
func NewStrategist(logger *DebugLogger) *Strategist {
	return &Strategist{logger: logger}
}

// Run applies the tier selected by the state's retry counter.
func (r *Strategist) Run(ctx context.Context, s *RunState) Update {
	failed := s.FirstFailed()
	upd := Update{
		ErrorRecovery:  boolPtr(false),
		IterationCount: intPtr(s.IterationCount + 1),
	}

	if failed == nil {
		// Recovery flag set with nothing failed: clear it and move on.
		r.logger.Log("recover: no failed subtask found at retry %d", s.RetryCount)
		upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
			models.StepError, "No failed subtask to recover", nil)}
		return upd
	}

	switch s.RetryCount {
	case 0:
		subtasks := s.CloneSubtasks()
		resetToPending(subtasks, failed.ID)
		upd.Subtasks = subtasks
		upd.CurrentTask = strPtr(failed.ID)
		upd.RetryCount = intPtr(1)
		upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
			models.StepError,
			fmt.Sprintf("Retrying subtask %s unchanged", failed.ID),
			map[string]any{"subtask": failed.ID, "tier": 0})}

	case 1:
		if !failed.HasAlternativeTool() {
			// No alternative candidate: skip both the tool switch and the
			// replan tier.
			upd.RetryCount = intPtr(3)
			upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
				models.StepError,
				fmt.Sprintf("Subtask %s has no alternative tool, skipping to give-up", failed.ID),
				map[string]any{"subtask": failed.ID, "tier": 1})}
			break
		}
		subtasks := s.CloneSubtasks()
		for _, t := range subtasks {
			if t.ID == failed.ID {
				// Rotate the failed candidate to the back so the executor
				// leads with a different tool.
				t.CandidateTools = append(t.CandidateTools[1:], t.CandidateTools[0])
				t.Status = models.SubtaskPending
				t.Error = ""
			}
		}
		upd.Subtasks = subtasks
		upd.CurrentTask = strPtr(failed.ID)
		upd.RetryCount = intPtr(2)
		upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
			models.StepError,
			fmt.Sprintf("Retrying subtask %s with alternative tool %s", failed.ID, failed.CandidateTools[1]),
			map[string]any{"subtask": failed.ID, "tier": 1})}

	case 2:
		upd.Replan = boolPtr(true)
		upd.RetryCount = intPtr(3)
		upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
			models.StepError,
			fmt.Sprintf("Replanning after repeated failure of subtask %s", failed.ID),
			map[string]any{"subtask": failed.ID, "tier": 2})}

	default:
		// Tier 3+: give up, keep whatever partial results exist. The retry
		// counter stays put.
		upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
			models.StepError,
			fmt.Sprintf("Giving up on subtask %s, proceeding with partial results", failed.ID),
			map[string]any{"subtask": failed.ID, "tier": 3})}
	}

	return upd
}

// resetToPending puts the named subtask back in the pending state for a
// retry.
func resetToPending(subtasks []*models.Subtask, id string) {
	for _, t := range subtasks {
		if t.ID == id {
			t.Status = models.SubtaskPending
			t.Error = ""
		}
	}
}
