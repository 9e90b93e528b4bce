package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/penny/internal/oracle"
	"github.com/ShayCichocki/penny/internal/tools"
	"github.com/ShayCichocki/penny/pkg/models"
)

// toolDecisionInstruction is the instruction template for tool selection.
const toolDecisionInstruction = `Choose the single tool call that completes this subtask.

Subtask: %s

Candidate tools (in preference order):
%s
Return ONLY a JSON object with this exact structure (no other text):
{"tool": "tool_name", "arguments": {"param": "value"}}`

// unknownTool is the tool name recorded when the oracle's decision could
// not be parsed, so the error log stays complete.
const unknownTool = "unknown"

// Executor works one subtask: it asks the oracle for a tool decision,
// invokes the tool service, and records the outcome. Failures do not stop
// the run; they mark the subtask failed and hand control to recovery.
type Executor struct {
	oracle  Oracle
	invoker Invoker
	catalog *tools.Catalog
	logger  *DebugLogger
}

// NewExecutor creates an Executor.
func NewExecutor(o Oracle, inv Invoker, catalog *tools.Catalog, logger *DebugLogger) *Executor {
	return &Executor{oracle: o, invoker: inv, catalog: catalog, logger: logger}
}

// Run executes the current subtask and returns the outcome update.
// Iteration count is charged unconditionally, including the no-work path.
func (e *Executor) Run(ctx context.Context, s *RunState) Update {
	subtasks := s.CloneSubtasks()
	task := pickTask(subtasks, s.CurrentTask)
	if task == nil {
		return Update{
			Continue:       boolPtr(false),
			CurrentTask:    strPtr(""),
			IterationCount: intPtr(s.IterationCount + 1),
			Progress: []models.ProgressRecord{models.NewProgressRecord(
				models.StepToolCall, "No work remains", nil)},
		}
	}

	task.Status = models.SubtaskInProgress
	task.AttemptCount++

	decision := e.decide(ctx, s, task)
	upd := Update{
		Subtasks:       subtasks,
		IterationCount: intPtr(s.IterationCount + 1),
	}

	switch {
	case decision.Status != oracle.ParseOK:
		// A malformed or missing tool decision is a domain error, not a
		// transport retry.
		msg := fmt.Sprintf("tool decision not parseable: %s", decision.Status)
		e.logger.Log("execute %s: %s", task.ID, msg)
		task.Status = models.SubtaskFailed
		task.Error = msg
		upd.Errors = []models.ErrorRecord{models.NewErrorRecord(task.ID, unknownTool, msg)}
		upd.ErrorRecovery = boolPtr(true)
		upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
			models.StepToolCall,
			fmt.Sprintf("Subtask %s failed: %s", task.ID, msg),
			map[string]any{"subtask": task.ID})}

	default:
		result, err := e.invoker.Invoke(ctx, decision.Tool, decision.Arguments)
		if err != nil {
			e.logger.Log("execute %s: tool %s failed: %v", task.ID, decision.Tool, err)
			task.Status = models.SubtaskFailed
			task.Error = err.Error()
			upd.Errors = []models.ErrorRecord{models.NewErrorRecord(task.ID, decision.Tool, err.Error())}
			upd.ErrorRecovery = boolPtr(true)
			upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
				models.StepToolCall,
				fmt.Sprintf("Subtask %s failed: tool %s: %v", task.ID, decision.Tool, err),
				map[string]any{"subtask": task.ID, "tool": decision.Tool})}
			break
		}

		task.Status = models.SubtaskCompleted
		task.Result = result
		task.Error = ""
		results := s.CloneResults()
		results[task.ID] = result
		upd.ToolLog = []models.ToolExecution{
			models.NewToolExecution(decision.Tool, decision.Arguments, result, "", task.ID)}
		upd.Results = results
		upd.CompletedIDs = []string{task.ID}
		upd.Progress = []models.ProgressRecord{models.NewProgressRecord(
			models.StepToolCall,
			fmt.Sprintf("Subtask %s completed via %s", task.ID, decision.Tool),
			map[string]any{"subtask": task.ID, "tool": decision.Tool})}
	}

	next := ""
	for _, t := range subtasks {
		if t.Status == models.SubtaskPending {
			next = t.ID
			break
		}
	}
	upd.CurrentTask = strPtr(next)
	return upd
}

// decide asks the oracle for a tool decision. An oracle transport error is
// folded into the empty-parse outcome so the caller handles one failure path.
func (e *Executor) decide(ctx context.Context, s *RunState, task *models.Subtask) oracle.ToolDecision {
	var sigs strings.Builder
	for _, name := range task.CandidateTools {
		if t, ok := e.catalog.Get(name); ok {
			fmt.Fprintf(&sigs, "- %s: %s\n", t.Signature(), t.Description)
		}
	}
	instruction := fmt.Sprintf(toolDecisionInstruction, task.Description, sigs.String())

	var contextInfo strings.Builder
	fmt.Fprintf(&contextInfo, "Original request: %s\n", s.OriginalRequest)
	if len(s.Results) > 0 {
		contextInfo.WriteString("Results so far:\n")
		for _, t := range s.Subtasks {
			if r, ok := s.Results[t.ID]; ok {
				fmt.Fprintf(&contextInfo, "- %s: %s\n", t.ID, r)
			}
		}
	}

	response, err := e.oracle.Decide(ctx, instruction, contextInfo.String())
	if err != nil {
		e.logger.Log("execute %s: oracle call failed: %v", task.ID, err)
		return oracle.ToolDecision{Status: oracle.ParseEmpty}
	}
	return oracle.ParseToolDecision(response)
}

// pickTask resolves the subtask to execute: the current selection if still
// open, otherwise the first pending subtask, otherwise nil.
func pickTask(subtasks []*models.Subtask, currentID string) *models.Subtask {
	if currentID != "" {
		for _, t := range subtasks {
			if t.ID == currentID && !t.Status.Resolved() {
				return t
			}
		}
	}
	for _, t := range subtasks {
		if t.Status == models.SubtaskPending {
			return t
		}
	}
	return nil
}
