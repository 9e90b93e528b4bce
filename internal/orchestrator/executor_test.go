package orchestrator

import (
	"context"
	"testing"

	"github.com/ShayCichocki/penny/internal/tools"
	"github.com/ShayCichocki/penny/pkg/models"
)

func executorState(subtasks ...*models.Subtask) *RunState {
	state := NewRunState("r1", "req", tools.DefaultCatalog().Names(), 15, 3)
	state.Subtasks = subtasks
	if len(subtasks) > 0 {
		state.CurrentTask = subtasks[0].ID
	}
	return state
}

func TestExecutor_Success(t *testing.T) {
	o := &fakeOracle{responses: []string{`{"tool": "get_all_accounts", "arguments": {}}`}}
	inv := newFakeInvoker(map[string]string{"get_all_accounts": "ACCT-001, ACCT-002"})
	ex := NewExecutor(o, inv, tools.DefaultCatalog(), NopLogger())

	st := subtask("task_1", models.SubtaskPending)
	st.CandidateTools = []string{"get_all_accounts"}
	state := executorState(st, subtask("task_2", models.SubtaskPending))

	state.Apply(ex.Run(context.Background(), state))

	got := state.FindSubtask("task_1")
	if got.Status != models.SubtaskCompleted {
		t.Errorf("status = %v, want completed", got.Status)
	}
	if got.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", got.AttemptCount)
	}
	if state.Results["task_1"] != "ACCT-001, ACCT-002" {
		t.Errorf("result = %q", state.Results["task_1"])
	}
	if len(state.ToolLog) != 1 || state.ToolLog[0].SubtaskID != "task_1" {
		t.Errorf("ToolLog = %v, want one entry for task_1", state.ToolLog)
	}
	if len(state.CompletedIDs) != 1 || state.CompletedIDs[0] != "task_1" {
		t.Errorf("CompletedIDs = %v", state.CompletedIDs)
	}
	if state.CurrentTask != "task_2" {
		t.Errorf("CurrentTask = %q, want task_2", state.CurrentTask)
	}
	if state.ErrorRecovery {
		t.Error("ErrorRecovery should not be set on success")
	}
}

func TestExecutor_ToolFailure(t *testing.T) {
	o := &fakeOracle{responses: []string{`{"tool": "get_account_pnl", "arguments": {"account_number": "ACCT-001"}}`}}
	inv := newFakeInvoker(map[string]string{"get_account_pnl": "ok"})
	inv.failCount["get_account_pnl"] = 1
	ex := NewExecutor(o, inv, tools.DefaultCatalog(), NopLogger())

	st := subtask("task_1", models.SubtaskPending)
	st.CandidateTools = []string{"get_account_pnl"}
	state := executorState(st)

	state.Apply(ex.Run(context.Background(), state))

	got := state.FindSubtask("task_1")
	if got.Status != models.SubtaskFailed {
		t.Errorf("status = %v, want failed", got.Status)
	}
	if !state.ErrorRecovery {
		t.Error("ErrorRecovery should be set after a tool failure")
	}
	if len(state.ErrorLog) != 1 || state.ErrorLog[0].Tool != "get_account_pnl" {
		t.Errorf("ErrorLog = %v, want one entry naming the tool", state.ErrorLog)
	}
	// Failed invocations do not produce tool-log entries.
	if len(state.ToolLog) != 0 {
		t.Errorf("ToolLog = %v, want empty", state.ToolLog)
	}
	if len(state.CompletedIDs) != 0 {
		t.Errorf("CompletedIDs = %v, want empty", state.CompletedIDs)
	}
}

func TestExecutor_DecisionParseFailure(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "prose only", response: "I would use the accounts tool."},
		{name: "missing tool key", response: `{"arguments": {}}`},
		{name: "broken json", response: `{"tool": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &fakeOracle{responses: []string{tt.response}}
			inv := newFakeInvoker(map[string]string{"get_all_accounts": "ok"})
			ex := NewExecutor(o, inv, tools.DefaultCatalog(), NopLogger())

			state := executorState(subtask("task_1", models.SubtaskPending))
			state.Apply(ex.Run(context.Background(), state))

			if got := state.FindSubtask("task_1"); got.Status != models.SubtaskFailed {
				t.Errorf("status = %v, want failed", got.Status)
			}
			if !state.ErrorRecovery {
				t.Error("ErrorRecovery should be set after a parse failure")
			}
			if len(state.ErrorLog) != 1 || state.ErrorLog[0].Tool != unknownTool {
				t.Errorf("ErrorLog = %v, want one entry with tool %q", state.ErrorLog, unknownTool)
			}
			if len(inv.calls) != 0 {
				t.Error("no tool should be invoked when the decision is unparseable")
			}
		})
	}
}

func TestExecutor_FallsBackToFirstPending(t *testing.T) {
	// A stale current selection resolves to the first pending subtask.
	o := &fakeOracle{responses: []string{`{"tool": "get_all_accounts", "arguments": {}}`}}
	inv := newFakeInvoker(map[string]string{"get_all_accounts": "ok"})
	ex := NewExecutor(o, inv, tools.DefaultCatalog(), NopLogger())

	state := executorState(
		subtask("task_1", models.SubtaskCompleted),
		subtask("task_2", models.SubtaskPending),
	)
	state.CurrentTask = "task_1"

	state.Apply(ex.Run(context.Background(), state))

	if got := state.FindSubtask("task_2"); got.Status != models.SubtaskCompleted {
		t.Errorf("task_2 status = %v, want completed", got.Status)
	}
}

func TestExecutor_NoWorkClearsContinue(t *testing.T) {
	o := &fakeOracle{}
	inv := newFakeInvoker(nil)
	ex := NewExecutor(o, inv, tools.DefaultCatalog(), NopLogger())

	state := executorState(subtask("task_1", models.SubtaskCompleted))
	state.CurrentTask = ""
	state.IterationCount = 3

	state.Apply(ex.Run(context.Background(), state))

	if state.Continue {
		t.Error("Continue should be cleared when no work remains")
	}
	if state.IterationCount != 4 {
		t.Errorf("IterationCount = %d, want 4: the no-work path still charges an iteration", state.IterationCount)
	}
	if len(o.instructions) != 0 {
		t.Error("the oracle must not be consulted when no work remains")
	}
}

func TestExecutor_IterationAtCeilingForcesSynthesis(t *testing.T) {
	// Entering at max_iterations-1 increments to the ceiling; the router
	// must then synthesize even though subtasks remain pending.
	o := &fakeOracle{responses: []string{`{"tool": "get_all_accounts", "arguments": {}}`}}
	inv := newFakeInvoker(map[string]string{"get_all_accounts": "ok"})
	ex := NewExecutor(o, inv, tools.DefaultCatalog(), NopLogger())

	state := executorState(
		subtask("task_1", models.SubtaskPending),
		subtask("task_2", models.SubtaskPending),
	)
	state.IterationCount = state.MaxIterations - 1

	state.Apply(ex.Run(context.Background(), state))

	if state.IterationCount != state.MaxIterations {
		t.Fatalf("IterationCount = %d, want %d", state.IterationCount, state.MaxIterations)
	}
	if state.NextPending() == nil {
		t.Fatal("test setup should leave a pending subtask")
	}
	if got := NextStep(state); got != StepSynthesize {
		t.Errorf("NextStep() = %v, want synthesize at the ceiling", got)
	}
}
