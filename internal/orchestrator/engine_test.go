package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/ShayCichocki/penny/internal/tools"
	"github.com/ShayCichocki/penny/pkg/models"
)

const planTwoTasks = `[
  {"id": "task_1", "description": "List accounts", "tools": ["get_all_accounts"]},
  {"id": "task_2", "description": "Calculate HPL for ACCT-001 under FHC", "tools": ["calculate_hypothetical_pnl"]}
]`

func TestEngine_HappyPath(t *testing.T) {
	o := &fakeOracle{responses: []string{
		planTwoTasks,
		`{"tool": "get_all_accounts", "arguments": {}}`,
		`{"tool": "calculate_hypothetical_pnl", "arguments": {"account_number": "ACCT-001", "hierarchy": "FHC"}}`,
		"The hypothetical P&L for ACCT-001 under FHC is 133651.00.",
	}}
	inv := newFakeInvoker(map[string]string{
		"get_all_accounts":           "ACCT-001, ACCT-002",
		"calculate_hypothetical_pnl": "133651.00",
	})

	eng, err := New(Config{Oracle: o, Invoker: inv})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	state, err := eng.Run(context.Background(), "calculate hypothetical pnl for ACCT-001")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if state.FinalAnswer == "" {
		t.Fatal("run must end with a final answer")
	}
	if got := state.CompletedCount(); got != 2 {
		t.Errorf("completed = %d, want 2", got)
	}
	// One validation cross-check for the calculation, at 0.95.
	if len(state.Validations) != 1 || state.Validations[0].Confidence != 0.95 {
		t.Errorf("validations = %+v, want one at 0.95", state.Validations)
	}
	if state.NeedsValidation {
		t.Error("NeedsValidation should be cleared")
	}
	if state.Continue {
		t.Error("Continue should be cleared")
	}
	// Two subtask executions plus one cross-check invocation.
	if len(inv.calls) != 3 {
		t.Errorf("tool calls = %d, want 3", len(inv.calls))
	}
}

func TestEngine_RetryOnceThenSucceed(t *testing.T) {
	// A subtask fails, tier 0 retries it unchanged, and it succeeds:
	// retry counter ends at 1, the subtask completes, and exactly one
	// tool-log entry exists because the failed attempt logged an error
	// record instead.
	o := &fakeOracle{responses: []string{
		`[{"id": "task_1", "description": "Get P&L", "tools": ["get_account_pnl"]}]`,
		`{"tool": "get_account_pnl", "arguments": {"account_number": "ACCT-001"}}`,
		`{"tool": "get_account_pnl", "arguments": {"account_number": "ACCT-001"}}`,
		"Here is the P&L.",
	}}
	inv := newFakeInvoker(map[string]string{"get_account_pnl": "Trading: 125000.50"})
	inv.failCount["get_account_pnl"] = 1

	eng, err := New(Config{Oracle: o, Invoker: inv})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	state, err := eng.Run(context.Background(), "get pnl for ACCT-001")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if state.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", state.RetryCount)
	}
	got := state.FindSubtask("task_1")
	if got.Status != models.SubtaskCompleted {
		t.Errorf("status = %v, want completed", got.Status)
	}
	if got.AttemptCount != 2 {
		t.Errorf("AttemptCount = %d, want 2", got.AttemptCount)
	}
	if len(state.ToolLog) != 1 {
		t.Errorf("ToolLog entries = %d, want 1: failures log errors, not executions", len(state.ToolLog))
	}
	if len(state.ErrorLog) != 1 {
		t.Errorf("ErrorLog entries = %d, want 1", len(state.ErrorLog))
	}
}

func TestEngine_BudgetExhaustionAlwaysAnswers(t *testing.T) {
	// An oracle that keeps planning work it can never finish must still
	// end with a final answer once the ceiling hits.
	o := &fakeOracle{responses: []string{
		`[{"id": "task_1", "description": "impossible", "tools": ["get_all_accounts"]}]`,
		`not a decision`,
	}}
	inv := newFakeInvoker(map[string]string{"get_all_accounts": "ok"})

	eng, err := New(Config{Oracle: o, Invoker: inv, MaxIterations: 5})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	state, err := eng.Run(context.Background(), "do the impossible")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if state.FinalAnswer == "" {
		t.Fatal("budget exhaustion must still produce a final answer")
	}
	if state.IterationCount < state.MaxIterations {
		t.Errorf("IterationCount = %d, expected the ceiling to be reached", state.IterationCount)
	}
}

func TestEngine_EventStream(t *testing.T) {
	o := &fakeOracle{responses: []string{
		`[{"id": "task_1", "description": "List accounts", "tools": ["get_all_accounts"]}]`,
		`{"tool": "get_all_accounts", "arguments": {}}`,
		"Two accounts exist.",
	}}
	inv := newFakeInvoker(map[string]string{"get_all_accounts": "ACCT-001, ACCT-002"})
	emitter := NewEventEmitter(256)

	eng, err := New(Config{Oracle: o, Invoker: inv, Emitter: emitter})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := eng.Run(context.Background(), "list accounts"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	emitter.Close()

	var events []Event
	for ev := range emitter.Events() {
		events = append(events, ev)
	}

	doneCount := 0
	finalBeforeDone := false
	lastIteration := 0
	for i, ev := range events {
		if ev.Type == EventDone {
			doneCount++
			if i > 0 && events[i-1].Type == EventFinalAnswer {
				finalBeforeDone = true
			}
		}
		if ev.Snapshot != nil {
			// Snapshots are prefix-consistent: counters never go back.
			if ev.Snapshot.IterationCount < lastIteration {
				t.Errorf("event %d: iteration went backwards (%d after %d)", i, ev.Snapshot.IterationCount, lastIteration)
			}
			lastIteration = ev.Snapshot.IterationCount
		}
	}
	if doneCount != 1 {
		t.Errorf("done events = %d, want exactly 1", doneCount)
	}
	if !finalBeforeDone {
		t.Error("final_answer must immediately precede done")
	}
	if events[len(events)-1].Type != EventDone {
		t.Errorf("last event = %v, want done", events[len(events)-1].Type)
	}

	sawTool := false
	for _, ev := range events {
		if ev.Type == EventToolExecution {
			sawTool = true
		}
	}
	if !sawTool {
		t.Error("expected at least one tool_execution event")
	}
}

func TestEngine_CheckpointsEveryMerge(t *testing.T) {
	o := &fakeOracle{responses: []string{
		`[{"id": "task_1", "description": "List accounts", "tools": ["get_all_accounts"]}]`,
		`{"tool": "get_all_accounts", "arguments": {}}`,
		"Two accounts exist.",
	}}
	inv := newFakeInvoker(map[string]string{"get_all_accounts": "ACCT-001, ACCT-002"})
	store := newMemoryStore()

	eng, err := New(Config{Oracle: o, Invoker: inv, Store: store})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	state, err := eng.Run(context.Background(), "list accounts")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// decompose, execute, synthesize: one checkpoint per merge.
	if store.saves != 3 {
		t.Errorf("checkpoint saves = %d, want 3", store.saves)
	}
	saved, err := store.LoadCheckpoint(state.RunID)
	if err != nil || saved == nil {
		t.Fatalf("LoadCheckpoint() = %v, %v", saved, err)
	}
	if saved.FinalAnswer != state.FinalAnswer {
		t.Error("final checkpoint should carry the final answer")
	}
}

func TestEngine_Resume(t *testing.T) {
	store := newMemoryStore()
	catalog := tools.DefaultCatalog()

	// A mid-run checkpoint: the plan exists, task_1 is done, task_2 is
	// still pending.
	mid := NewRunState("run-42", "finish the analysis", catalog.Names(), 15, 3)
	done := subtask("task_1", models.SubtaskCompleted)
	done.Result = "ACCT-001"
	pending := subtask("task_2", models.SubtaskPending)
	pending.CandidateTools = []string{"get_account_pnl"}
	mid.Subtasks = []*models.Subtask{done, pending}
	mid.CurrentTask = "task_2"
	mid.Results = map[string]string{"task_1": "ACCT-001"}
	mid.IterationCount = 2
	if err := store.SaveCheckpoint(mid.RunID, mid); err != nil {
		t.Fatalf("SaveCheckpoint() error: %v", err)
	}

	o := &fakeOracle{responses: []string{
		`{"tool": "get_account_pnl", "arguments": {"account_number": "ACCT-001"}}`,
		"All done.",
	}}
	inv := newFakeInvoker(map[string]string{"get_account_pnl": "Trading: 125000.50"})

	eng, err := New(Config{Oracle: o, Invoker: inv, Store: store})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	state, err := eng.Resume(context.Background(), "run-42")
	if err != nil {
		t.Fatalf("Resume() error: %v", err)
	}

	if state.FinalAnswer == "" {
		t.Fatal("resumed run must finish with a final answer")
	}
	if got := state.FindSubtask("task_2"); got.Status != models.SubtaskCompleted {
		t.Errorf("task_2 status = %v, want completed", got.Status)
	}
	// The completed work from before the resume is untouched.
	if state.Results["task_1"] != "ACCT-001" {
		t.Error("resume must preserve prior results")
	}
}

func TestEngine_ResumeFinishedRun(t *testing.T) {
	store := newMemoryStore()
	finished := NewRunState("run-9", "req", nil, 15, 3)
	finished.FinalAnswer = "already answered"
	if err := store.SaveCheckpoint(finished.RunID, finished); err != nil {
		t.Fatalf("SaveCheckpoint() error: %v", err)
	}

	o := &fakeOracle{}
	eng, err := New(Config{Oracle: o, Invoker: newFakeInvoker(nil), Store: store})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	state, err := eng.Resume(context.Background(), "run-9")
	if err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	if state.FinalAnswer != "already answered" {
		t.Errorf("FinalAnswer = %q", state.FinalAnswer)
	}
	if len(o.instructions) != 0 {
		t.Error("a finished run must not consult the oracle again")
	}
}

func TestEngine_ResumeUnknownKey(t *testing.T) {
	eng, err := New(Config{Oracle: &fakeOracle{}, Invoker: newFakeInvoker(nil), Store: newMemoryStore()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := eng.Resume(context.Background(), "missing"); err == nil {
		t.Fatal("Resume() with an unknown key must fail")
	} else if !strings.Contains(err.Error(), "no checkpoint") {
		t.Errorf("error = %v, want a no-checkpoint message", err)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Invoker: newFakeInvoker(nil)}); err == nil {
		t.Error("New() without an oracle must fail")
	}
	if _, err := New(Config{Oracle: &fakeOracle{}}); err == nil {
		t.Error("New() without an invoker must fail")
	}
}
