package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ShayCichocki/penny/pkg/models"
)

func synthState() *RunState {
	state := NewRunState("r1", "what is the hypothetical pnl for ACCT-001?", nil, 15, 3)
	done := subtask("task_1", models.SubtaskCompleted)
	done.Result = "133651.00"
	state.Subtasks = []*models.Subtask{done}
	state.Results = map[string]string{"task_1": "133651.00"}
	return state
}

func TestSynthesizer_ProducesFinalAnswer(t *testing.T) {
	o := &fakeOracle{responses: []string{"The hypothetical P&L for ACCT-001 is 133651.00."}}
	sy := NewSynthesizer(o, NopLogger())
	state := synthState()

	state.Apply(sy.Run(context.Background(), state))

	if state.FinalAnswer != "The hypothetical P&L for ACCT-001 is 133651.00." {
		t.Errorf("FinalAnswer = %q", state.FinalAnswer)
	}
	if state.Continue {
		t.Error("Continue must be cleared by synthesis")
	}
	if state.IterationCount != 1 {
		t.Errorf("IterationCount = %d, want 1", state.IterationCount)
	}
	if len(state.ProgressLog) != 1 || state.ProgressLog[0].Kind != models.StepSummary {
		t.Fatalf("expected one summary progress record, got %v", state.ProgressLog)
	}
	if got := state.ProgressLog[0].Metadata["completion"]; got != CompletionClean {
		t.Errorf("completion label = %v, want clean", got)
	}
	// The synthesis context must carry the gathered results.
	if !strings.Contains(o.instructions[0], "133651.00") {
		t.Error("synthesis instruction should include the completed results")
	}
}

func TestSynthesizer_NeverFails(t *testing.T) {
	// The oracle erroring or returning nothing degrades to a mechanical
	// summary; a final answer is always produced.
	tests := []struct {
		name   string
		oracle *fakeOracle
	}{
		{name: "oracle error", oracle: &fakeOracle{err: errors.New("api down")}},
		{name: "empty response", oracle: &fakeOracle{responses: []string{"   "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sy := NewSynthesizer(tt.oracle, NopLogger())
			state := synthState()

			state.Apply(sy.Run(context.Background(), state))

			if state.FinalAnswer == "" {
				t.Fatal("FinalAnswer must never be empty")
			}
			if !strings.Contains(state.FinalAnswer, "133651.00") {
				t.Errorf("mechanical summary should carry the results, got %q", state.FinalAnswer)
			}
		})
	}
}

func TestSynthesizer_CompletionLabels(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*RunState)
		want  string
	}{
		{
			name:  "clean",
			setup: func(s *RunState) {},
			want:  CompletionClean,
		},
		{
			name: "budget exhausted",
			setup: func(s *RunState) {
				s.IterationCount = s.MaxIterations
			},
			want: CompletionBudgetExhausted,
		},
		{
			name: "truncated mid-recovery",
			setup: func(s *RunState) {
				s.IterationCount = s.MaxIterations
				s.ErrorRecovery = true
			},
			want: CompletionTruncatedMidRecovery,
		},
		{
			name: "partial after retries",
			setup: func(s *RunState) {
				failed := subtask("task_2", models.SubtaskFailed)
				s.Subtasks = append(s.Subtasks, failed)
				s.RetryCount = 3
			},
			want: CompletionPartialAfterRetries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &fakeOracle{responses: []string{"answer"}}
			sy := NewSynthesizer(o, NopLogger())
			state := synthState()
			tt.setup(state)

			state.Apply(sy.Run(context.Background(), state))

			if got := state.ProgressLog[len(state.ProgressLog)-1].Metadata["completion"]; got != tt.want {
				t.Errorf("completion label = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSynthesizer_TruncatesLongResults(t *testing.T) {
	o := &fakeOracle{responses: []string{"answer"}}
	sy := NewSynthesizer(o, NopLogger())
	state := synthState()
	long := strings.Repeat("x", 5000)
	state.Results["task_1"] = long
	state.Subtasks[0].Result = long
	state.ToolLog = []models.ToolExecution{
		models.NewToolExecution("get_account_pnl", map[string]any{}, long, "", "task_1"),
	}

	state.Apply(sy.Run(context.Background(), state))

	if strings.Contains(o.instructions[0], long) {
		t.Error("individual result texts must be truncated in the synthesis prompt")
	}
}
