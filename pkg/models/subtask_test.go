package models

import "testing"

func TestSubtaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status SubtaskStatus
		want   bool
	}{
		{"pending", SubtaskPending, true},
		{"in progress", SubtaskInProgress, true},
		{"completed", SubtaskCompleted, true},
		{"failed", SubtaskFailed, true},
		{"unknown", SubtaskStatus("blocked"), false},
		{"empty", SubtaskStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestSubtaskStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from SubtaskStatus
		to   SubtaskStatus
		want bool
	}{
		{"pending to in_progress", SubtaskPending, SubtaskInProgress, true},
		{"pending to completed", SubtaskPending, SubtaskCompleted, false},
		{"in_progress to completed", SubtaskInProgress, SubtaskCompleted, true},
		{"in_progress to failed", SubtaskInProgress, SubtaskFailed, true},
		{"in_progress to pending", SubtaskInProgress, SubtaskPending, false},
		{"completed is terminal", SubtaskCompleted, SubtaskPending, false},
		{"completed cannot fail", SubtaskCompleted, SubtaskFailed, false},
		{"failed may retry", SubtaskFailed, SubtaskPending, true},
		{"failed cannot complete directly", SubtaskFailed, SubtaskCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%q -> %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSubtaskStatus_Resolved(t *testing.T) {
	if SubtaskPending.Resolved() || SubtaskInProgress.Resolved() {
		t.Error("pending and in_progress must not be resolved")
	}
	if !SubtaskCompleted.Resolved() || !SubtaskFailed.Resolved() {
		t.Error("completed and failed must be resolved")
	}
}

func TestSubtask_Clone(t *testing.T) {
	orig := &Subtask{
		ID:             "task_1",
		Description:    "Calculate HPL for ACCT-001",
		Status:         SubtaskPending,
		CandidateTools: []string{"calculate_hypothetical_pnl", "get_account_pnl"},
	}

	cp := orig.Clone()
	cp.Status = SubtaskCompleted
	cp.CandidateTools[0] = "other"

	if orig.Status != SubtaskPending {
		t.Error("Clone must not share status with the original")
	}
	if orig.CandidateTools[0] != "calculate_hypothetical_pnl" {
		t.Error("Clone must not share the candidate tool slice")
	}
}

func TestSubtask_HasAlternativeTool(t *testing.T) {
	one := &Subtask{CandidateTools: []string{"get_all_accounts"}}
	two := &Subtask{CandidateTools: []string{"get_all_accounts", "get_account_pnl"}}

	if one.HasAlternativeTool() {
		t.Error("single candidate tool must not count as an alternative")
	}
	if !two.HasAlternativeTool() {
		t.Error("two candidate tools must count as an alternative")
	}
}
