package orchestrator

import (
	"github.com/ShayCichocki/penny/pkg/models"
)

// Update is the sparse partial update a handler returns. Each field carries
// a merge tag declaring its policy once, centrally: "append" fields are
// concatenated onto the state's log (never deduplicated, never replacing
// prior entries); "overwrite" fields replace the prior value when set.
// Pointer and nil-able types distinguish "not touched" from "set to zero".
type Update struct {
	CompletedIDs []string                  `merge:"append"`
	ToolLog      []models.ToolExecution    `merge:"append"`
	Progress     []models.ProgressRecord   `merge:"append"`
	Validations  []models.ValidationResult `merge:"append"`
	Errors       []models.ErrorRecord      `merge:"append"`

	Subtasks        []*models.Subtask `merge:"overwrite"`
	CurrentTask     *string           `merge:"overwrite"`
	Results         map[string]string `merge:"overwrite"`
	IterationCount  *int              `merge:"overwrite"`
	NeedsValidation *bool             `merge:"overwrite"`
	RetryCount      *int              `merge:"overwrite"`
	FinalAnswer     *string           `merge:"overwrite"`
	Continue        *bool             `merge:"overwrite"`
	Replan          *bool             `merge:"overwrite"`
	ErrorRecovery   *bool             `merge:"overwrite"`
}

// Apply merges an update into the state. Append fields gain the update's
// entries verbatim; overwrite fields replace the prior value only when the
// update set them. The same policy applies no matter which handler produced
// the update.
func (s *RunState) Apply(u Update) {
	s.CompletedIDs = append(s.CompletedIDs, u.CompletedIDs...)
	s.ToolLog = append(s.ToolLog, u.ToolLog...)
	s.ProgressLog = append(s.ProgressLog, u.Progress...)
	s.Validations = append(s.Validations, u.Validations...)
	s.ErrorLog = append(s.ErrorLog, u.Errors...)

	if u.Subtasks != nil {
		s.Subtasks = u.Subtasks
	}
	if u.CurrentTask != nil {
		s.CurrentTask = *u.CurrentTask
	}
	if u.Results != nil {
		s.Results = u.Results
	}
	if u.IterationCount != nil {
		s.IterationCount = *u.IterationCount
	}
	if u.NeedsValidation != nil {
		s.NeedsValidation = *u.NeedsValidation
	}
	if u.RetryCount != nil {
		s.RetryCount = *u.RetryCount
	}
	if u.FinalAnswer != nil {
		s.FinalAnswer = *u.FinalAnswer
	}
	if u.Continue != nil {
		s.Continue = *u.Continue
	}
	if u.Replan != nil {
		s.Replan = *u.Replan
	}
	if u.ErrorRecovery != nil {
		s.ErrorRecovery = *u.ErrorRecovery
	}
}

// Pointer helpers for building sparse updates.

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
