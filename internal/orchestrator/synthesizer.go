package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/penny/pkg/models"
)

// synthesisInstruction is the instruction template for the final answer.
const synthesisInstruction = `Compose one final answer for the user's request from the work below. Address the request directly, integrate every result, and flag any validation concerns. Do not mention internal task ids.

User request: %s

%s`

// resultTextLimit bounds individual result texts fed to the synthesis
// prompt.
const resultTextLimit = 200

// Completion labels distinguishing how a run ended.
const (
	// CompletionClean is a normal finish.
	CompletionClean = "clean"
	// CompletionBudgetExhausted means the iteration ceiling forced
	// synthesis.
	CompletionBudgetExhausted = "budget_exhausted"
	// CompletionTruncatedMidRecovery means the ceiling hit while a
	// failure was still awaiting recovery.
	CompletionTruncatedMidRecovery = "truncated_mid_recovery"
	// CompletionPartialAfterRetries means recovery gave up on at least
	// one subtask.
	CompletionPartialAfterRetries = "partial_after_retries"
)

// Synthesizer is the terminal handler: it composes all recorded results
// into one final answer. It never fails; if the oracle is unavailable it
// falls back to a mechanical summary, so a run always produces an answer.
type Synthesizer struct {
	oracle Oracle
	logger *DebugLogger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(o Oracle, logger *DebugLogger) *Synthesizer {
	return &Synthesizer{oracle: o, logger: logger}
}

// Run produces the final answer update and ends the run.
func (sy *Synthesizer) Run(ctx context.Context, s *RunState) Update {
	label := completionLabel(s)
	gathered := sy.gather(s, label)

	answer := ""
	response, err := sy.oracle.Decide(ctx, fmt.Sprintf(synthesisInstruction, s.OriginalRequest, gathered), "")
	if err != nil {
		sy.logger.Log("synthesize: oracle call failed, using mechanical summary: %v", err)
	} else {
		answer = strings.TrimSpace(response)
	}
	if answer == "" {
		answer = sy.mechanicalSummary(s, label)
	}

	return Update{
		FinalAnswer:    strPtr(answer),
		Continue:       boolPtr(false),
		IterationCount: intPtr(s.IterationCount + 1),
		Progress: []models.ProgressRecord{models.NewProgressRecord(
			models.StepSummary,
			fmt.Sprintf("Synthesized final answer (%s)", label),
			map[string]any{
				"completion":      label,
				"completed_count": s.CompletedCount(),
				"total_subtasks":  len(s.Subtasks),
			})},
	}
}

// gather assembles the completed results, the tool log, and the validation
// summary into the synthesis context.
func (sy *Synthesizer) gather(s *RunState, label string) string {
	var b strings.Builder

	b.WriteString("Results:\n")
	got := false
	for _, t := range s.Subtasks {
		if t.Status != models.SubtaskCompleted {
			continue
		}
		got = true
		fmt.Fprintf(&b, "- %s (%s): %s\n", t.ID, t.Description, truncateText(result(s, t), resultTextLimit))
	}
	if !got {
		b.WriteString("- none\n")
	}

	if len(s.ToolLog) > 0 {
		b.WriteString("\nTool calls:\n")
		for _, e := range s.ToolLog {
			fmt.Fprintf(&b, "- %s -> %s\n", e.Tool, truncateText(e.Result, resultTextLimit))
		}
	}

	if len(s.Validations) > 0 {
		b.WriteString("\nValidation:\n")
		for _, v := range s.Validations {
			fmt.Fprintf(&b, "- valid=%t confidence=%.2f", v.IsValid, v.Confidence)
			if len(v.Issues) > 0 {
				fmt.Fprintf(&b, " issues: %s", strings.Join(v.Issues, "; "))
			}
			b.WriteString("\n")
		}
	}

	if label != CompletionClean {
		fmt.Fprintf(&b, "\nNote: the run did not finish cleanly (%s); present partial results honestly.\n", label)
	}
	return b.String()
}

// mechanicalSummary is the oracle-free fallback answer.
func (sy *Synthesizer) mechanicalSummary(s *RunState, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Completed %d of %d subtask(s) for: %s\n", s.CompletedCount(), len(s.Subtasks), s.OriginalRequest)
	for _, t := range s.Subtasks {
		if t.Status == models.SubtaskCompleted {
			fmt.Fprintf(&b, "- %s: %s\n", t.Description, result(s, t))
		}
	}
	if label != CompletionClean {
		fmt.Fprintf(&b, "The run ended early (%s); results may be partial.\n", label)
	}
	return strings.TrimSpace(b.String())
}

// result prefers the results map and falls back to the subtask's own copy.
func result(s *RunState, t *models.Subtask) string {
	if r, ok := s.Results[t.ID]; ok {
		return r
	}
	return t.Result
}

// completionLabel classifies how the run ended so front ends can tell a
// clean finish from a forced one.
func completionLabel(s *RunState) string {
	if s.IterationCount >= s.MaxIterations {
		if s.ErrorRecovery {
			return CompletionTruncatedMidRecovery
		}
		return CompletionBudgetExhausted
	}
	if s.FirstFailed() != nil {
		return CompletionPartialAfterRetries
	}
	return CompletionClean
}
