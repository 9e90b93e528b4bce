package orchestrator

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/penny/internal/tools"
	"github.com/ShayCichocki/penny/pkg/models"
)

// validationTool is the result-sensitive calculation whose outputs get an
// independent cross-check.
const validationTool = tools.ToolCalculateHPL

// crossCheckTextLimit bounds evidence text kept on a validation result.
const crossCheckTextLimit = 200

// Confidence constants for cross-check outcomes.
const (
	// confidenceConsistent applies when the cross-check agrees.
	confidenceConsistent = 0.95
	// confidenceInconsistent applies when one result is empty and the
	// other is not.
	confidenceInconsistent = 0.6
	// confidenceUnchecked applies when the cross-check call itself failed.
	// Service unavailability reduces confidence, it never fails the run.
	confidenceUnchecked = 0.7
)

// Validator cross-checks successful calculations by re-invoking the
// calculation tool under the complementary hierarchy. Cross-checks target
// independent tool executions, so they fan out in parallel; this is the one
// parallel point in the orchestration.
type Validator struct {
	invoker Invoker
	logger  *DebugLogger
}

// NewValidator creates a Validator.
func NewValidator(inv Invoker, logger *DebugLogger) *Validator {
	return &Validator{invoker: inv, logger: logger}
}

// Run validates every not-yet-validated calculation execution and clears
// the validation request. With nothing to validate it emits a no-op note.
// Both paths charge an iteration.
func (v *Validator) Run(ctx context.Context, s *RunState) Update {
	pending := v.pendingExecutions(s)
	if len(pending) == 0 {
		return Update{
			NeedsValidation: boolPtr(false),
			IterationCount:  intPtr(s.IterationCount + 1),
			Progress: []models.ProgressRecord{models.NewProgressRecord(
				models.StepValidation, "No calculations to validate", nil)},
		}
	}

	results := make([]models.ValidationResult, len(pending))
	var g errgroup.Group
	for i, exec := range pending {
		g.Go(func() error {
			results[i] = v.crossCheck(ctx, exec)
			return nil
		})
	}
	// Goroutines never return errors; each writes its own slot.
	_ = g.Wait()

	total := 0.0
	for _, r := range results {
		total += r.Confidence
	}
	mean := total / float64(len(results))

	return Update{
		Validations:     results,
		NeedsValidation: boolPtr(false),
		IterationCount:  intPtr(s.IterationCount + 1),
		Progress: []models.ProgressRecord{models.NewProgressRecord(
			models.StepValidation,
			fmt.Sprintf("Validated %d calculation(s), mean confidence %.2f", len(results), mean),
			map[string]any{"count": len(results), "mean_confidence": mean})},
	}
}

// pendingExecutions returns the successful calculation executions that do
// not yet have a validation result. Validations are issued one per
// execution in log order, so the already-validated prefix is skipped by
// count.
func (v *Validator) pendingExecutions(s *RunState) []models.ToolExecution {
	var calcs []models.ToolExecution
	for _, e := range s.ToolLog {
		if e.Tool == validationTool && e.Result != "" {
			calcs = append(calcs, e)
		}
	}
	if len(s.Validations) >= len(calcs) {
		return nil
	}
	return calcs[len(s.Validations):]
}

// crossCheck re-runs one calculation under the complementary hierarchy and
// scores agreement between the two results.
func (v *Validator) crossCheck(ctx context.Context, exec models.ToolExecution) models.ValidationResult {
	hierarchy, _ := exec.Arguments["hierarchy"].(string)
	alternate := tools.ComplementHierarchy(hierarchy)

	args := make(map[string]any, len(exec.Arguments))
	for k, val := range exec.Arguments {
		args[k] = val
	}
	args["hierarchy"] = alternate

	evidence := map[string]any{
		"tool":                exec.Tool,
		"subtask":             exec.SubtaskID,
		"hierarchy":           hierarchy,
		"alternate_hierarchy": alternate,
	}

	altResult, err := v.invoker.Invoke(ctx, exec.Tool, args)
	if err != nil {
		v.logger.Log("validate %s: cross-check failed: %v", exec.SubtaskID, err)
		evidence["error"] = truncateText(err.Error(), crossCheckTextLimit)
		return models.ValidationResult{
			IsValid:    true,
			Confidence: confidenceUnchecked,
			Issues:     []string{fmt.Sprintf("cross-check call failed: %v", err)},
			CrossCheck: evidence,
		}
	}
	evidence["alternate_result"] = truncateText(altResult, crossCheckTextLimit)

	if altResult == "" {
		return models.ValidationResult{
			IsValid:    false,
			Confidence: confidenceInconsistent,
			Issues: []string{fmt.Sprintf(
				"original result non-empty but %s cross-check returned nothing", alternate)},
			CrossCheck: evidence,
		}
	}

	return models.ValidationResult{
		IsValid:    true,
		Confidence: confidenceConsistent,
		CrossCheck: evidence,
	}
}

// truncateText bounds text for logs and prompts, cutting on a rune
// boundary so the result stays valid UTF-8.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
