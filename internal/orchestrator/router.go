package orchestrator

// Step identifies the next handler to run.
type Step string

const (
	// StepDecompose runs the Decomposer.
	StepDecompose Step = "decompose"
	// StepExecute runs the Executor.
	StepExecute Step = "execute"
	// StepValidate runs the Validator.
	StepValidate Step = "validate"
	// StepRecover runs the Recovery Strategist.
	StepRecover Step = "recover"
	// StepSynthesize runs the Synthesizer, the terminal handler.
	StepSynthesize Step = "synthesize"
)

// NextStep is the routing function: a pure function of state evaluated in a
// fixed priority order, first match wins. The order is load-bearing. The
// iteration ceiling dominates every other signal so the run always
// terminates; error recovery dominates normal progress so a failing subtask
// is not silently skipped; validation runs once per batch of calculations,
// gated on the validations log being empty.
func NextStep(s *RunState) Step {
	// 1. Hard stop: the ceiling wins over every flag combination.
	if s.IterationCount >= s.MaxIterations {
		return StepSynthesize
	}
	// 2. Pending recovery with tiers still available.
	if s.ErrorRecovery && s.RetryCount < s.MaxRetries {
		return StepRecover
	}
	// 3. A recovery tier requested a fresh plan.
	if s.Replan {
		return StepDecompose
	}
	// 4. No open subtasks: validate if asked, else wrap up.
	if s.AllResolved() {
		if s.NeedsValidation {
			return StepValidate
		}
		return StepSynthesize
	}
	// 5. Mid-run validation: only once, and only when a calculation has
	// actually run.
	if s.NeedsValidation && len(s.Validations) == 0 && s.hasValidatableExecution() {
		return StepValidate
	}
	// 6. Work remains.
	if s.CurrentTask != "" || s.NextPending() != nil {
		return StepExecute
	}
	// 7. Nothing else applies.
	return StepSynthesize
}

// hasValidatableExecution reports whether at least one successful
// result-sensitive calculation is on the tool log.
func (s *RunState) hasValidatableExecution() bool {
	for _, e := range s.ToolLog {
		if e.Tool == validationTool && e.Result != "" {
			return true
		}
	}
	return false
}
