// Package orchestrator drives a multi-step financial-analysis run.
//
// A run threads a single RunState aggregate through five step handlers
// (Decomposer, Executor, Validator, Strategist, Synthesizer). Each handler is
// a pure function from state to a sparse Update; the Engine merges the update
// under a fixed per-field policy, checkpoints, emits events, and asks the
// Router for the next step. The iteration ceiling guarantees termination and
// every run ends with a final answer.
package orchestrator
