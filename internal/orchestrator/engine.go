package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/penny/internal/tools"
	"github.com/ShayCichocki/penny/pkg/models"
)

// Default run budgets.
const (
	// DefaultMaxIterations is the iteration ceiling when unconfigured.
	DefaultMaxIterations = 15
	// DefaultMaxRetries is the recovery tier budget when unconfigured.
	DefaultMaxRetries = 3
)

// Config carries the collaborators and budgets for an Engine. The oracle
// and invoker handles are long-lived and shared read-only across handlers;
// no handler may reconfigure or close them.
type Config struct {
	// Oracle is the reasoning collaborator. Required.
	Oracle Oracle
	// Invoker is the tool-execution collaborator. Required.
	Invoker Invoker
	// Catalog is the tool catalog. Defaults to the built-in catalog.
	Catalog *tools.Catalog
	// Store checkpoints run state after every merge. Optional.
	Store RunStore
	// Emitter receives engine events. Optional.
	Emitter *EventEmitter
	// Logger is the debug logger. Defaults to a no-op logger.
	Logger *DebugLogger
	// MaxIterations is the iteration ceiling. Defaults to 15.
	MaxIterations int
	// MaxRetries is the recovery tier budget. Defaults to 3.
	MaxRetries int
}

// Engine drives the run loop: run a handler, merge its update, checkpoint,
// emit events, route to the next handler. It is the sole writer of RunState.
type Engine struct {
	cfg         Config
	decomposer  *Decomposer
	executor    *Executor
	validator   *Validator
	strategist  *Strategist
	synthesizer *Synthesizer
}

// New creates an Engine, applying defaults for optional config.
func New(cfg Config) (*Engine, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("engine requires an oracle")
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("engine requires a tool invoker")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = tools.DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &Engine{
		cfg:         cfg,
		decomposer:  NewDecomposer(cfg.Oracle, cfg.Catalog, cfg.Logger),
		executor:    NewExecutor(cfg.Oracle, cfg.Invoker, cfg.Catalog, cfg.Logger),
		validator:   NewValidator(cfg.Invoker, cfg.Logger),
		strategist:  NewStrategist(cfg.Logger),
		synthesizer: NewSynthesizer(cfg.Oracle, cfg.Logger),
	}, nil
}

// Run executes a fresh run for the request and returns the final state.
// The returned error covers engine-level failures only; domain failures
// surface through the state's error log and the final answer's completion
// label.
func (e *Engine) Run(ctx context.Context, request string) (*RunState, error) {
	state := NewRunState(uuid.New().String(), request, e.cfg.Catalog.Names(),
		e.cfg.MaxIterations, e.cfg.MaxRetries)
	// The decomposer is the fixed entry step; routing starts after the
	// first merge.
	return e.loop(ctx, state, StepDecompose)
}

// Resume restores a checkpointed run and continues it.
func (e *Engine) Resume(ctx context.Context, key string) (*RunState, error) {
	if e.cfg.Store == nil {
		return nil, fmt.Errorf("resume requires a run store")
	}
	state, err := e.cfg.Store.LoadCheckpoint(key)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", key, err)
	}
	if state == nil {
		return nil, fmt.Errorf("no checkpoint found for run %s", key)
	}
	if state.FinalAnswer != "" {
		return state, nil
	}
	step := StepDecompose
	if len(state.Subtasks) > 0 {
		step = NextStep(state)
	}
	return e.loop(ctx, state, step)
}

// loop is the single-goroutine run loop. Exactly one handler runs at a
// time and its update is fully merged before the router is consulted again.
func (e *Engine) loop(ctx context.Context, state *RunState, step Step) (*RunState, error) {
	for {
		if err := ctx.Err(); err != nil {
			e.emit(Event{Type: EventError, Data: err.Error(), Timestamp: time.Now()})
			return state, fmt.Errorf("run %s canceled: %w", state.RunID, err)
		}

		e.cfg.Logger.Log("run %s: step %s (iteration %d/%d)",
			state.RunID, step, state.IterationCount, state.MaxIterations)

		var upd Update
		switch step {
		case StepDecompose:
			upd = e.decomposer.Run(ctx, state)
		case StepExecute:
			upd = e.executor.Run(ctx, state)
		case StepValidate:
			upd = e.validator.Run(ctx, state)
		case StepRecover:
			upd = e.strategist.Run(ctx, state)
		default:
			upd = e.synthesizer.Run(ctx, state)
		}

		state.Apply(upd)
		e.checkpoint(state)
		e.emitUpdate(upd, state)

		if state.FinalAnswer != "" {
			snap := state.Snapshot()
			e.emit(Event{Type: EventFinalAnswer, Data: state.FinalAnswer, Snapshot: &snap, Timestamp: time.Now()})
			e.emit(Event{Type: EventDone, Data: doneData(state), Snapshot: &snap, Timestamp: time.Now()})
			return state, nil
		}
		step = NextStep(state)
	}
}

// checkpoint persists state best-effort; a store failure is logged, not
// fatal.
func (e *Engine) checkpoint(state *RunState) {
	if e.cfg.Store == nil {
		return
	}
	if err := e.cfg.Store.SaveCheckpoint(state.RunID, state); err != nil {
		e.cfg.Logger.Log("run %s: checkpoint failed: %v", state.RunID, err)
	}
}

// emitUpdate translates one merged update into events, in component
// execution order: progress first, then tool executions, then the plan
// change. Snapshots reflect post-merge state.
func (e *Engine) emitUpdate(upd Update, state *RunState) {
	snap := state.Snapshot()
	for _, p := range upd.Progress {
		e.emit(Event{Type: EventReasoning, Data: p, Snapshot: &snap, Timestamp: time.Now()})
	}
	for _, t := range upd.ToolLog {
		e.emit(Event{Type: EventToolExecution, Data: t, Snapshot: &snap, Timestamp: time.Now()})
	}
	if upd.Subtasks != nil {
		e.emit(Event{Type: EventSubtaskUpdate, Data: subtaskSummaries(state.Subtasks), Snapshot: &snap, Timestamp: time.Now()})
	}
}

func (e *Engine) emit(ev Event) {
	if e.cfg.Emitter != nil {
		e.cfg.Emitter.Emit(ev)
	}
}

// doneData is the payload of the done event.
func doneData(state *RunState) map[string]any {
	label := CompletionClean
	for i := len(state.ProgressLog) - 1; i >= 0; i-- {
		p := state.ProgressLog[i]
		if p.Kind == models.StepSummary {
			if l, ok := p.Metadata["completion"].(string); ok {
				label = l
			}
			break
		}
	}
	return map[string]any{
		"run_id":     state.RunID,
		"completion": label,
	}
}

// subtaskSummaries is the payload of a subtask_update event.
func subtaskSummaries(subtasks []*models.Subtask) []map[string]any {
	out := make([]map[string]any, len(subtasks))
	for i, t := range subtasks {
		out[i] = map[string]any{
			"id":          t.ID,
			"description": t.Description,
			"status":      string(t.Status),
		}
	}
	return out
}
