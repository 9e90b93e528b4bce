package orchestrator

import "context"

// Oracle is the reasoning collaborator. It turns a natural-language
// instruction plus context into free text that should contain one JSON
// structure. The response is untrusted; handlers parse it defensively and
// define an explicit fallback for every call site.
type Oracle interface {
	Decide(ctx context.Context, instruction, contextInfo string) (string, error)
}

// Invoker is the tool-execution collaborator. Invocations must be safe to
// repeat with identical arguments; no exactly-once guarantee is assumed.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// RunStore checkpoints run state under a resumability key.
// LoadCheckpoint returns (nil, nil) when no checkpoint exists for the key.
type RunStore interface {
	SaveCheckpoint(key string, state *RunState) error
	LoadCheckpoint(key string) (*RunState, error)
}
