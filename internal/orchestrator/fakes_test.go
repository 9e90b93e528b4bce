package orchestrator

import (
	"context"
	"fmt"
	"sync"
)

// fakeOracle returns scripted responses in order. Once the script is
// exhausted it keeps returning the last response.
type fakeOracle struct {
	responses    []string
	err          error
	instructions []string
	idx          int
}

func (f *fakeOracle) Decide(ctx context.Context, instruction, contextInfo string) (string, error) {
	f.instructions = append(f.instructions, instruction)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[min(f.idx, len(f.responses)-1)]
	f.idx++
	return r, nil
}

// invocation records one fake tool call.
type invocation struct {
	tool string
	args map[string]any
}

// fakeInvoker serves canned results per tool and can fail the first N
// calls of a tool to exercise recovery.
type fakeInvoker struct {
	mu        sync.Mutex
	results   map[string]string
	failCount map[string]int
	calls     []invocation
}

func newFakeInvoker(results map[string]string) *fakeInvoker {
	return &fakeInvoker{
		results:   results,
		failCount: map[string]int{},
	}
}

func (f *fakeInvoker) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{tool: name, args: args})
	if f.failCount[name] > 0 {
		f.failCount[name]--
		return "", fmt.Errorf("tool %s unavailable", name)
	}
	r, ok := f.results[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %s", name)
	}
	return r, nil
}

// memoryStore is an in-memory RunStore for engine tests.
type memoryStore struct {
	mu    sync.Mutex
	saved map[string]*RunState
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: map[string]*RunState{}}
}

func (m *memoryStore) SaveCheckpoint(key string, state *RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.saved[key] = &cp
	m.saves++
	return nil
}

func (m *memoryStore) LoadCheckpoint(key string) (*RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[key]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}
