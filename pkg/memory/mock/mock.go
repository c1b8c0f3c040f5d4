// Package mock provides an in-memory test double for the memory store.
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. It is safe for concurrent
// use via an internal [sync.Mutex].
//
// Typical usage:
//
//	store := &mock.Store{}
//	store.SearchMemoryResult = []memory.SearchResult{{ID: "x", Title: "hit"}}
//
//	// inject store into the system under test …
//
//	if got := store.CallCount("SearchMemory"); got != 1 {
//	    t.Errorf("expected 1 SearchMemory call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/mnemosyne/pkg/memory"
	"github.com/MrWong99/mnemosyne/pkg/memory/shape"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Store is a configurable test double for [memory.Store].
// All exported *Err fields default to nil (success); all exported *Result
// fields default to their zero value (empty slice or nil pointer returned).
type Store struct {
	mu sync.Mutex

	// calls records every method invocation in order.
	calls []Call

	// ──── WriteMemory ──────────────────────────────────────────────────────
	WriteMemoryResult *memory.WriteResult
	WriteMemoryErr    error

	// ──── ReadMemory ───────────────────────────────────────────────────────
	// ReadMemoryResult nil with a nil ReadMemoryErr models "not found".
	ReadMemoryResult *memory.Item
	ReadMemoryErr    error

	// ──── SearchMemory ─────────────────────────────────────────────────────
	// When nil, SearchMemory returns an empty non-nil slice.
	SearchMemoryResult []memory.SearchResult
	SearchMemoryErr    error

	// ──── Bootstrap ────────────────────────────────────────────────────────
	// When nil, Bootstrap returns an empty result with non-nil lists.
	BootstrapResult *memory.BootstrapResult
	BootstrapErr    error

	// ──── CommitSession ────────────────────────────────────────────────────
	CommitSessionErr error

	// ──── LastSession ──────────────────────────────────────────────────────
	// When nil, LastSession returns an empty non-nil slice.
	LastSessionResult []memory.Session
	LastSessionErr    error
}

// Calls returns a copy of all recorded method invocations.
func (m *Store) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Store) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent invocation of the named method, or nil
// when it was never called.
func (m *Store) LastCall(method string) *Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == method {
			c := m.calls[i]
			return &c
		}
	}
	return nil
}

// Reset clears all recorded calls without altering response configuration.
func (m *Store) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WriteMemory implements [memory.Store].
func (m *Store) WriteMemory(_ context.Context, p memory.WriteParams) (*memory.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "WriteMemory", Args: []any{p}})
	if m.WriteMemoryErr != nil {
		return nil, m.WriteMemoryErr
	}
	if m.WriteMemoryResult == nil {
		return &memory.WriteResult{OK: true, Action: memory.ActionCreated, ID: "mock-id"}, nil
	}
	res := *m.WriteMemoryResult
	return &res, nil
}

// ReadMemory implements [memory.Store].
func (m *Store) ReadMemory(_ context.Context, id string, prefer shape.Prefer) (*memory.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "ReadMemory", Args: []any{id, prefer}})
	if m.ReadMemoryErr != nil {
		return nil, m.ReadMemoryErr
	}
	if m.ReadMemoryResult == nil {
		return nil, nil
	}
	item := *m.ReadMemoryResult
	return &item, nil
}

// SearchMemory implements [memory.Store].
func (m *Store) SearchMemory(_ context.Context, p memory.SearchParams) ([]memory.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "SearchMemory", Args: []any{p}})
	if m.SearchMemoryResult == nil {
		return []memory.SearchResult{}, m.SearchMemoryErr
	}
	out := make([]memory.SearchResult, len(m.SearchMemoryResult))
	copy(out, m.SearchMemoryResult)
	return out, m.SearchMemoryErr
}

// Bootstrap implements [memory.Store].
func (m *Store) Bootstrap(_ context.Context, p memory.BootstrapParams) (*memory.BootstrapResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Bootstrap", Args: []any{p}})
	if m.BootstrapErr != nil {
		return nil, m.BootstrapErr
	}
	if m.BootstrapResult == nil {
		return &memory.BootstrapResult{
			Pinned:           []memory.BootstrapItem{},
			Recent:           []memory.BootstrapItem{},
			SessionsIncluded: p.IncludeSessions,
		}, nil
	}
	res := *m.BootstrapResult
	return &res, nil
}

// CommitSession implements [memory.Store].
func (m *Store) CommitSession(_ context.Context, p memory.CommitParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "CommitSession", Args: []any{p}})
	return m.CommitSessionErr
}

// LastSession implements [memory.Store].
func (m *Store) LastSession(_ context.Context, p memory.LastSessionParams) ([]memory.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "LastSession", Args: []any{p}})
	if m.LastSessionResult == nil {
		return []memory.Session{}, m.LastSessionErr
	}
	out := make([]memory.Session, len(m.LastSessionResult))
	copy(out, m.LastSessionResult)
	return out, m.LastSessionErr
}

// Ensure Store satisfies the interface at compile time.
var _ memory.Store = (*Store)(nil)
