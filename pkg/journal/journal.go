// Package journal implements the all-or-nothing boundary every registry
// operation runs in. Mutations register undo closures; Rollback replays them
// newest first, Commit discards them and runs the post-commit hooks.
package journal

import (
	"context"
	"sync"
)

type contextKey struct{}

// Journal is an undo log scoped to a single operation
type Journal struct {
	mu       sync.Mutex
	undo     []func()
	onCommit []func()
	done     bool
}

// New creates an empty journal
func New() *Journal {
	return &Journal{}
}

// Record registers a closure that reverts a mutation already applied
func (j *Journal) Record(undo func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	j.undo = append(j.undo, undo)
}

// OnCommit registers a hook that runs only if the operation commits
func (j *Journal) OnCommit(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	j.onCommit = append(j.onCommit, fn)
}

// Commit seals the journal and runs the post-commit hooks in registration order
func (j *Journal) Commit() {
	hooks := j.finish()
	if hooks == nil {
		return
	}
	for _, fn := range hooks.onCommit {
		fn()
	}
}

// Rollback seals the journal and reverts every recorded mutation, newest first.
// Post-commit hooks are dropped.
func (j *Journal) Rollback() {
	hooks := j.finish()
	if hooks == nil {
		return
	}
	for i := len(hooks.undo) - 1; i >= 0; i-- {
		hooks.undo[i]()
	}
}

// Len returns the number of pending undo entries
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undo)
}

type pending struct {
	undo     []func()
	onCommit []func()
}

func (j *Journal) finish() *pending {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return nil
	}
	j.done = true
	p := &pending{undo: j.undo, onCommit: j.onCommit}
	j.undo = nil
	j.onCommit = nil
	return p
}

// WithContext returns a copy of ctx carrying j
func WithContext(ctx context.Context, j *Journal) context.Context {
	return context.WithValue(ctx, contextKey{}, j)
}

// FromContext returns the journal carried by ctx, or nil
func FromContext(ctx context.Context) *Journal {
	j, _ := ctx.Value(contextKey{}).(*Journal)
	return j
}

// Record registers undo on the journal carried by ctx. Without a journal the
// mutation is final and undo is discarded.
func Record(ctx context.Context, undo func()) {
	if j := FromContext(ctx); j != nil {
		j.Record(undo)
	}
}

// AfterCommit defers fn until the journal carried by ctx commits. Without a
// journal fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if j := FromContext(ctx); j != nil {
		j.OnCommit(fn)
		return
	}
	fn()
}
