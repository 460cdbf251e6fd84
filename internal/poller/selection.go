package poller

import (
	"context"
	"sync"
)

// Selection polls a detail view only while an item is selected. Changing or
// clearing the selection stops the previous task, so a late response for a
// previously selected item is never delivered.
type Selection[T any] struct {
	mu       sync.Mutex
	ctx      context.Context
	opts     Options
	fetch    func(ctx context.Context, id string) (T, error)
	sink     func(id string, value T, err error) bool
	selected string
	handle   *Handle
}

// NewSelection builds an idle Selection. sink follows the Start contract and
// must not call back into the Selection.
func NewSelection[T any](ctx context.Context, opts Options, fetch func(context.Context, string) (T, error), sink func(string, T, error) bool) *Selection[T] {
	return &Selection[T]{ctx: ctx, opts: opts, fetch: fetch, sink: sink}
}

// Select starts polling id, replacing any previous selection. An empty id
// is the same as Clear.
func (s *Selection[T]) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.selected && s.handle != nil {
		return
	}
	s.handle.Stop()
	s.handle = nil
	s.selected = id
	if id == "" {
		return
	}
	s.handle = Start(s.ctx, s.opts,
		func(ctx context.Context) (T, error) { return s.fetch(ctx, id) },
		func(value T, err error) bool { return s.sink(id, value, err) },
	)
}

// Clear stops polling. No request is issued until the next Select.
func (s *Selection[T]) Clear() {
	s.Select("")
}

// Selected returns the current id, empty when idle.
func (s *Selection[T]) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Active reports whether a task is running.
func (s *Selection[T]) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && !s.handle.Stopped()
}
