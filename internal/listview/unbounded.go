package listview

import (
	"context"
	"sync"

	"shortsadmin/internal/poller"
	"shortsadmin/internal/querycache"
)

// Unbounded is a filtered list the backend returns in full, such as assets
// under a prefix or credit summaries matching a search. It has no window.
type Unbounded[F Filter, T any] struct {
	mu       sync.Mutex
	resource string
	cache    *querycache.Cache
	load     func(ctx context.Context, filters F) ([]T, error)
	filters  F
	items    []T
	loaded   bool
}

// NewUnbounded builds an unbounded view over resource.
func NewUnbounded[F Filter, T any](cache *querycache.Cache, resource string, load func(context.Context, F) ([]T, error)) *Unbounded[F, T] {
	if cache == nil {
		cache = querycache.New()
	}
	return &Unbounded[F, T]{resource: resource, cache: cache, load: load}
}

// Resource returns the cache family this view reads.
func (u *Unbounded[F, T]) Resource() string {
	return u.resource
}

// Filters returns the current filters.
func (u *Unbounded[F, T]) Filters() F {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.filters
}

// SetFilters replaces the filters and forgets the loaded items on change.
func (u *Unbounded[F, T]) SetFilters(filters F) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if filters == u.filters {
		return false
	}
	u.filters = filters
	u.items = nil
	u.loaded = false
	return true
}

// Key identifies the current query in the cache.
func (u *Unbounded[F, T]) Key() querycache.Key {
	u.mu.Lock()
	defer u.mu.Unlock()
	return querycache.NewKey(u.resource, u.filters.Params())
}

// Fetch loads every item matching the filters.
func (u *Unbounded[F, T]) Fetch(ctx context.Context) ([]T, error) {
	u.mu.Lock()
	filters := u.filters
	key := querycache.NewKey(u.resource, filters.Params())
	u.mu.Unlock()

	items, err := querycache.Fetch(ctx, u.cache, key, func(ctx context.Context) ([]T, error) {
		return u.load(ctx, filters)
	})
	if err != nil {
		return items, err
	}

	u.mu.Lock()
	if u.filters == filters {
		u.items = items
		u.loaded = true
	}
	u.mu.Unlock()
	return items, nil
}

// Items returns the last loaded result for the current filters.
func (u *Unbounded[F, T]) Items() ([]T, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.items, u.loaded
}

// Follow refetches on every tick and on invalidation of this view's family.
func (u *Unbounded[F, T]) Follow(ctx context.Context, opts poller.Options, render func([]T, error) bool) *poller.Handle {
	return follow(ctx, u.cache, u.resource, opts, u.Fetch, render)
}
