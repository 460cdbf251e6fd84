package listview

import (
	"context"
	"strconv"
	"sync"

	"shortsadmin/internal/api"
	"shortsadmin/internal/poller"
	"shortsadmin/internal/querycache"
)

// Filter is a view's comparable filter state. Params renders it as query
// parameters; empty values mean "no filter".
type Filter interface {
	comparable
	Params() map[string]string
}

// Loader fetches one window of a paged resource.
type Loader[F Filter, T any] func(ctx context.Context, filters F, limit, offset int) (api.Page[T], error)

// View holds filter and page-window state for a paged list. Fetches run
// through the query cache under a key derived from the whole window.
type View[F Filter, T any] struct {
	mu       sync.Mutex
	resource string
	cache    *querycache.Cache
	load     Loader[F, T]
	filters  F
	limit    int
	offset   int
	last     *api.Page[T]
}

// New builds a view over resource with a fixed page size.
func New[F Filter, T any](cache *querycache.Cache, resource string, limit int, load func(context.Context, F, int, int) (api.Page[T], error)) *View[F, T] {
	if cache == nil {
		cache = querycache.New()
	}
	if limit <= 0 {
		limit = 50
	}
	return &View[F, T]{resource: resource, cache: cache, load: load, limit: limit}
}

// Resource returns the cache family this view reads.
func (v *View[F, T]) Resource() string {
	return v.resource
}

// Filters returns the current filters.
func (v *View[F, T]) Filters() F {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

// SetFilters replaces the filters. Any change rewinds to the first page.
func (v *View[F, T]) SetFilters(filters F) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if filters == v.filters {
		return false
	}
	v.filters = filters
	v.offset = 0
	v.last = nil
	return true
}

// Limit returns the page size.
func (v *View[F, T]) Limit() int {
	return v.limit
}

// Offset returns the current window start.
func (v *View[F, T]) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// Seek positions the window at offset, clamped at zero.
func (v *View[F, T]) Seek(offset int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = max(offset, 0)
}

// Key identifies the current window in the cache.
func (v *View[F, T]) Key() querycache.Key {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.keyLocked()
}

func (v *View[F, T]) keyLocked() querycache.Key {
	params := map[string]string{}
	for name, value := range v.filters.Params() {
		params[name] = value
	}
	params["limit"] = strconv.Itoa(v.limit)
	params["offset"] = strconv.Itoa(v.offset)
	return querycache.NewKey(v.resource, params)
}

// Fetch loads the current window. The result is retained as the view's page
// only if filters and offset did not change while the request ran.
func (v *View[F, T]) Fetch(ctx context.Context) (api.Page[T], error) {
	v.mu.Lock()
	filters, limit, offset := v.filters, v.limit, v.offset
	key := v.keyLocked()
	v.mu.Unlock()

	page, err := querycache.Fetch(ctx, v.cache, key, func(ctx context.Context) (api.Page[T], error) {
		return v.load(ctx, filters, limit, offset)
	})
	if err != nil {
		return page, err
	}

	v.mu.Lock()
	if v.keyLocked() == key {
		v.last = &page
	}
	v.mu.Unlock()
	return page, nil
}

// Page returns the last page retained for the current window.
func (v *View[F, T]) Page() (api.Page[T], bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last == nil {
		return api.Page[T]{}, false
	}
	return *v.last, true
}

// CanPrev reports whether Prev would move.
func (v *View[F, T]) CanPrev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset > 0
}

// CanNext reports whether the last fetched page says more rows exist.
func (v *View[F, T]) CanNext() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last != nil && v.offset+v.limit < v.last.Total
}

// Next advances one page when possible.
func (v *View[F, T]) Next() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last == nil || v.offset+v.limit >= v.last.Total {
		return false
	}
	v.offset += v.limit
	v.last = nil
	return true
}

// Prev steps back one page when possible.
func (v *View[F, T]) Prev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.offset == 0 {
		return false
	}
	v.offset = max(v.offset-v.limit, 0)
	v.last = nil
	return true
}

// Follow refetches the current window on every tick and whenever the cache
// invalidates this view's family. render returns false to stop.
func (v *View[F, T]) Follow(ctx context.Context, opts poller.Options, render func(api.Page[T], error) bool) *poller.Handle {
	return follow(ctx, v.cache, v.resource, opts, v.Fetch, render)
}

func follow[T any](ctx context.Context, cache *querycache.Cache, resource string, opts poller.Options, fetch func(context.Context) (T, error), render func(T, error) bool) *poller.Handle {
	wake, unsubscribe := cache.Subscribe(resource)
	opts.Wake = wake
	if opts.Name == "" {
		opts.Name = resource
	}
	handle := poller.Start(ctx, opts, fetch, render)
	go func() {
		<-handle.Done()
		unsubscribe()
	}()
	return handle
}
