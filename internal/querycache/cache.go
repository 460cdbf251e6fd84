package querycache

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Key identifies one query: a resource family plus its parameters, e.g.
// "users?is_active=1&limit=50&offset=0".
type Key string

// NewKey builds a Key from a resource family and parameters. Empty values are
// dropped; url.Values encodes in sorted order so equal queries produce equal
// keys.
func NewKey(resource string, params map[string]string) Key {
	values := url.Values{}
	for name, value := range params {
		if value != "" {
			values.Set(name, value)
		}
	}
	if len(values) == 0 {
		return Key(resource)
	}
	return Key(resource + "?" + values.Encode())
}

// Family returns the resource part of the key.
func (k Key) Family() string {
	family, _, _ := strings.Cut(string(k), "?")
	return family
}

// Matches reports whether k belongs to prefix: the exact family, a nested
// family such as "assets/fonts" under "assets", or the exact key.
func (k Key) Matches(prefix string) bool {
	if prefix == "" {
		return true
	}
	s := string(k)
	if s == prefix {
		return true
	}
	family := k.Family()
	return family == prefix || strings.HasPrefix(family, prefix+"/")
}

type entry struct {
	value any
	// applied is the sequence of the fetch whose value is stored.
	applied uint64
	// staleBefore marks values from fetches issued at or before it as stale.
	staleBefore uint64
	fetchedAt   time.Time
}

func (e *entry) stale() bool {
	return e.applied <= e.staleBefore
}

type subscriber struct {
	prefix string
	ch     chan string
}

// Cache stores query results keyed by query identity. Invalidation only marks
// entries stale and never blocks readers; out-of-order responses for the same
// key are discarded.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	issued  map[Key]uint64
	seq     uint64
	subs    map[int]subscriber
	nextSub int
	now     func() time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		issued:  make(map[Key]uint64),
		subs:    make(map[int]subscriber),
		now:     time.Now,
	}
}

// Ticket is issued when a fetch starts and presented when it resolves.
type Ticket struct {
	key Key
	seq uint64
}

// Begin records the start of a fetch for key.
func (c *Cache) Begin(key Key) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.issued[key] = c.seq
	return Ticket{key: key, seq: c.seq}
}

// Commit stores value unless a newer fetch for the same key already
// resolved. It reports whether the value was applied.
func (c *Cache) Commit(t Ticket, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.entries[t.key]
	if ok && current.applied > t.seq {
		return false
	}
	if !ok {
		current = &entry{}
		c.entries[t.key] = current
	}
	current.value = value
	current.applied = t.seq
	current.fetchedAt = c.now()
	return true
}

// Get returns the stored value for key and whether it is still fresh.
func (c *Cache) Get(key Key) (value any, fresh bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, exists := c.entries[key]
	if !exists || current.applied == 0 {
		return nil, false, false
	}
	return current.value, !current.stale(), true
}

// Invalidate marks every entry matching any prefix stale and notifies
// subscribers. It returns the number of entries marked.
func (c *Cache) Invalidate(prefixes ...string) int {
	c.mu.Lock()
	marked := 0
	for key, current := range c.entries {
		for _, prefix := range prefixes {
			if key.Matches(prefix) {
				// In-flight fetches issued before this point carry
				// pre-mutation data.
				current.staleBefore = c.seq
				marked++
				break
			}
		}
	}
	// Fetches issued before now but not yet committed must also land stale.
	for key := range c.issued {
		if _, stored := c.entries[key]; stored {
			continue
		}
		for _, prefix := range prefixes {
			if key.Matches(prefix) {
				c.entries[key] = &entry{staleBefore: c.seq}
				break
			}
		}
	}
	targets := make([]subscriber, 0, len(c.subs))
	for _, sub := range c.subs {
		targets = append(targets, sub)
	}
	c.mu.Unlock()

	for _, sub := range targets {
		for _, prefix := range prefixes {
			if prefixOverlaps(sub.prefix, prefix) {
				select {
				case sub.ch <- prefix:
				default:
				}
				break
			}
		}
	}
	return marked
}

// Subscribe delivers invalidated prefixes overlapping prefix. The channel is
// buffered by one and coalesces bursts. Call the returned func to stop.
func (c *Cache) Subscribe(prefix string) (<-chan string, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan string, 1)
	c.subs[id] = subscriber{prefix: prefix, ch: ch}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func prefixOverlaps(a, b string) bool {
	return Key(a).Matches(b) || Key(b).Matches(a)
}

// Fetch runs fn through the cache under key. A response overtaken by a newer
// one for the same key is discarded and the newer value is returned instead.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	ticket := c.Begin(key)
	value, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if c.Commit(ticket, value) {
		return value, nil
	}
	latest, _, ok := c.Get(key)
	if !ok {
		return value, nil
	}
	typed, isT := latest.(T)
	if !isT {
		var zero T
		return zero, fmt.Errorf("querycache: key %s holds %T", key, latest)
	}
	return typed, nil
}

// Mutate runs fn and, only when it succeeds, invalidates the declared
// prefixes.
func Mutate[T any](ctx context.Context, c *Cache, invalidates []string, fn func(context.Context) (T, error)) (T, error) {
	value, err := fn(ctx)
	if err != nil {
		return value, err
	}
	if c != nil && len(invalidates) > 0 {
		c.Invalidate(invalidates...)
	}
	return value, nil
}
