package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shortsadmin/internal/logging"
)

// Options configures a polling task.
type Options struct {
	// Name labels log lines, e.g. "jobs-list".
	Name     string
	Interval time.Duration
	// Wake triggers an immediate poll, typically fed by a cache
	// invalidation subscription. Optional.
	Wake   <-chan string
	Logger *slog.Logger
}

// Handle controls one running task. Stop is explicit: once it returns no
// result is delivered, even from a fetch that was already in flight.
type Handle struct {
	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// Start runs fetch immediately and then on every tick until the handle is
// stopped or ctx ends. Each result is passed to sink unless the handle was
// stopped while the fetch ran; sink returns false to end the task itself.
// Fetches never overlap; ticks that fire during a slow fetch are dropped.
func Start[T any](ctx context.Context, opts Options, fetch func(context.Context) (T, error), sink func(T, error) bool) *Handle {
	h := &Handle{stop: make(chan struct{}), done: make(chan struct{})}
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := logging.NewComponentLogger(opts.Logger, "poller")
	if opts.Name != "" {
		ctx = logging.WithView(ctx, opts.Name)
	}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if !h.begin() {
				return
			}
			value, err := fetch(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.WithContext(ctx, logger).Debug("poll failed", logging.Error(err))
			}
			h.deliver(func() bool { return sink(value, err) })

			select {
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			case <-ticker.C:
			case <-opts.Wake:
				ticker.Reset(interval)
			}
		}
	}()
	return h
}

func (h *Handle) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.stopped
}

func (h *Handle) deliver(fn func() bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	if !fn() {
		h.stopped = true
		close(h.stop)
	}
}

// Stop disables the task. It does not abort an in-flight fetch but
// guarantees its result is dropped. Stop is idempotent and safe on nil.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	close(h.stop)
}

// Stopped reports whether Stop was called.
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// Done is closed when the loop goroutine exits. With an in-flight fetch
// this happens only after that fetch returns.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
