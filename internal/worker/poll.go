package worker

import (
	"context"
	"sync"
	"time"
)

// PollFunc is one polling step. Returning true ends the polling loop.
type PollFunc func(ctx context.Context) (done bool)

// Handle controls a polling loop started with Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs fn immediately and then on every tick of interval until fn
// reports done, ctx is cancelled or Stop is called. A non-positive interval
// falls back to one second.
func Start(ctx context.Context, interval time.Duration, fn PollFunc) *Handle {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()

		if fn(ctx) {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil || fn(ctx) {
					return
				}
			}
		}
	}()

	return h
}

// Stop cancels the loop. It does not wait; use Wait or Done for that.
// Calling Stop more than once is safe.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the loop has exited.
func (h *Handle) Wait() {
	<-h.done
}
