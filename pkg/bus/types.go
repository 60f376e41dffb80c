package bus

import (
	"context"
	"sync"
)

// Event is the payload posted to a topic. Every event type names the
// topic it belongs to, so listener signatures stay statically typed and
// a post can never land on the wrong topic.
type Event interface {
	Topic() string
}

// Listener handles one posted event. The cancellation token is non-nil
// only for listeners registered as cancelable; marking it cancelled
// stops the remaining listeners of the current post.
type Listener func(ctx context.Context, cancel *Cancellation, ev Event) (any, error)

// Cancellation is the token handed to cancelable listeners during a post.
type Cancellation struct {
	mu        sync.Mutex
	cancelled bool
}

// Cancel marks the current post cancelled.
func (c *Cancellation) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// Cancelled reports whether any listener marked the post cancelled.
func (c *Cancellation) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// PostHandle tracks one detached post. Callers either Wait on it or hand
// it to a supervisor that observes the error; a detached post is never
// silently dropped.
type PostHandle struct {
	done    chan struct{}
	results []any
	err     error
}

// Done is closed once the detached post has settled.
func (h *PostHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the post error. Only valid after Done is closed.
func (h *PostHandle) Err() error {
	return h.err
}

// Results returns the per-listener return values. Only valid after Done
// is closed.
func (h *PostHandle) Results() []any {
	return h.results
}

// Wait blocks until the post settles or ctx is done.
func (h *PostHandle) Wait(ctx context.Context) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.results, h.err
	}
}
