package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// EventBus is a string-topic publish/subscribe registry with prioritized,
// sequentially executed listeners.
//
// Listeners for a topic run in descending priority order; equal
// priorities keep registration order. One post runs its listeners one
// after another, so a side effect made by a higher-priority listener is
// visible to the next. The bus catches nothing: a listener error aborts
// the post and propagates to the caller.
//
// Registrations live for the lifetime of the bus; there is no
// unsubscribe.
type EventBus struct {
	mu      sync.RWMutex
	topics  map[string][]subscription
	nextSeq int
}

type subscription struct {
	namespace  string
	priority   int
	cancelable bool
	seq        int
	fn         Listener
}

func New() *EventBus {
	return &EventBus{
		topics: make(map[string][]subscription),
	}
}

// Subscribe registers a listener on topic under a namespace used in
// error context. Cancelable listeners receive the post's cancellation
// token; marking it stops lower-priority listeners for that post.
func (b *EventBus) Subscribe(topic string, namespace string, priority int, cancelable bool, fn Listener) {
	if fn == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := append(b.topics[topic], subscription{
		namespace:  namespace,
		priority:   priority,
		cancelable: cancelable,
		seq:        b.nextSeq,
		fn:         fn,
	})
	b.nextSeq++

	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority > subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})

	b.topics[topic] = subs
}

// ListenerCount returns the number of listeners bound to topic.
func (b *EventBus) ListenerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Post delivers ev to every listener of its topic in priority order and
// returns the per-listener results for the listeners that ran.
//
// The first listener error aborts the post; results cover listeners run
// before the failure. Cancellation by a cancelable listener ends the
// post without error.
func (b *EventBus) Post(ctx context.Context, ev Event) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.topics[ev.Topic()]))
	copy(subs, b.topics[ev.Topic()])
	b.mu.RUnlock()

	cancel := &Cancellation{}
	results := make([]any, 0, len(subs))

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		token := cancel
		if !sub.cancelable {
			token = nil
		}

		value, err := sub.fn(ctx, token, ev)
		if err != nil {
			return results, fmt.Errorf("listener %s on %s: %w", sub.namespace, ev.Topic(), err)
		}
		results = append(results, value)

		if cancel.Cancelled() {
			break
		}
	}

	return results, nil
}

// Go runs Post detached and returns a handle the caller must either
// await or hand to a supervisor.
func (b *EventBus) Go(ctx context.Context, ev Event) *PostHandle {
	handle := &PostHandle{done: make(chan struct{})}

	go func() {
		defer close(handle.done)
		handle.results, handle.err = b.Post(ctx, ev)
	}()

	return handle
}
