package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

type noteEvent struct {
	text string
}

func (noteEvent) Topic() string { return "note" }

func TestPostInvokesByPriorityThenRegistrationOrder(t *testing.T) {
	b := New()

	var order []string
	record := func(name string) Listener {
		return func(context.Context, *Cancellation, Event) (any, error) {
			order = append(order, name)
			return name, nil
		}
	}

	b.Subscribe("note", "low", 10, false, record("low"))
	b.Subscribe("note", "mid-first", 50, false, record("mid-first"))
	b.Subscribe("note", "mid-second", 50, false, record("mid-second"))
	b.Subscribe("note", "high", 90, false, record("high"))

	results, err := b.Post(context.Background(), noteEvent{})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}

	want := []string{"high", "mid-first", "mid-second", "low"}
	if len(order) != len(want) {
		t.Fatalf("invocations = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("invocations = %v, want %v", order, want)
		}
		if results[i] != want[i] {
			t.Fatalf("results = %v, want %v", results, want)
		}
	}
}

func TestCancelableListenerStopsRemaining(t *testing.T) {
	b := New()

	var order []string

	b.Subscribe("note", "high", 90, false, func(context.Context, *Cancellation, Event) (any, error) {
		order = append(order, "high")
		return nil, nil
	})
	b.Subscribe("note", "mid", 50, true, func(_ context.Context, cancel *Cancellation, _ Event) (any, error) {
		order = append(order, "mid")
		cancel.Cancel()
		return "stopped", nil
	})
	b.Subscribe("note", "low", 10, false, func(context.Context, *Cancellation, Event) (any, error) {
		order = append(order, "low")
		return nil, nil
	})

	results, err := b.Post(context.Background(), noteEvent{})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}

	if len(order) != 2 || order[0] != "high" || order[1] != "mid" {
		t.Fatalf("invocations = %v, want [high mid]", order)
	}
	if len(results) != 2 {
		t.Fatalf("results = %v, want results for 2 listeners", results)
	}
}

func TestNonCancelableListenerGetsNoToken(t *testing.T) {
	b := New()

	b.Subscribe("note", "plain", 0, false, func(_ context.Context, cancel *Cancellation, _ Event) (any, error) {
		if cancel != nil {
			t.Fatal("expected nil cancellation token for non-cancelable listener")
		}
		return nil, nil
	})
	b.Subscribe("note", "cancelable", -1, true, func(_ context.Context, cancel *Cancellation, _ Event) (any, error) {
		if cancel == nil {
			t.Fatal("expected cancellation token for cancelable listener")
		}
		return nil, nil
	})

	if _, err := b.Post(context.Background(), noteEvent{}); err != nil {
		t.Fatalf("Post error: %v", err)
	}
}

func TestListenerErrorAbortsAndPropagates(t *testing.T) {
	b := New()

	boom := errors.New("boom")
	invokedAfter := false

	b.Subscribe("note", "first", 20, false, func(context.Context, *Cancellation, Event) (any, error) {
		return "ran", nil
	})
	b.Subscribe("note", "failing", 10, false, func(context.Context, *Cancellation, Event) (any, error) {
		return nil, boom
	})
	b.Subscribe("note", "last", 0, false, func(context.Context, *Cancellation, Event) (any, error) {
		invokedAfter = true
		return nil, nil
	})

	results, err := b.Post(context.Background(), noteEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("Post error = %v, want wrapped boom", err)
	}
	if invokedAfter {
		t.Fatal("listener after the failure must not run")
	}
	if len(results) != 1 || results[0] != "ran" {
		t.Fatalf("results = %v, want results before the failure", results)
	}
}

func TestSequentialSideEffectVisibility(t *testing.T) {
	b := New()

	shared := ""
	b.Subscribe("note", "writer", 50, false, func(context.Context, *Cancellation, Event) (any, error) {
		shared = "written"
		return nil, nil
	})
	b.Subscribe("note", "reader", 10, false, func(context.Context, *Cancellation, Event) (any, error) {
		return shared, nil
	})

	results, err := b.Post(context.Background(), noteEvent{})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if results[1] != "written" {
		t.Fatalf("reader saw %v, want the writer's side effect", results[1])
	}
}

func TestDetachedPostSurfacesError(t *testing.T) {
	b := New()

	boom := errors.New("boom")
	b.Subscribe("note", "failing", 0, false, func(context.Context, *Cancellation, Event) (any, error) {
		return nil, boom
	})

	handle := b.Go(context.Background(), noteEvent{})

	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("detached post did not settle")
	}

	if !errors.Is(handle.Err(), boom) {
		t.Fatalf("handle error = %v, want wrapped boom", handle.Err())
	}
}

func TestPostWithoutListeners(t *testing.T) {
	b := New()

	results, err := b.Post(context.Background(), noteEvent{text: "nobody home"})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}
