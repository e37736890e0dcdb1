package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"dungeond/pkg/types"
)

func TestInputQueueSubmitAndProvide(t *testing.T) {
	q := NewInputQueue(2)
	want := types.Action{Actor: 1, Kind: types.ActionMove, Dir: types.East}
	if err := q.Submit(want); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := q.ProvideAction(context.Background(), 1, types.StateSnapshot{}, Environment{})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestInputQueueFull(t *testing.T) {
	q := NewInputQueue(1)
	if err := q.Submit(types.WaitAction(1)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := q.Submit(types.WaitAction(1)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("got %v, want ErrQueueFull", err)
	}
	if q.Len() != 1 || q.Cap() != 1 {
		t.Fatalf("len=%d cap=%d", q.Len(), q.Cap())
	}
}

func TestInputQueueCloseWhileAwaiting(t *testing.T) {
	q := NewInputQueue(1)
	errc := make(chan error, 1)
	go func() {
		_, err := q.ProvideAction(context.Background(), 1, types.StateSnapshot{}, Environment{})
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-errc:
		if !errors.Is(err, ErrProviderClosed) {
			t.Fatalf("got %v, want ErrProviderClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ProvideAction did not resolve after Close")
	}
}

func TestInputQueueCloseDeliversQueued(t *testing.T) {
	q := NewInputQueue(2)
	want := types.WaitAction(1)
	if err := q.Submit(want); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q.Close()
	if err := q.Submit(types.WaitAction(1)); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("submit after close: got %v", err)
	}
	got, err := q.ProvideAction(context.Background(), 1, types.StateSnapshot{}, Environment{})
	if err != nil {
		t.Fatalf("queued action should still deliver: %v", err)
	}
	if got != want {
		t.Fatalf("got %s", got)
	}
	if _, err := q.ProvideAction(context.Background(), 1, types.StateSnapshot{}, Environment{}); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("drained queue: got %v, want ErrProviderClosed", err)
	}
}

func TestInputQueueContextCancel(t *testing.T) {
	q := NewInputQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := q.ProvideAction(ctx, 1, types.StateSnapshot{}, Environment{})
		errc <- err
	}()
	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ProvideAction did not resolve after cancel")
	}
}
