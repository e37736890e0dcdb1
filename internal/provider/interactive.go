package provider

import (
	"context"
	"fmt"
	"sync"

	"dungeond/pkg/types"
)

// InputQueue is the channel-backed provider behind interactive kinds.
// External sources (HTTP handlers, a terminal reader, a network peer) push
// actions in with Submit; the turn executor pulls them out one at a time via
// ProvideAction.
//
// Submit never blocks: a full queue rejects the input with ErrQueueFull and
// the producer decides what to do with that. The receive side is effectively
// single-consumer because the registry hands out at most one lease per
// entity at a time.
type InputQueue struct {
	mu     sync.Mutex
	ch     chan types.Action
	closed bool
}

const defaultQueueCap = 16

// NewInputQueue creates a queue with the given capacity (<=0 selects the
// default of 16).
func NewInputQueue(capacity int) *InputQueue {
	if capacity <= 0 {
		capacity = defaultQueueCap
	}
	return &InputQueue{ch: make(chan types.Action, capacity)}
}

// Submit enqueues an externally produced action without blocking.
func (q *InputQueue) Submit(a types.Action) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrProviderClosed
	}
	select {
	case q.ch <- a:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close signals that this provider will never act again. A turn currently
// waiting in ProvideAction resolves with ErrProviderClosed; queued but
// unconsumed actions are still delivered first.
func (q *InputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Len returns the number of queued actions.
func (q *InputQueue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *InputQueue) Cap() int { return cap(q.ch) }

// ProvideAction blocks until an action arrives, the queue is closed, or ctx
// is cancelled.
func (q *InputQueue) ProvideAction(ctx context.Context, entity types.EntityID, _ types.StateSnapshot, _ Environment) (types.Action, error) {
	select {
	case a, ok := <-q.ch:
		if !ok {
			return types.Action{}, fmt.Errorf("input for entity %d: %w", entity, ErrProviderClosed)
		}
		return a, nil
	case <-ctx.Done():
		return types.Action{}, ctx.Err()
	}
}
