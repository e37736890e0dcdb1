// Package bus implements the topic-partitioned broadcast channel between the
// runtime and its observers. Publishing never blocks: a subscriber that
// cannot keep up loses its oldest unread events and is told exactly how many
// it lost on its next read, instead of slowing the turn loop down or
// silently skipping ahead.
package bus

import (
	"errors"
	"fmt"
	"sync"

	"dungeond/pkg/types"
)

var (
	// ErrEmpty is returned by TryNext when no event is buffered.
	ErrEmpty = errors.New("no event available")
	// ErrBusClosed is returned once a subscription's bus has shut down and
	// all buffered events have been drained. Terminal for the subscription.
	ErrBusClosed = errors.New("event bus closed")
)

// LagError reports that the subscriber's buffer overflowed and Missed events
// were dropped. State-authoritative consumers must treat themselves as
// desynchronized on the topic and re-fetch a full snapshot before trusting
// incremental updates again.
type LagError struct {
	Topic  types.Topic
	Missed uint64
}

func (e LagError) Error() string {
	return fmt.Sprintf("subscriber lagged on %s: missed %d events", e.Topic, e.Missed)
}

const defaultCapacity = 64

// Bus fans events out to per-topic subscriber sets. It is scoped to one
// runtime instance: construction at session start, Close at teardown.
type Bus struct {
	mu       sync.Mutex
	capacity int
	subs     map[types.Topic][]*Subscription
	closed   bool
}

// New creates a bus whose subscribers buffer up to capacity events per topic
// (<=0 selects the default of 64).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Bus{capacity: capacity, subs: make(map[types.Topic][]*Subscription)}
}

// Subscribe registers a reader for each requested topic and returns one
// subscription per topic. Within a topic the subscription observes events in
// publish order; nothing is promised across topics.
func (b *Bus) Subscribe(topics ...types.Topic) map[types.Topic]*Subscription {
	out := make(map[types.Topic]*Subscription, len(topics))
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		if _, dup := out[topic]; dup {
			continue
		}
		sub := &Subscription{
			topic:  topic,
			buf:    make([]types.Event, b.capacity),
			notify: make(chan struct{}, 1),
			closed: b.closed,
		}
		if !b.closed {
			b.subs[topic] = append(b.subs[topic], sub)
		}
		out[topic] = sub
	}
	return out
}

// Publish delivers the event to every subscriber of its topic. It never
// blocks; full subscriber buffers drop their oldest unread event and count
// the loss.
func (b *Bus) Publish(event types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs[event.Topic] {
		sub.push(event)
	}
}

// Dropped returns the total number of events dropped across all subscribers
// since the bus was created.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total uint64
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.mu.Lock()
			total += sub.droppedTotal
			sub.mu.Unlock()
		}
	}
	return total
}

// Unsubscribe detaches the subscription from the bus. Buffered events remain
// readable; new events are no longer delivered.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.topic]
	for i, s := range list {
		if s == sub {
			b.subs[sub.topic] = append(list[:i], list[i+1:]...)
			break
		}
	}
	sub.markClosed()
}

// Close shuts the bus down. Subscribers drain what they have buffered and
// then read ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.markClosed()
		}
	}
	b.subs = make(map[types.Topic][]*Subscription)
}

// Subscription is one reader's view of one topic: a fixed-capacity ring of
// the most recent events plus a count of what overflowed. Readers never
// coordinate with each other; lag is strictly per reader.
type Subscription struct {
	topic types.Topic

	mu           sync.Mutex
	buf          []types.Event
	head         int // index of oldest unread
	count        int // unread events in buf
	dropped      uint64
	droppedTotal uint64
	closed       bool

	notify chan struct{}
}

// Topic returns the topic this subscription reads.
func (s *Subscription) Topic() types.Topic { return s.topic }

func (s *Subscription) push(event types.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.count == len(s.buf) {
		// overwrite oldest unread and account for it
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.dropped++
		s.droppedTotal++
	}
	s.buf[(s.head+s.count)%len(s.buf)] = event
	s.count++
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryNext returns the next event without blocking. Outcomes, in priority
// order: a LagError describing events lost since the last read, an event,
// ErrEmpty, or ErrBusClosed once the bus is gone and the buffer is drained.
func (s *Subscription) TryNext() (types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropped > 0 {
		missed := s.dropped
		s.dropped = 0
		return types.Event{}, LagError{Topic: s.topic, Missed: missed}
	}
	if s.count > 0 {
		event := s.buf[s.head]
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		return event, nil
	}
	if s.closed {
		return types.Event{}, ErrBusClosed
	}
	return types.Event{}, ErrEmpty
}

// Ready returns a channel that receives a tick when new events (or a close)
// may be observable. Used by streaming consumers to avoid busy polling; a
// tick does not guarantee an event, so callers loop on TryNext.
func (s *Subscription) Ready() <-chan struct{} { return s.notify }
