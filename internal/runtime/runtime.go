package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"dungeond/internal/bus"
	"dungeond/internal/journal"
	"dungeond/internal/prover"
	"dungeond/internal/provider"
	"dungeond/pkg/types"
)

// State is the lifecycle state of a runtime instance.
type State string

const (
	StateRunning  State = "running"
	StateDraining State = "draining"
	StateClosed   State = "closed"
)

// Config encapsulates all tunables for Runtime construction.
type Config struct {
	// Initial canonical state (fresh scenario snapshot or an archived one).
	Initial types.StateSnapshot
	// Store archives turns and snapshots. Required.
	Store *journal.Store
	// BusCapacity is the per-subscriber ring size (<=0 selects the default).
	BusCapacity int
	// Prover, when set, produces artifacts for every committed turn and
	// publishes them on the proof topic.
	Prover prover.Backend
	// Logger defaults to a disabled logger.
	Logger zerolog.Logger
}

// Runtime owns one game session: canonical state, the provider registry, the
// event bus and the journal. It is the composition point the daemon, the
// HTTP surface and the tests all talk to; there is no process-global state.
type Runtime struct {
	mu   sync.RWMutex
	snap types.StateSnapshot
	st   State

	registry *provider.Registry
	bus      *bus.Bus
	store    *journal.Store
	prover   prover.Backend
	log      zerolog.Logger

	startTime   time.Time
	turnsOK     atomic.Uint64
	turnsFailed atomic.Uint64
	lastDropped uint64
}

// New constructs a runtime over the given initial state. Providers must be
// registered and Bind called (or BindFromState) before the first turn runs.
func New(cfg Config) (*Runtime, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("new runtime: journal store is required")
	}
	if cfg.Initial.SessionID == "" {
		return nil, fmt.Errorf("new runtime: initial snapshot has no session id")
	}
	if len(cfg.Initial.Actors) == 0 {
		return nil, fmt.Errorf("new runtime: initial snapshot has no actors")
	}
	snap := cfg.Initial.Clone()
	snap.Normalize()
	return &Runtime{
		snap:      snap,
		st:        StateRunning,
		registry:  provider.NewRegistry(),
		bus:       bus.New(cfg.BusCapacity),
		store:     cfg.Store,
		prover:    cfg.Prover,
		log:       cfg.Logger,
		startTime: time.Now(),
	}, nil
}

// RegisterProvider installs the live callable for a provider kind.
func (r *Runtime) RegisterProvider(kind types.ProviderKind, p provider.Provider) error {
	return r.registry.Register(kind, p)
}

// Bind records that the entity's actions must come from the given kind, in
// both the registry and canonical state.
func (r *Runtime) Bind(entity types.EntityID, kind types.ProviderKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := -1
	for idx := range r.snap.Actors {
		if r.snap.Actors[idx].ID == entity {
			i = idx
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("bind entity %d: %w", entity, provider.ErrUnboundEntity)
	}
	if err := r.registry.Bind(entity, kind); err != nil {
		return err
	}
	r.snap.Actors[i].Provider = kind
	return nil
}

// BindFromState installs the bindings already recorded in canonical state.
// This is the resume path: an archived snapshot carries every entity's kind,
// so a restarted process only has to register the matching callables first.
func (r *Runtime) BindFromState() error {
	r.mu.RLock()
	actors := make([]types.ActorState, len(r.snap.Actors))
	copy(actors, r.snap.Actors)
	r.mu.RUnlock()
	for _, a := range actors {
		if a.Provider.IsZero() {
			continue
		}
		if err := r.registry.Bind(a.ID, a.Provider); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe attaches a reader to the requested bus topics.
func (r *Runtime) Subscribe(topics ...types.Topic) map[types.Topic]*bus.Subscription {
	return r.bus.Subscribe(topics...)
}

// Unsubscribe detaches a subscription from the bus.
func (r *Runtime) Unsubscribe(sub *bus.Subscription) {
	r.bus.Unsubscribe(sub)
}

// QueryState returns a consistent point-in-time copy of canonical state.
// Lagged subscribers call this to resynchronize.
func (r *Runtime) QueryState() types.StateSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.Clone()
}

// SubmitInput feeds an externally produced action into the interactive
// provider bound to its actor. Never blocks: a full queue is an error the
// producer handles.
func (r *Runtime) SubmitInput(a types.Action) error {
	r.mu.RLock()
	closed := r.st == StateClosed
	r.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	kind, ok := r.registry.Binding(a.Actor)
	if !ok {
		inputRejects.WithLabelValues("unbound").Inc()
		return fmt.Errorf("submit for entity %d: %w", a.Actor, provider.ErrUnboundEntity)
	}
	if !kind.IsInteractive() {
		inputRejects.WithLabelValues("not_interactive").Inc()
		return fmt.Errorf("submit for entity %d bound to %s: %w", a.Actor, kind, ErrNotInteractive)
	}
	p, ok := r.registry.Lookup(kind)
	if !ok {
		inputRejects.WithLabelValues("unregistered").Inc()
		return fmt.Errorf("submit for entity %d: %w", a.Actor, provider.ErrUnknownProviderKind)
	}
	sink, ok := p.(interface{ Submit(types.Action) error })
	if !ok {
		inputRejects.WithLabelValues("no_submit").Inc()
		return fmt.Errorf("submit for entity %d bound to %s: %w", a.Actor, kind, ErrNotInteractive)
	}
	if err := sink.Submit(a); err != nil {
		inputRejects.WithLabelValues("queue").Inc()
		return err
	}
	return nil
}

// Restore replaces canonical state with the archived snapshot at the given
// nonce and announces the rollback on the game state topic.
func (r *Runtime) Restore(ctx context.Context, nonce uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.st == StateClosed {
		return ErrClosed
	}
	snap, err := r.store.Snapshot(ctx, r.snap.SessionID, nonce)
	if err != nil {
		return err
	}
	from := r.snap.Nonce
	r.snap = snap
	r.log.Info().Uint64("from_nonce", from).Uint64("to_nonce", nonce).Msg("state restored")
	r.publish(types.Event{
		Topic:     types.TopicGameState,
		Type:      types.EventStateRestored,
		Nonce:     nonce,
		FromNonce: from,
		ToNonce:   nonce,
	})
	return nil
}

// Status reports the runtime's view of itself for /status.
func (r *Runtime) Status() types.StatusResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp := types.StatusResponse{
		SessionID:      r.snap.SessionID,
		Nonce:          r.snap.Nonce,
		State:          string(r.st),
		Proving:        r.prover != nil,
		UptimeSeconds:  int64(time.Since(r.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		TurnsTotal:     r.turnsOK.Load(),
		TurnsFailed:    r.turnsFailed.Load(),
	}
	for _, a := range r.snap.Actors {
		b := types.BindingStatus{Entity: a.ID, Provider: a.Provider.String()}
		if kind, ok := r.registry.Binding(a.ID); ok {
			if p, ok := r.registry.Lookup(kind); ok {
				if q, ok := p.(interface {
					Len() int
					Cap() int
				}); ok {
					b.QueueLen = q.Len()
					b.QueueCap = q.Cap()
				}
			}
		}
		resp.Bindings = append(resp.Bindings, b)
	}
	return resp
}

// Ready reports whether the runtime can take turns.
func (r *Runtime) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st == StateRunning
}

// Close tears the runtime down: the bus closes (subscribers drain and then
// see a terminal read) and future operations fail with ErrClosed. A turn
// currently awaiting a provider is released by cancelling the context the
// loop runs under, which the daemon does before calling Close.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.st == StateClosed {
		r.mu.Unlock()
		return
	}
	r.st = StateClosed
	r.mu.Unlock()
	r.bus.Close()
}

func (r *Runtime) publish(events ...types.Event) {
	for _, e := range events {
		r.bus.Publish(e)
	}
	if d := r.bus.Dropped(); d > r.lastDropped {
		busDropped.Add(float64(d - r.lastDropped))
		r.lastDropped = d
	}
}
