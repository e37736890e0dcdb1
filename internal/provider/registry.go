package provider

import (
	"fmt"
	"sync"

	"dungeond/pkg/types"
)

// Registry maps provider kinds to the live callables hosted by this process
// and entities to the kind their actions must come from. Kind→callable is
// runtime-local; entity→kind mirrors the binding persisted in canonical
// state and is what Resolve consults every turn.
//
// Registration and binding happen during session setup; Resolve runs on the
// turn loop. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[types.ProviderKind]Provider
	bindings  map[types.EntityID]types.ProviderKind
	inFlight  map[types.EntityID]bool
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[types.ProviderKind]Provider),
		bindings:  make(map[types.EntityID]types.ProviderKind),
		inFlight:  make(map[types.EntityID]bool),
	}
}

// Register installs the callable for a kind. A process hosts at most one
// implementation per kind; a second Register for the same kind fails with
// ErrDuplicateProvider.
func (r *Registry) Register(kind types.ProviderKind, p Provider) error {
	if kind.IsZero() {
		return fmt.Errorf("register: zero provider kind")
	}
	if p == nil {
		return fmt.Errorf("register %s: nil provider", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[kind]; ok {
		return fmt.Errorf("register %s: %w", kind, ErrDuplicateProvider)
	}
	r.providers[kind] = p
	return nil
}

// Bind records that the entity's actions must come from the given kind.
// Interactive kinds must be registered before binding. Built-in AI kinds are
// installed lazily here: they are pure functions of state, so there is
// nothing external to wire up first.
func (r *Registry) Bind(entity types.EntityID, kind types.ProviderKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[kind]; !ok {
		ai, lazy := BuiltinAI(kind)
		if !lazy {
			return fmt.Errorf("bind entity %d to %s: %w", entity, kind, ErrUnknownProviderKind)
		}
		r.providers[kind] = ai
	}
	r.bindings[entity] = kind
	return nil
}

// Binding returns the kind bound to the entity.
func (r *Registry) Binding(entity types.EntityID) (types.ProviderKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.bindings[entity]
	return kind, ok
}

// Lookup returns the callable registered for a kind without touching
// bindings or leases. The challenge verifier has no use for it; it is for
// collaborators that need direct access to a provider they registered (e.g.
// the input-submission path).
func (r *Registry) Lookup(kind types.ProviderKind) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[kind]
	return p, ok
}

// Resolve checks out the entity's provider for one turn. The returned lease
// is the only path to the callable and must be released when the turn ends;
// a second Resolve for the same entity before release fails with
// ErrLeaseHeld. This makes "at most one in-flight action request per
// entity" a checked contract rather than a lock side effect.
func (r *Registry) Resolve(entity types.EntityID) (*Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind, ok := r.bindings[entity]
	if !ok {
		return nil, fmt.Errorf("resolve entity %d: %w", entity, ErrUnboundEntity)
	}
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("resolve entity %d (%s): %w", entity, kind, ErrUnknownProviderKind)
	}
	if r.inFlight[entity] {
		return nil, fmt.Errorf("resolve entity %d: %w", entity, ErrLeaseHeld)
	}
	r.inFlight[entity] = true
	return &Lease{registry: r, entity: entity, kind: kind, provider: p}, nil
}

func (r *Registry) releaseLease(entity types.EntityID) {
	r.mu.Lock()
	delete(r.inFlight, entity)
	r.mu.Unlock()
}

// Lease is an exclusive, single-turn checkout of an entity's provider.
type Lease struct {
	registry *Registry
	entity   types.EntityID
	kind     types.ProviderKind
	provider Provider
	once     sync.Once
}

// Kind returns the provider kind the lease resolved to.
func (l *Lease) Kind() types.ProviderKind { return l.kind }

// Provider returns the leased callable.
func (l *Lease) Provider() Provider { return l.provider }

// Release returns the lease. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() { l.registry.releaseLease(l.entity) })
}
