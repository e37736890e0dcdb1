package provider

import "errors"

var (
	// ErrDuplicateProvider is returned by Register when a callable is already
	// installed for the kind in this process.
	ErrDuplicateProvider = errors.New("provider already registered for kind")

	// ErrUnknownProviderKind is returned by Bind and Resolve when no callable
	// is installed for the requested kind.
	ErrUnknownProviderKind = errors.New("no provider registered for kind")

	// ErrUnboundEntity is returned by Resolve for entities without a binding.
	ErrUnboundEntity = errors.New("entity has no provider binding")

	// ErrLeaseHeld is returned by Resolve while a previous lease for the same
	// entity has not been released. One in-flight action request per entity
	// is a protocol invariant, not a performance concern.
	ErrLeaseHeld = errors.New("action request already in flight for entity")

	// ErrProviderClosed signals that a provider will never act again (its
	// input channel is closed or its replay log is exhausted). Terminal for
	// the entity until it is rebound.
	ErrProviderClosed = errors.New("provider closed")

	// ErrQueueFull is returned by a non-blocking submit when the provider's
	// input queue is at capacity.
	ErrQueueFull = errors.New("provider input queue full")

	// ErrInvalidEntity is returned when a provider is invoked for an entity
	// the snapshot does not contain.
	ErrInvalidEntity = errors.New("invalid entity id")
)
