package provider

import (
	"context"

	"dungeond/pkg/types"
)

// Environment carries turn-scoped context handed to a provider alongside the
// snapshot. It stays deliberately small: anything that could differ between
// live execution and replay does not belong here.
type Environment struct {
	SessionID string
	// Nonce of the turn being decided (pre-state nonce + 1).
	Nonce uint64
}

// Provider produces an action for a bound entity. Implementations for AI
// kinds must be pure functions of the snapshot; interactive implementations
// may block on external input until ctx is cancelled.
type Provider interface {
	ProvideAction(ctx context.Context, entity types.EntityID, snap types.StateSnapshot, env Environment) (types.Action, error)
}

// Func adapts a function to the Provider interface.
type Func func(ctx context.Context, entity types.EntityID, snap types.StateSnapshot, env Environment) (types.Action, error)

func (f Func) ProvideAction(ctx context.Context, entity types.EntityID, snap types.StateSnapshot, env Environment) (types.Action, error) {
	return f(ctx, entity, snap, env)
}
