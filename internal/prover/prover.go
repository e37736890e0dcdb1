// Package prover defines the boundary to zero-knowledge proving backends.
// The runtime only needs a way to turn a committed transition into an opaque
// artifact for the proof topic; generating real zkVM proofs is a separate
// system behind this interface.
package prover

import (
	"context"

	"dungeond/pkg/types"
)

// Backend produces a proof artifact for one committed state transition.
type Backend interface {
	// Name identifies the backend in artifacts and logs.
	Name() string
	// Prove attests that applying action to pre yields post.
	Prove(ctx context.Context, pre types.StateSnapshot, action types.Action, post types.StateSnapshot) (types.ProofArtifact, error)
}
