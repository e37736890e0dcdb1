package prover

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"dungeond/internal/state"
	"dungeond/pkg/types"
)

// Stub is a proving backend that binds the transition into a digest chain
// instead of a real proof. It keeps the full pipeline exercisable (artifact
// production, the proof topic, archival) without a zkVM attached.
type Stub struct{}

func NewStub() Stub { return Stub{} }

func (Stub) Name() string { return "stub" }

func (Stub) Prove(_ context.Context, pre types.StateSnapshot, action types.Action, post types.StateSnapshot) (types.ProofArtifact, error) {
	preDigest, err := state.Digest(pre)
	if err != nil {
		return types.ProofArtifact{}, fmt.Errorf("stub prove: %w", err)
	}
	postDigest, err := state.Digest(post)
	if err != nil {
		return types.ProofArtifact{}, fmt.Errorf("stub prove: %w", err)
	}
	actionJSON, err := json.Marshal(action)
	if err != nil {
		return types.ProofArtifact{}, fmt.Errorf("stub prove: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(preDigest))
	h.Write(actionJSON)
	h.Write([]byte(postDigest))
	return types.ProofArtifact{
		Backend:    "stub",
		Nonce:      post.Nonce,
		PreDigest:  preDigest,
		PostDigest: postDigest,
		Payload:    h.Sum(nil),
	}, nil
}
