package types

// Topic partitions the event bus. Each topic has its own subscriber set and
// its own per-subscriber ordering guarantee; nothing is promised across
// topics. Consumers that need causality between topics correlate on Nonce.
type Topic string

const (
	// TopicGameState carries state-change notifications.
	TopicGameState Topic = "game_state"
	// TopicProof carries proving-backend artifacts.
	TopicProof Topic = "proof"
	// TopicActionRef carries lightweight pointers to committed actions for
	// consumers that resolve the payload lazily from the journal.
	TopicActionRef Topic = "action_ref"
)

// Topics returns all bus topics.
func Topics() []Topic {
	return []Topic{TopicGameState, TopicProof, TopicActionRef}
}

// EventType discriminates the event payload within a topic.
type EventType string

const (
	EventActionExecuted EventType = "action_executed"
	EventActionFailed   EventType = "action_failed"
	EventStateRestored  EventType = "state_restored"
	EventProofProduced  EventType = "proof_produced"
	EventActionCommit   EventType = "action_commit"
)

// ActionRef points at a committed action in the journal without carrying the
// payload.
type ActionRef struct {
	SessionID string `json:"session_id"`
	Nonce     uint64 `json:"nonce"`
}

// ProofArtifact is an opaque output of a proving backend. The runtime only
// moves it around; interpretation belongs to the backend and its verifier.
type ProofArtifact struct {
	// Backend that produced the artifact (e.g. "stub").
	Backend string `json:"backend"`
	// Nonce of the proven turn.
	Nonce uint64 `json:"nonce"`
	// PreDigest/PostDigest are hex digests of the state before and after.
	PreDigest  string `json:"pre_digest"`
	PostDigest string `json:"post_digest"`
	// Payload is the backend-specific proof blob.
	Payload []byte `json:"payload,omitempty"`
}

// Event is the bus message. Type selects which optional fields are set:
//
//	action_executed: Action, Result
//	action_failed:   Action, Error
//	state_restored:  FromNonce, ToNonce
//	proof_produced:  Proof
//	action_commit:   Ref
type Event struct {
	Topic Topic     `json:"topic"`
	Type  EventType `json:"type"`
	Nonce uint64    `json:"nonce"`

	Action *Action       `json:"action,omitempty"`
	Result *ActionResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`

	FromNonce uint64 `json:"from_nonce,omitempty"`
	ToNonce   uint64 `json:"to_nonce,omitempty"`

	Proof *ProofArtifact `json:"proof,omitempty"`
	Ref   *ActionRef     `json:"ref,omitempty"`
}
