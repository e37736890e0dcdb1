package runtime

import "errors"

var (
	// ErrActorMismatch means a provider returned an action whose actor field
	// is not the entity the turn was requested for. The turn is aborted and
	// the action never reaches state; this is a misbehaving or misrouted
	// provider, judged at turn time, not a fraud verdict.
	ErrActorMismatch = errors.New("action actor does not match resolved entity")

	// ErrNotInteractive is returned by SubmitInput when the target entity is
	// bound to a provider that does not accept external input.
	ErrNotInteractive = errors.New("entity not bound to an interactive provider")

	// ErrNoActorsAlive means the session has no actor left to take a turn.
	ErrNoActorsAlive = errors.New("no actors alive")

	// ErrClosed is returned by operations on a runtime after Close.
	ErrClosed = errors.New("runtime closed")
)
