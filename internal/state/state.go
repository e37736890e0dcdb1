// Package state implements the canonical game state transition. Apply is a
// pure function of (snapshot, action): no wall clock, no ambient randomness,
// no I/O. Everything the transition needs, including the random stream, is
// carried inside the snapshot, which is what makes committed turns
// re-executable during challenge verification.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"dungeond/pkg/types"
)

// ruleError is a game-rule rejection. It aborts the turn without touching
// state and maps to an action_failed event, not a runtime failure.
type ruleError struct{ msg string }

func (e ruleError) Error() string { return e.msg }

// RejectRule constructs a rule rejection.
func RejectRule(format string, args ...any) error {
	return ruleError{msg: fmt.Sprintf(format, args...)}
}

// IsRuleRejection reports whether err is a game-rule rejection.
func IsRuleRejection(err error) bool {
	_, ok := err.(ruleError)
	return ok
}

// NextActor returns the entity whose turn it is: alive actors ordered by ID,
// indexed by the snapshot's turn cursor. ok is false when nobody is alive.
func NextActor(s types.StateSnapshot) (types.EntityID, bool) {
	alive := make([]types.EntityID, 0, len(s.Actors))
	for _, a := range s.Actors {
		if a.Alive() {
			alive = append(alive, a.ID)
		}
	}
	if len(alive) == 0 {
		return 0, false
	}
	return alive[s.TurnCursor%len(alive)], true
}

// Apply executes one action against the snapshot and returns the successor
// snapshot plus the observable result. The input snapshot is never mutated;
// on any error the returned snapshot is the zero value and callers keep the
// pre-state.
func Apply(s types.StateSnapshot, action types.Action) (types.StateSnapshot, types.ActionResult, error) {
	actor, ok := s.Actor(action.Actor)
	if !ok {
		return types.StateSnapshot{}, types.ActionResult{}, RejectRule("unknown entity %d", action.Actor)
	}
	if !actor.Alive() {
		return types.StateSnapshot{}, types.ActionResult{}, RejectRule("entity %d is dead", action.Actor)
	}

	next := s.Clone()
	result := types.ActionResult{Nonce: s.Nonce + 1}

	switch action.Kind {
	case types.ActionWait:
		// no effect beyond advancing the turn

	case types.ActionMove:
		dx, dy := action.Dir.Delta()
		dest := types.Position{X: actor.Pos.X + dx, Y: actor.Pos.Y + dy}
		if !s.InBounds(dest) {
			return types.StateSnapshot{}, types.ActionResult{}, RejectRule("move out of bounds to (%d,%d)", dest.X, dest.Y)
		}
		if occ, occupied := s.ActorAt(dest); occupied {
			return types.StateSnapshot{}, types.ActionResult{}, RejectRule("tile (%d,%d) occupied by entity %d", dest.X, dest.Y, occ.ID)
		}
		result.From = actor.Pos
		result.To = dest
		setActorPos(&next, actor.ID, dest)

	case types.ActionAttack:
		target, ok := s.Actor(action.Target)
		if !ok {
			return types.StateSnapshot{}, types.ActionResult{}, RejectRule("unknown target %d", action.Target)
		}
		if !target.Alive() {
			return types.StateSnapshot{}, types.ActionResult{}, RejectRule("target %d is already dead", action.Target)
		}
		if actor.Pos.Distance(target.Pos) != 1 {
			return types.StateSnapshot{}, types.ActionResult{}, RejectRule("target %d not adjacent", action.Target)
		}
		variance := actor.Strength/2 + 1
		cursor, bonus := roll(s.RNG, variance)
		next.RNG = cursor
		damage := actor.Strength/2 + 1 + bonus
		hp := target.HP - damage
		if hp < 0 {
			hp = 0
		}
		result.Damage = damage
		result.Defeated = hp == 0
		setActorHP(&next, target.ID, hp)

	default:
		return types.StateSnapshot{}, types.ActionResult{}, RejectRule("unknown action kind %q", action.Kind)
	}

	next.Nonce++
	next.TurnCursor++
	return next, result, nil
}

func setActorPos(s *types.StateSnapshot, id types.EntityID, p types.Position) {
	for i := range s.Actors {
		if s.Actors[i].ID == id {
			s.Actors[i].Pos = p
			return
		}
	}
}

func setActorHP(s *types.StateSnapshot, id types.EntityID, hp int) {
	for i := range s.Actors {
		if s.Actors[i].ID == id {
			s.Actors[i].HP = hp
			return
		}
	}
}

// Encode renders the snapshot in its canonical byte form (sorted actors,
// stable JSON field order). Archived snapshots, digests and divergence
// checks all go through this single encoding.
func Encode(s types.StateSnapshot) ([]byte, error) {
	s = s.Clone()
	s.Normalize()
	return json.Marshal(s)
}

// Decode parses a snapshot produced by Encode.
func Decode(b []byte) (types.StateSnapshot, error) {
	var s types.StateSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return types.StateSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Digest returns the hex SHA-256 of the canonical encoding.
func Digest(s types.StateSnapshot) (string, error) {
	b, err := Encode(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
