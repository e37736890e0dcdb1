package types

import (
	"fmt"
	"sort"
)

// EntityID identifies an actor in canonical state.
type EntityID uint64

// Direction is a cardinal move direction.
type Direction uint8

const (
	North Direction = iota
	South
	West
	East
)

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case West:
		return "west"
	case East:
		return "east"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Delta returns the coordinate offset for the direction.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case West:
		return -1, 0
	case East:
		return 1, 0
	default:
		return 0, 0
	}
}

// ActionKind discriminates the action payload.
type ActionKind string

const (
	ActionWait   ActionKind = "wait"
	ActionMove   ActionKind = "move"
	ActionAttack ActionKind = "attack"
)

// Action is the canonical decision payload committed to state. All fields are
// plain values so two actions can be compared with ==; replay divergence
// checks depend on that.
type Action struct {
	// Entity the action acts for. Must match the actor whose turn it is.
	Actor EntityID `json:"actor"`
	// Discriminant: wait, move or attack.
	Kind ActionKind `json:"kind"`
	// Move direction; meaningful only for move actions.
	Dir Direction `json:"dir,omitempty"`
	// Attack target; meaningful only for attack actions.
	Target EntityID `json:"target,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("%d:move/%s", a.Actor, a.Dir)
	case ActionAttack:
		return fmt.Sprintf("%d:attack/%d", a.Actor, a.Target)
	default:
		return fmt.Sprintf("%d:%s", a.Actor, a.Kind)
	}
}

// WaitAction builds the no-op action for an entity.
func WaitAction(actor EntityID) Action {
	return Action{Actor: actor, Kind: ActionWait}
}

// Position is a tile coordinate on the map.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Manhattan distance between two positions.
func (p Position) Distance(o Position) int {
	dx := p.X - o.X
	if dx < 0 {
		dx = -dx
	}
	dy := p.Y - o.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// ActorState is the per-entity slice of canonical state. The bound provider
// kind lives here, not in runtime metadata, so a snapshot archived at turn N
// is self-describing when the turn is later re-executed.
type ActorState struct {
	ID       EntityID     `json:"id"`
	Name     string       `json:"name"`
	Pos      Position     `json:"pos"`
	HP       int          `json:"hp"`
	MaxHP    int          `json:"max_hp"`
	Strength int          `json:"strength"`
	Provider ProviderKind `json:"provider"`
}

// Alive reports whether the actor still takes turns.
func (a ActorState) Alive() bool { return a.HP > 0 }

// StateSnapshot is a point-in-time copy of canonical game state. Snapshots
// are value-copied across the runtime boundary: providers, subscribers and
// the challenge verifier all receive their own copy and can never mutate the
// runtime's state through it.
type StateSnapshot struct {
	SessionID string `json:"session_id"`
	// Nonce increments once per committed turn.
	Nonce uint64 `json:"nonce"`
	// Map dimensions; tiles outside [0,Width)x[0,Height) are walls.
	Width  int `json:"width"`
	Height int `json:"height"`
	// Cursor into the alive-actor turn order.
	TurnCursor int `json:"turn_cursor"`
	// RNG is the current position of the deterministic random stream. It is
	// advanced by committed actions only, so re-executing a turn from this
	// snapshot reproduces the same rolls.
	RNG uint64 `json:"rng"`
	// Actors sorted by ID.
	Actors []ActorState `json:"actors"`
}

// Actor returns a copy of the actor with the given ID.
func (s StateSnapshot) Actor(id EntityID) (ActorState, bool) {
	for _, a := range s.Actors {
		if a.ID == id {
			return a, true
		}
	}
	return ActorState{}, false
}

// ActorAt returns the alive actor occupying the position, if any.
func (s StateSnapshot) ActorAt(p Position) (ActorState, bool) {
	for _, a := range s.Actors {
		if a.Alive() && a.Pos == p {
			return a, true
		}
	}
	return ActorState{}, false
}

// InBounds reports whether the position is on the map.
func (s StateSnapshot) InBounds(p Position) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Clone returns a deep copy of the snapshot.
func (s StateSnapshot) Clone() StateSnapshot {
	out := s
	out.Actors = make([]ActorState, len(s.Actors))
	copy(out.Actors, s.Actors)
	return out
}

// Normalize sorts actors by ID. Snapshot encoding must be canonical because
// archived snapshots are compared and digested byte-for-byte.
func (s *StateSnapshot) Normalize() {
	sort.Slice(s.Actors, func(i, j int) bool { return s.Actors[i].ID < s.Actors[j].ID })
}

// ActionResult records the observable effect of a committed action.
type ActionResult struct {
	Nonce uint64 `json:"nonce"`
	// Damage dealt by an attack; zero otherwise.
	Damage int `json:"damage,omitempty"`
	// Defeated is set when an attack reduced the target to zero HP.
	Defeated bool `json:"defeated,omitempty"`
	// From/To describe a move.
	From Position `json:"from,omitempty"`
	To   Position `json:"to,omitempty"`
}
