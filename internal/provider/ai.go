package provider

import (
	"context"
	"fmt"

	"dungeond/pkg/types"
)

// BuiltinAI returns the provider for a built-in AI kind. These are pure
// functions of state, which is what lets the registry install them lazily
// and the challenge verifier re-execute them.
func BuiltinAI(kind types.ProviderKind) (Provider, bool) {
	ai, ok := kind.AIKind()
	if !ok {
		return nil, false
	}
	switch ai {
	case types.AIWait:
		return WaitAI(), true
	case types.AIUtility:
		return UtilityAI(nil), true
	default:
		return nil, false
	}
}

// WaitAI always waits. Default behavior for entities nobody drives.
func WaitAI() Provider {
	return Func(func(_ context.Context, entity types.EntityID, snap types.StateSnapshot, _ Environment) (types.Action, error) {
		if _, ok := snap.Actor(entity); !ok {
			return types.Action{}, fmt.Errorf("wait ai: entity %d: %w", entity, ErrInvalidEntity)
		}
		return types.WaitAction(entity), nil
	})
}

// Candidate is one possible action considered by the utility AI.
type Candidate struct {
	Action types.Action
}

// Scorer rates a candidate for an entity given a snapshot. It must be a pure
// function of its arguments: the score feeds directly into which action gets
// committed, and committed actions must be reproducible at challenge time.
type Scorer func(snap types.StateSnapshot, entity types.EntityID, c Candidate) int

// UtilityAI scores every candidate action and picks the best, ties broken by
// enumeration order (wait, moves north/south/west/east, attacks by target
// ID). A nil scorer selects the default melee scorer.
func UtilityAI(score Scorer) Provider {
	if score == nil {
		score = DefaultScorer
	}
	return Func(func(_ context.Context, entity types.EntityID, snap types.StateSnapshot, _ Environment) (types.Action, error) {
		actor, ok := snap.Actor(entity)
		if !ok {
			return types.Action{}, fmt.Errorf("utility ai: entity %d: %w", entity, ErrInvalidEntity)
		}
		candidates := enumerate(snap, actor)
		best := candidates[0]
		bestScore := score(snap, entity, best)
		for _, c := range candidates[1:] {
			if s := score(snap, entity, c); s > bestScore {
				best, bestScore = c, s
			}
		}
		return best.Action, nil
	})
}

// enumerate lists legal candidates in stable order. Wait is always first, so
// the slice is never empty.
func enumerate(snap types.StateSnapshot, actor types.ActorState) []Candidate {
	out := []Candidate{{Action: types.WaitAction(actor.ID)}}
	for _, dir := range []types.Direction{types.North, types.South, types.West, types.East} {
		dx, dy := dir.Delta()
		dest := types.Position{X: actor.Pos.X + dx, Y: actor.Pos.Y + dy}
		if !snap.InBounds(dest) {
			continue
		}
		if _, occupied := snap.ActorAt(dest); occupied {
			continue
		}
		out = append(out, Candidate{Action: types.Action{Actor: actor.ID, Kind: types.ActionMove, Dir: dir}})
	}
	for _, other := range snap.Actors {
		if other.ID == actor.ID || !other.Alive() {
			continue
		}
		if actor.Pos.Distance(other.Pos) == 1 {
			out = append(out, Candidate{Action: types.Action{Actor: actor.ID, Kind: types.ActionAttack, Target: other.ID}})
		}
	}
	return out
}

// DefaultScorer is a melee heuristic: attack the weakest adjacent enemy,
// otherwise close the distance to the nearest one, otherwise wait.
func DefaultScorer(snap types.StateSnapshot, entity types.EntityID, c Candidate) int {
	actor, ok := snap.Actor(entity)
	if !ok {
		return 0
	}
	switch c.Action.Kind {
	case types.ActionAttack:
		target, ok := snap.Actor(c.Action.Target)
		if !ok {
			return 0
		}
		// weaker targets score higher
		return 80 + (target.MaxHP - target.HP)
	case types.ActionMove:
		dx, dy := c.Action.Dir.Delta()
		dest := types.Position{X: actor.Pos.X + dx, Y: actor.Pos.Y + dy}
		nearest := -1
		for _, other := range snap.Actors {
			if other.ID == entity || !other.Alive() {
				continue
			}
			if d := dest.Distance(other.Pos); nearest < 0 || d < nearest {
				nearest = d
			}
		}
		if nearest < 0 {
			return 0
		}
		score := 50 - nearest
		if score < 1 {
			score = 1
		}
		return score
	default:
		return 10
	}
}
