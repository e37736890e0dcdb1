package state

import (
	"testing"

	"dungeond/pkg/types"
)

func testSnapshot() types.StateSnapshot {
	return types.StateSnapshot{
		SessionID: "test",
		Width:     8,
		Height:    8,
		RNG:       1,
		Actors: []types.ActorState{
			{ID: 1, Name: "hero", Pos: types.Position{X: 1, Y: 1}, HP: 20, MaxHP: 20, Strength: 6, Provider: types.Interactive(types.InteractiveNetwork)},
			{ID: 2, Name: "gnawer", Pos: types.Position{X: 2, Y: 1}, HP: 12, MaxHP: 12, Strength: 4, Provider: types.AI(types.AIWait)},
		},
	}
}

func TestNextActorRotation(t *testing.T) {
	s := testSnapshot()
	id, ok := NextActor(s)
	if !ok || id != 1 {
		t.Fatalf("cursor 0: got %d,%v", id, ok)
	}
	s.TurnCursor = 1
	if id, _ := NextActor(s); id != 2 {
		t.Fatalf("cursor 1: got %d", id)
	}
	s.TurnCursor = 2
	if id, _ := NextActor(s); id != 1 {
		t.Fatalf("cursor wraps: got %d", id)
	}
}

func TestNextActorSkipsDead(t *testing.T) {
	s := testSnapshot()
	s.Actors[0].HP = 0
	id, ok := NextActor(s)
	if !ok || id != 2 {
		t.Fatalf("got %d,%v, want 2,true", id, ok)
	}
	s.Actors[1].HP = 0
	if _, ok := NextActor(s); ok {
		t.Fatal("all dead: ok should be false")
	}
}

func TestApplyWait(t *testing.T) {
	s := testSnapshot()
	next, result, err := Apply(s, types.WaitAction(1))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.Nonce != 1 || next.TurnCursor != 1 {
		t.Fatalf("nonce=%d cursor=%d", next.Nonce, next.TurnCursor)
	}
	if result.Nonce != 1 {
		t.Fatalf("result nonce=%d", result.Nonce)
	}
	if next.RNG != s.RNG {
		t.Fatal("wait must not advance the random stream")
	}
}

func TestApplyMove(t *testing.T) {
	s := testSnapshot()
	next, result, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionMove, Dir: types.South})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := types.Position{X: 1, Y: 2}
	if actor, _ := next.Actor(1); actor.Pos != want {
		t.Fatalf("pos=%v, want %v", actor.Pos, want)
	}
	if result.From != (types.Position{X: 1, Y: 1}) || result.To != want {
		t.Fatalf("result from=%v to=%v", result.From, result.To)
	}
}

func TestApplyMoveRejections(t *testing.T) {
	s := testSnapshot()
	// into the occupied tile
	if _, _, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionMove, Dir: types.East}); !IsRuleRejection(err) {
		t.Fatalf("occupied tile: got %v", err)
	}
	// off the map
	s.Actors[0].Pos = types.Position{X: 0, Y: 0}
	if _, _, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionMove, Dir: types.North}); !IsRuleRejection(err) {
		t.Fatalf("out of bounds: got %v", err)
	}
}

func TestApplyAttack(t *testing.T) {
	s := testSnapshot()
	next, result, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionAttack, Target: 2})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Damage < 4 || result.Damage > 8 {
		// strength 6: base 4 plus roll in [0,4)
		t.Fatalf("damage=%d outside [4,8)", result.Damage)
	}
	target, _ := next.Actor(2)
	if target.HP != 12-result.Damage {
		t.Fatalf("target hp=%d, damage=%d", target.HP, result.Damage)
	}
	if next.RNG == s.RNG {
		t.Fatal("attack must advance the random stream")
	}
}

func TestApplyAttackDeterministic(t *testing.T) {
	s := testSnapshot()
	a := types.Action{Actor: 1, Kind: types.ActionAttack, Target: 2}
	n1, r1, err1 := Apply(s, a)
	n2, r2, err2 := Apply(s, a)
	if err1 != nil || err2 != nil {
		t.Fatalf("apply: %v %v", err1, err2)
	}
	if r1 != r2 {
		t.Fatalf("results diverged: %+v vs %+v", r1, r2)
	}
	d1, err := Digest(n1)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, _ := Digest(n2)
	if d1 != d2 {
		t.Fatal("same input must yield the same post-state digest")
	}
}

func TestApplyAttackRejections(t *testing.T) {
	s := testSnapshot()
	s.Actors[1].Pos = types.Position{X: 5, Y: 5}
	if _, _, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionAttack, Target: 2}); !IsRuleRejection(err) {
		t.Fatalf("not adjacent: got %v", err)
	}
	if _, _, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionAttack, Target: 99}); !IsRuleRejection(err) {
		t.Fatalf("unknown target: got %v", err)
	}
	s.Actors[1].Pos = types.Position{X: 2, Y: 1}
	s.Actors[1].HP = 0
	if _, _, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionAttack, Target: 2}); !IsRuleRejection(err) {
		t.Fatalf("dead target: got %v", err)
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	s := testSnapshot()
	before, err := Digest(s)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if _, _, err := Apply(s, types.Action{Actor: 1, Kind: types.ActionAttack, Target: 2}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	after, _ := Digest(s)
	if before != after {
		t.Fatal("Apply mutated its input snapshot")
	}
}

func TestApplyUnknownActor(t *testing.T) {
	s := testSnapshot()
	if _, _, err := Apply(s, types.WaitAction(42)); !IsRuleRejection(err) {
		t.Fatalf("unknown actor: got %v", err)
	}
}

func TestEncodeCanonical(t *testing.T) {
	s := testSnapshot()
	shuffled := s.Clone()
	shuffled.Actors[0], shuffled.Actors[1] = shuffled.Actors[1], shuffled.Actors[0]
	d1, err := Digest(s)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, err := Digest(shuffled)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 != d2 {
		t.Fatal("actor order must not affect the canonical digest")
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	s := testSnapshot()
	s.Nonce = 7
	s.TurnCursor = 3
	b, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	d1, _ := Digest(s)
	d2, _ := Digest(back)
	if d1 != d2 {
		t.Fatal("decode(encode(s)) must digest identically")
	}
	if actor, ok := back.Actor(1); !ok || actor.Provider != types.Interactive(types.InteractiveNetwork) {
		t.Fatalf("provider kind lost in roundtrip: %+v", actor)
	}
}
