package provider

import (
	"context"
	"fmt"
	"sync"

	"dungeond/pkg/types"
)

// ReplaySource feeds recorded actions back in order. It is the only
// interactive kind a challenge verifier may resolve, because a recorded log
// is the only external input that can be re-read deterministically.
type ReplaySource struct {
	mu      sync.Mutex
	actions []types.Action
	cursor  int
}

// NewReplaySource copies the recorded log.
func NewReplaySource(actions []types.Action) *ReplaySource {
	out := make([]types.Action, len(actions))
	copy(out, actions)
	return &ReplaySource{actions: out}
}

// Remaining returns the number of unconsumed actions.
func (r *ReplaySource) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions) - r.cursor
}

// ProvideAction pops the next recorded action. An exhausted log resolves
// with ErrProviderClosed, same as a closed live channel.
func (r *ReplaySource) ProvideAction(_ context.Context, entity types.EntityID, _ types.StateSnapshot, _ Environment) (types.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor >= len(r.actions) {
		return types.Action{}, fmt.Errorf("replay log exhausted for entity %d: %w", entity, ErrProviderClosed)
	}
	a := r.actions[r.cursor]
	r.cursor++
	return a, nil
}

// ReplayLog routes recorded actions to their entities: one ReplaySource per
// entity, dispatched by the entity the turn is for. It stands in for any
// interactive kind when a whole session is re-driven offline.
type ReplayLog struct {
	sources map[types.EntityID]*ReplaySource
}

// NewReplayLog splits a session's recorded actions into per-entity sources.
// Order within each entity follows the order given, which for a journal dump
// is commit order.
func NewReplayLog(actions []types.Action) *ReplayLog {
	byEntity := make(map[types.EntityID][]types.Action)
	for _, a := range actions {
		byEntity[a.Actor] = append(byEntity[a.Actor], a)
	}
	log := &ReplayLog{sources: make(map[types.EntityID]*ReplaySource, len(byEntity))}
	for entity, recorded := range byEntity {
		log.sources[entity] = NewReplaySource(recorded)
	}
	return log
}

// Remaining returns the number of unconsumed actions across all entities.
func (l *ReplayLog) Remaining() int {
	total := 0
	for _, src := range l.sources {
		total += src.Remaining()
	}
	return total
}

// ProvideAction pops the next recorded action for the entity.
func (l *ReplayLog) ProvideAction(ctx context.Context, entity types.EntityID, snap types.StateSnapshot, env Environment) (types.Action, error) {
	src, ok := l.sources[entity]
	if !ok {
		return types.Action{}, fmt.Errorf("no recorded actions for entity %d: %w", entity, ErrProviderClosed)
	}
	return src.ProvideAction(ctx, entity, snap, env)
}
