package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dungeond/internal/journal"
	"dungeond/internal/provider"
	"dungeond/internal/state"
	"dungeond/pkg/types"
)

// TurnOutcome describes one RunTurn call. Committed distinguishes a turn that
// advanced state from one rejected by game rules; RuleErr carries the rule
// text for the latter.
type TurnOutcome struct {
	Entity    types.EntityID
	Action    types.Action
	Committed bool
	Result    types.ActionResult
	RuleErr   error
}

// RunTurn executes one full turn: select the actor, resolve its provider,
// await the action, validate it and commit. A game-rule rejection is a
// normal outcome (Committed=false, RuleErr set, nil error); the error return
// is reserved for runtime faults such as a closed provider, a mismatched
// actor or a journal failure, after which state is unchanged.
func (r *Runtime) RunTurn(ctx context.Context) (TurnOutcome, error) {
	r.mu.RLock()
	if r.st != StateRunning {
		r.mu.RUnlock()
		return TurnOutcome{}, ErrClosed
	}
	pre := r.snap.Clone()
	r.mu.RUnlock()

	entity, ok := state.NextActor(pre)
	if !ok {
		return TurnOutcome{}, ErrNoActorsAlive
	}
	outcome := TurnOutcome{Entity: entity}

	lease, err := r.registry.Resolve(entity)
	if err != nil {
		turnsTotal.WithLabelValues("resolve_error").Inc()
		return outcome, fmt.Errorf("resolve provider for entity %d: %w", entity, err)
	}
	defer lease.Release()

	env := provider.Environment{SessionID: pre.SessionID, Nonce: pre.Nonce + 1}
	action, err := lease.Provider().ProvideAction(ctx, entity, pre, env)
	if err != nil {
		turnsTotal.WithLabelValues("provider_error").Inc()
		r.turnsFailed.Add(1)
		return outcome, fmt.Errorf("provider %s for entity %d: %w", lease.Kind(), entity, err)
	}
	outcome.Action = action

	if action.Actor != entity {
		turnsTotal.WithLabelValues("actor_mismatch").Inc()
		r.turnsFailed.Add(1)
		r.log.Warn().
			Uint64("expected", uint64(entity)).
			Uint64("got", uint64(action.Actor)).
			Str("provider", lease.Kind().String()).
			Msg("actor mismatch")
		return outcome, fmt.Errorf("entity %d returned action for %d: %w", entity, action.Actor, ErrActorMismatch)
	}

	post, result, err := state.Apply(pre, action)
	if err != nil {
		if !state.IsRuleRejection(err) {
			turnsTotal.WithLabelValues("apply_error").Inc()
			r.turnsFailed.Add(1)
			return outcome, err
		}
		turnsTotal.WithLabelValues("rejected").Inc()
		r.turnsFailed.Add(1)
		outcome.RuleErr = err
		r.log.Debug().
			Uint64("entity", uint64(entity)).
			Str("kind", string(action.Kind)).
			Str("reason", err.Error()).
			Msg("action rejected")
		r.publish(types.Event{
			Topic:  types.TopicGameState,
			Type:   types.EventActionFailed,
			Nonce:  pre.Nonce,
			Action: &action,
			Error:  err.Error(),
		})
		return outcome, nil
	}

	rec := journal.TurnRecord{
		SessionID: post.SessionID,
		Nonce:     post.Nonce,
		Entity:    entity,
		Provider:  lease.Kind(),
		Action:    action,
		Result:    result,
	}
	if err := r.store.AppendTurn(ctx, rec, post); err != nil {
		turnsTotal.WithLabelValues("journal_error").Inc()
		r.turnsFailed.Add(1)
		return outcome, fmt.Errorf("journal turn %d: %w", post.Nonce, err)
	}

	r.mu.Lock()
	r.snap = post
	r.mu.Unlock()

	outcome.Committed = true
	outcome.Result = result
	turnsTotal.WithLabelValues("committed").Inc()
	r.turnsOK.Add(1)
	r.log.Info().
		Uint64("nonce", post.Nonce).
		Uint64("entity", uint64(entity)).
		Str("kind", string(action.Kind)).
		Msg("turn committed")

	events := []types.Event{
		{
			Topic:  types.TopicGameState,
			Type:   types.EventActionExecuted,
			Nonce:  post.Nonce,
			Action: &action,
			Result: &result,
		},
		{
			Topic: types.TopicActionRef,
			Type:  types.EventActionCommit,
			Nonce: post.Nonce,
			Ref:   &types.ActionRef{SessionID: post.SessionID, Nonce: post.Nonce},
		},
	}
	if r.prover != nil {
		start := time.Now()
		artifact, perr := r.prover.Prove(ctx, pre, action, post)
		proofDuration.Observe(time.Since(start).Seconds())
		if perr != nil {
			// Proving is downstream of commit; the turn stands.
			r.log.Error().Err(perr).Uint64("nonce", post.Nonce).Msg("proof backend failed")
		} else {
			events = append(events, types.Event{
				Topic: types.TopicProof,
				Type:  types.EventProofProduced,
				Nonce: post.Nonce,
				Proof: &artifact,
			})
		}
	}
	r.publish(events...)
	return outcome, nil
}

// Loop runs turns until the context is cancelled, the session ends or an
// interactive provider closes. Rule rejections and actor mismatches retry
// the same actor; anything else stops the loop.
func (r *Runtime) Loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := r.RunTurn(ctx)
		switch {
		case err == nil:
			// committed or rule-rejected; either way the loop continues
		case errors.Is(err, ErrActorMismatch):
			// misbehaving provider; the same actor is up again next turn
		case errors.Is(err, ErrNoActorsAlive):
			r.log.Info().Msg("session over: no actors alive")
			return nil
		case errors.Is(err, provider.ErrProviderClosed):
			r.log.Info().Msg("provider closed, stopping loop")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return err
		}
	}
}
