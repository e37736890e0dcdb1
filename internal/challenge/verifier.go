// Package challenge re-executes archived turns to detect fraud. Verification
// is pure: it needs only archived snapshots, the turn log and the
// deterministic providers, never the live session. A turn is fraudulent when
// the recorded actor was not the one scheduled, when a deterministic provider
// re-executed against the pre-state yields a different action, or when
// re-applying the recorded action yields a different post-state digest.
package challenge

import (
	"context"
	"fmt"

	"dungeond/internal/journal"
	"dungeond/internal/provider"
	"dungeond/internal/state"
	"dungeond/pkg/types"
)

// Verdict is the outcome of verifying one archived turn.
type Verdict struct {
	SessionID string         `json:"session_id"`
	Nonce     uint64         `json:"nonce"`
	Entity    types.EntityID `json:"entity"`
	// Fraud is true when re-execution diverged from the record.
	Fraud  bool   `json:"fraud"`
	Reason string `json:"reason,omitempty"`
	// Expected and Recorded carry both sides of an action divergence so a
	// challenge can present the evidence, not just the accusation.
	Expected *types.Action `json:"expected,omitempty"`
	Recorded *types.Action `json:"recorded,omitempty"`
	// Checked is false for provider kinds whose action choice cannot be
	// re-derived (interactive input has no deterministic source). The state
	// transition is still verified for those turns.
	Checked bool `json:"checked"`
}

// Verifier re-executes turns. Deterministic provider kinds are verifiable
// out of the box; additional kinds (customs with known deterministic
// behavior) can be registered before use.
type Verifier struct {
	providers map[types.ProviderKind]provider.Provider
}

func NewVerifier() *Verifier {
	return &Verifier{providers: make(map[types.ProviderKind]provider.Provider)}
}

// RegisterProvider makes a deterministic provider kind verifiable. The
// callable must be a pure function of (entity, snapshot); registering an
// interactive or stateful provider here produces false fraud verdicts.
func (v *Verifier) RegisterProvider(kind types.ProviderKind, p provider.Provider) {
	v.providers[kind] = p
}

func (v *Verifier) lookup(kind types.ProviderKind) (provider.Provider, bool) {
	if p, ok := v.providers[kind]; ok {
		return p, true
	}
	return provider.BuiltinAI(kind)
}

// VerifyTurn checks one archived turn against its pre-state snapshot.
// A non-nil error means verification could not run (bad inputs, encoding
// failure), not that fraud was found; fraud is reported in the Verdict.
func (v *Verifier) VerifyTurn(ctx context.Context, pre types.StateSnapshot, rec journal.TurnRecord) (Verdict, error) {
	verdict := Verdict{SessionID: rec.SessionID, Nonce: rec.Nonce, Entity: rec.Entity}
	if pre.Nonce+1 != rec.Nonce {
		return Verdict{}, fmt.Errorf("verify turn %d: pre-state is at nonce %d", rec.Nonce, pre.Nonce)
	}

	scheduled, ok := state.NextActor(pre)
	if !ok {
		verdict.Fraud = true
		verdict.Reason = "turn recorded with no actors alive"
		return verdict, nil
	}
	if scheduled != rec.Entity {
		verdict.Fraud = true
		verdict.Reason = fmt.Sprintf("entity %d acted but %d was scheduled", rec.Entity, scheduled)
		return verdict, nil
	}

	if p, ok := v.lookup(rec.Provider); ok {
		env := provider.Environment{SessionID: pre.SessionID, Nonce: rec.Nonce}
		expected, err := p.ProvideAction(ctx, rec.Entity, pre.Clone(), env)
		if err != nil {
			return Verdict{}, fmt.Errorf("re-execute provider %s at nonce %d: %w", rec.Provider, rec.Nonce, err)
		}
		verdict.Checked = true
		if expected != rec.Action {
			verdict.Fraud = true
			verdict.Reason = "provider re-execution diverged"
			e, r := expected, rec.Action
			verdict.Expected = &e
			verdict.Recorded = &r
			return verdict, nil
		}
	}
	return verdict, nil
}

// VerifyTransition re-applies the recorded action and compares the resulting
// digest with the archived post-state digest.
func (v *Verifier) VerifyTransition(pre types.StateSnapshot, rec journal.TurnRecord, post types.StateSnapshot) (Verdict, error) {
	verdict := Verdict{SessionID: rec.SessionID, Nonce: rec.Nonce, Entity: rec.Entity, Checked: true}
	replayed, _, err := state.Apply(pre, rec.Action)
	if err != nil {
		if state.IsRuleRejection(err) {
			verdict.Fraud = true
			verdict.Reason = fmt.Sprintf("committed action violates rules: %v", err)
			return verdict, nil
		}
		return Verdict{}, err
	}
	want, err := state.Digest(post)
	if err != nil {
		return Verdict{}, err
	}
	got, err := state.Digest(replayed)
	if err != nil {
		return Verdict{}, err
	}
	if got != want {
		verdict.Fraud = true
		verdict.Reason = fmt.Sprintf("post-state digest mismatch: replayed %s, archived %s", got, want)
	}
	return verdict, nil
}

// Report summarizes a full-session verification.
type Report struct {
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	Checked   int       `json:"checked"`
	Frauds    []Verdict `json:"frauds,omitempty"`
}

// Clean reports whether no fraud was found.
func (r Report) Clean() bool { return len(r.Frauds) == 0 }

// VerifySession walks a session's whole archive: every turn's actor
// selection, every deterministic provider's action choice, and every state
// transition. The journal must hold the snapshot at each turn's pre-nonce,
// which AppendTurn guarantees for sessions it archived.
func (v *Verifier) VerifySession(ctx context.Context, store *journal.Store, sessionID string) (Report, error) {
	report := Report{SessionID: sessionID}
	turns, err := store.Turns(ctx, sessionID)
	if err != nil {
		return Report{}, err
	}
	for _, rec := range turns {
		pre, err := store.Snapshot(ctx, sessionID, rec.Nonce-1)
		if err != nil {
			return Report{}, fmt.Errorf("load pre-state for turn %d: %w", rec.Nonce, err)
		}
		post, err := store.Snapshot(ctx, sessionID, rec.Nonce)
		if err != nil {
			return Report{}, fmt.Errorf("load post-state for turn %d: %w", rec.Nonce, err)
		}
		report.Turns++

		verdict, err := v.VerifyTurn(ctx, pre, rec)
		if err != nil {
			return Report{}, err
		}
		if verdict.Checked {
			report.Checked++
		}
		if verdict.Fraud {
			report.Frauds = append(report.Frauds, verdict)
			continue
		}

		tv, err := v.VerifyTransition(pre, rec, post)
		if err != nil {
			return Report{}, err
		}
		if tv.Fraud {
			report.Frauds = append(report.Frauds, tv)
		}
	}
	return report, nil
}
