package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dungeond/internal/state"
	"dungeond/pkg/types"
)

// TurnRecord is one committed turn as archived: who acted, under which
// declared provider kind, with what action and observable result. Nonce is
// the post-state nonce; the turn's pre-state is the snapshot archived at
// Nonce-1.
type TurnRecord struct {
	SessionID string
	Nonce     uint64
	Entity    types.EntityID
	Provider  types.ProviderKind
	Action    types.Action
	Result    types.ActionResult
}

// AppendTurn archives a committed turn and its post-state snapshot in one
// transaction. Either both rows land or neither does; a half-written turn
// would make the archive useless as challenge evidence.
func (s *Store) AppendTurn(ctx context.Context, rec TurnRecord, post types.StateSnapshot) error {
	actionJSON, err := json.Marshal(rec.Action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	stateJSON, err := state.Encode(post)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	digest, err := state.Digest(post)
	if err != nil {
		return err
	}
	kindText, err := rec.Provider.MarshalText()
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns(session_id,nonce,entity,provider_kind,action_json,result_json,committed_at) VALUES (?,?,?,?,?,?,?)`,
		rec.SessionID, rec.Nonce, uint64(rec.Entity), string(kindText), string(actionJSON), string(resultJSON), now); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots(session_id,nonce,state_json,digest,created_at) VALUES (?,?,?,?,?)`,
		post.SessionID, post.Nonce, string(stateJSON), digest, now); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return tx.Commit()
}

// SaveSnapshot archives a snapshot outside the turn path (the nonce-0 state
// of a fresh session, or a restore point).
func (s *Store) SaveSnapshot(ctx context.Context, snap types.StateSnapshot) error {
	stateJSON, err := state.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	digest, err := state.Digest(snap)
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339)
	_, err = s.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots(session_id,nonce,state_json,digest,created_at) VALUES (?,?,?,?,?)`,
		snap.SessionID, snap.Nonce, string(stateJSON), digest, now)
	return err
}

// Snapshot loads the archived snapshot at an exact nonce.
func (s *Store) Snapshot(ctx context.Context, sessionID string, nonce uint64) (types.StateSnapshot, error) {
	var stateJSON string
	err := s.DB.QueryRowContext(ctx,
		`SELECT state_json FROM snapshots WHERE session_id=? AND nonce=?`, sessionID, nonce).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StateSnapshot{}, fmt.Errorf("snapshot %s/%d: %w", sessionID, nonce, ErrNotFound)
	}
	if err != nil {
		return types.StateSnapshot{}, err
	}
	return state.Decode([]byte(stateJSON))
}

// Latest loads the newest archived snapshot of a session. ok is false when
// the session has no snapshots at all.
func (s *Store) Latest(ctx context.Context, sessionID string) (types.StateSnapshot, bool, error) {
	var stateJSON string
	err := s.DB.QueryRowContext(ctx,
		`SELECT state_json FROM snapshots WHERE session_id=? ORDER BY nonce DESC LIMIT 1`, sessionID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StateSnapshot{}, false, nil
	}
	if err != nil {
		return types.StateSnapshot{}, false, err
	}
	snap, err := state.Decode([]byte(stateJSON))
	if err != nil {
		return types.StateSnapshot{}, false, err
	}
	return snap, true, nil
}

// Turn loads one archived turn by nonce.
func (s *Store) Turn(ctx context.Context, sessionID string, nonce uint64) (TurnRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT session_id,nonce,entity,provider_kind,action_json,result_json FROM turns WHERE session_id=? AND nonce=?`,
		sessionID, nonce)
	rec, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TurnRecord{}, fmt.Errorf("turn %s/%d: %w", sessionID, nonce, ErrNotFound)
	}
	return rec, err
}

// Turns loads all archived turns of a session in commit order. This is the
// replay log: the per-entity subsequences feed replay providers, and the
// whole sequence re-drives a session from nonce zero.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT session_id,nonce,entity,provider_kind,action_json,result_json FROM turns WHERE session_id=? ORDER BY nonce ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TurnRecord
	for rows.Next() {
		rec, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Tail loads the most recent limit turns of a session, oldest first.
func (s *Store) Tail(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT session_id,nonce,entity,provider_kind,action_json,result_json FROM turns WHERE session_id=? ORDER BY nonce DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TurnRecord
	for rows.Next() {
		rec, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Sessions lists archived sessions, most recently updated first.
func (s *Store) Sessions(ctx context.Context) ([]types.SessionInfo, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT session_id, MAX(nonce), MAX(created_at) FROM snapshots GROUP BY session_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.SessionInfo
	for rows.Next() {
		var info types.SessionInfo
		var updated string
		if err := rows.Scan(&info.SessionID, &info.Nonce, &updated); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, updated); err == nil {
			info.UpdatedUnix = t.Unix()
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (TurnRecord, error) {
	var rec TurnRecord
	var entity uint64
	var kindText, actionJSON, resultJSON string
	if err := row.Scan(&rec.SessionID, &rec.Nonce, &entity, &kindText, &actionJSON, &resultJSON); err != nil {
		return TurnRecord{}, err
	}
	rec.Entity = types.EntityID(entity)
	if err := rec.Provider.UnmarshalText([]byte(kindText)); err != nil {
		return TurnRecord{}, err
	}
	if err := json.Unmarshal([]byte(actionJSON), &rec.Action); err != nil {
		return TurnRecord{}, fmt.Errorf("unmarshal action: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return TurnRecord{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return rec, nil
}
