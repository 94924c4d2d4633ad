package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/execution-hub/matchflow/internal/domain/battle"
)

const defaultHistoryLimit = 100

// TransitionRepository implements battle.TransitionRecorder.
type TransitionRepository struct {
	pool *pgxpool.Pool
}

func NewTransitionRepository(pool *pgxpool.Pool) *TransitionRepository {
	return &TransitionRepository{pool: pool}
}

func (r *TransitionRepository) RecordTransition(ctx context.Context, rec *battle.TransitionRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO match_transitions (match_id, seq, from_state, to_state, event, snapshot, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (match_id, seq) DO NOTHING
		RETURNING id
	`, rec.MatchID, rec.Seq, rec.FromState, rec.ToState, rec.Event, snapshot, rec.OccurredAt)
	if err := row.Scan(&rec.ID); err != nil && err != pgx.ErrNoRows {
		return err
	}
	return nil
}

func (r *TransitionRepository) ListTransitions(ctx context.Context, matchID uuid.UUID, limit int) ([]*battle.TransitionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, match_id, seq, from_state, to_state, event, snapshot, occurred_at
		FROM match_transitions WHERE match_id=$1 ORDER BY seq ASC LIMIT $2
	`, matchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*battle.TransitionRecord
	for rows.Next() {
		rec, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *TransitionRepository) DeleteMatch(ctx context.Context, matchID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM match_transitions WHERE match_id=$1`, matchID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTransition(row pgx.Row) (*battle.TransitionRecord, error) {
	var rec battle.TransitionRecord
	var snapshot []byte
	if err := row.Scan(&rec.ID, &rec.MatchID, &rec.Seq, &rec.FromState, &rec.ToState, &rec.Event, &snapshot, &rec.OccurredAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
