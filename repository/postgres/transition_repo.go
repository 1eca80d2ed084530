package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/repository"
)

type transitionRepository struct {
	pool *pgxpool.Pool
}

// NewTransitionRepository returns a Postgres-backed TransitionRepository.
func NewTransitionRepository(pool *pgxpool.Pool) repository.TransitionRepository {
	return &transitionRepository{pool: pool}
}

func (r *transitionRepository) ListByState(ctx context.Context, stateID string) ([]domain.StateTransition, error) {
	const query = `
	SELECT id, state_id, from_step, to_step, channel, transition_data, created_at
	FROM state_transitions
	WHERE state_id = $1
	ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, stateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []domain.StateTransition
	for rows.Next() {
		var (
			t       domain.StateTransition
			channel string
			data    []byte
		)
		if err := rows.Scan(&t.ID, &t.StateID, &t.FromStep, &t.ToStep, &channel, &data, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Channel = domain.Channel(channel)
		if err := unmarshalColumn("transition_data", data, &t.TransitionData); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
