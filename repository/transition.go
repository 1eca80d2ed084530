package repository

import (
	"context"

	"github.com/bancozim/origination/domain"
)

// TransitionRepository reads the append-only step audit trail. Rows are
// written by StateRepository.SaveStep inside the same transaction as the
// state update; this interface only exposes retrieval.
type TransitionRepository interface {
	// ListByState returns all transitions for a state in creation order.
	ListByState(ctx context.Context, stateID string) ([]domain.StateTransition, error)
}
