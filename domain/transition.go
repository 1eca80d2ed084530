package domain

import "time"

// StateTransition is one append-only audit record per successful step advance.
// FromStep is nil for the first transition of a session.
type StateTransition struct {
	ID             string                 `json:"id"`
	StateID        string                 `json:"state_id"`
	FromStep       *string                `json:"from_step,omitempty"`
	ToStep         string                 `json:"to_step"`
	Channel        Channel                `json:"channel"`
	TransitionData map[string]interface{} `json:"transition_data,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}
