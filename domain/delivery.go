package domain

import "time"

// DeliveryStatus tracks a physical fulfillment through the courier pipeline.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryDispatched DeliveryStatus = "dispatched"
	DeliveryInTransit  DeliveryStatus = "in_transit"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryFailed     DeliveryStatus = "failed"
	DeliveryReturned   DeliveryStatus = "returned"
)

// DeliveryTracking is a separate aggregate referencing an ApplicationState.
// The status engine reacts to its changes but does not own its schema.
type DeliveryTracking struct {
	ID          string         `json:"id"`
	StateID     string         `json:"state_id"`
	CourierType string         `json:"courier_type"`
	Status      DeliveryStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
}
