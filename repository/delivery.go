package repository

import (
	"context"

	"github.com/bancozim/origination/domain"
)

// DeliveryRepository stores courier fulfillment records for completed
// applications.
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.DeliveryTracking) (*domain.DeliveryTracking, error)
	GetByStateID(ctx context.Context, stateID string) (*domain.DeliveryTracking, error)
	UpdateStatus(ctx context.Context, id string, status domain.DeliveryStatus) (*domain.DeliveryTracking, error)
}
