package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/repository"
)

type deliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository returns a Postgres-backed DeliveryRepository.
func NewDeliveryRepository(pool *pgxpool.Pool) repository.DeliveryRepository {
	return &deliveryRepository{pool: pool}
}

func (r *deliveryRepository) Create(ctx context.Context, delivery *domain.DeliveryTracking) (*domain.DeliveryTracking, error) {
	if delivery == nil || delivery.StateID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	if delivery.Status == "" {
		delivery.Status = domain.DeliveryPending
	}

	const query = `
	INSERT INTO delivery_tracking (id, state_id, courier_type, status)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		delivery.ID,
		delivery.StateID,
		delivery.CourierType,
		string(delivery.Status),
	).Scan(&delivery.CreatedAt, &delivery.UpdatedAt); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (r *deliveryRepository) GetByStateID(ctx context.Context, stateID string) (*domain.DeliveryTracking, error) {
	const query = `
	SELECT id, state_id, courier_type, status, created_at, updated_at, delivered_at
	FROM delivery_tracking
	WHERE state_id = $1
	ORDER BY created_at DESC
	LIMIT 1
	`
	return scanDelivery(r.pool.QueryRow(ctx, query, stateID))
}

func (r *deliveryRepository) UpdateStatus(ctx context.Context, id string, status domain.DeliveryStatus) (*domain.DeliveryTracking, error) {
	const query = `
	UPDATE delivery_tracking
	SET status = $2,
		delivered_at = CASE WHEN $2 = 'delivered' THEN NOW() ELSE delivered_at END,
		updated_at = NOW()
	WHERE id = $1
	RETURNING id, state_id, courier_type, status, created_at, updated_at, delivered_at
	`
	return scanDelivery(r.pool.QueryRow(ctx, query, id, string(status)))
}

func scanDelivery(row interface {
	Scan(dest ...interface{}) error
}) (*domain.DeliveryTracking, error) {
	var (
		delivery domain.DeliveryTracking
		status   string
	)
	if err := row.Scan(
		&delivery.ID,
		&delivery.StateID,
		&delivery.CourierType,
		&status,
		&delivery.CreatedAt,
		&delivery.UpdatedAt,
		&delivery.DeliveredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, err
	}
	delivery.Status = domain.DeliveryStatus(status)
	return &delivery, nil
}
