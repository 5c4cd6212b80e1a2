package store

import (
	"context"
	"time"

	"UnjobCore/internal/models"
)

func (s *Store) CreateEscrowOrder(ctx context.Context, order *models.EscrowOrder) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO escrow_orders (
			id, application_id, amount, fee, gateway_order_id,
			gateway_payment_id, status, verified_at, expires_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		order.ID,
		order.ApplicationID,
		order.Amount,
		order.Fee,
		order.GatewayOrderID,
		order.GatewayPaymentID,
		order.Status,
		order.VerifiedAt,
		order.ExpiresAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

func (s *Store) GetEscrowOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*models.EscrowOrder, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, application_id, amount, fee, gateway_order_id,
			gateway_payment_id, status, verified_at, expires_at, created_at, updated_at
		FROM escrow_orders WHERE gateway_order_id=$1
	`, gatewayOrderID)

	var order models.EscrowOrder
	err := row.Scan(
		&order.ID,
		&order.ApplicationID,
		&order.Amount,
		&order.Fee,
		&order.GatewayOrderID,
		&order.GatewayPaymentID,
		&order.Status,
		&order.VerifiedAt,
		&order.ExpiresAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SupersedeOpenOrders retires any still-live order for the application before
// a retried acceptance creates a fresh one. Superseded orders stay on record.
func (s *Store) SupersedeOpenOrders(ctx context.Context, applicationID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE escrow_orders
		SET status='superseded', updated_at=now()
		WHERE application_id=$1 AND status='created'
	`, applicationID)
	return err
}

// FinalizeEscrowOrder moves an order out of created into a terminal status.
// The status guard makes verification idempotent: a second verify, an expiry
// sweep racing a callback, or a stale callback after compensation all affect
// zero rows.
func (s *Store) FinalizeEscrowOrder(ctx context.Context, id string, to models.EscrowStatus, gatewayPaymentID *string, verifiedAt *time.Time) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE escrow_orders
		SET status=$2, gateway_payment_id=COALESCE($3, gateway_payment_id),
		    verified_at=$4, updated_at=now()
		WHERE id=$1 AND status='created'
	`, id, to, gatewayPaymentID, verifiedAt)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) ListDueEscrowOrders(ctx context.Context, now time.Time) ([]*models.EscrowOrder, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, application_id, amount, fee, gateway_order_id,
			gateway_payment_id, status, verified_at, expires_at, created_at, updated_at
		FROM escrow_orders
		WHERE status='created' AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.EscrowOrder
	for rows.Next() {
		var order models.EscrowOrder
		if err := rows.Scan(
			&order.ID,
			&order.ApplicationID,
			&order.Amount,
			&order.Fee,
			&order.GatewayOrderID,
			&order.GatewayPaymentID,
			&order.Status,
			&order.VerifiedAt,
			&order.ExpiresAt,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, &order)
	}
	return orders, rows.Err()
}
