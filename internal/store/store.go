// Package store is the persistence layer. Every state mutation that guards an
// invariant (slot capacity, application status, escrow finalization,
// subscription quota) is a single conditional UPDATE checked through
// RowsAffected, so concurrent writers serialize on the row itself.
package store

import (
	"context"

	"UnjobCore/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) CreateGig(ctx context.Context, gig *models.Gig) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO gigs (id, company_id, title, budget, quantity, filled_count, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		gig.ID,
		gig.CompanyID,
		gig.Title,
		gig.Budget,
		gig.Quantity,
		gig.FilledCount,
		gig.Status,
		gig.CreatedAt,
		gig.UpdatedAt,
	)
	return err
}

func (s *Store) GetGig(ctx context.Context, gigID string) (*models.Gig, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, company_id, title, budget, quantity, filled_count, status, created_at, updated_at
		FROM gigs WHERE id=$1
	`, gigID)

	var gig models.Gig
	err := row.Scan(
		&gig.ID,
		&gig.CompanyID,
		&gig.Title,
		&gig.Budget,
		&gig.Quantity,
		&gig.FilledCount,
		&gig.Status,
		&gig.CreatedAt,
		&gig.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &gig, nil
}

// ReserveSlot increments filled_count while the gig is active and below
// capacity, flipping the gig to completed when the last slot fills.
func (s *Store) ReserveSlot(ctx context.Context, gigID string) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE gigs
		SET filled_count = filled_count + 1,
		    status = CASE WHEN filled_count + 1 = quantity THEN 'completed' ELSE status END,
		    updated_at = now()
		WHERE id=$1 AND status='active' AND filled_count < quantity
	`, gigID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ReleaseSlot is the compensating decrement for a reservation whose payment
// failed or expired. A gig completed by this reservation reopens.
func (s *Store) ReleaseSlot(ctx context.Context, gigID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE gigs
		SET filled_count = filled_count - 1,
		    status = CASE WHEN status = 'completed' THEN 'active' ELSE status END,
		    updated_at = now()
		WHERE id=$1 AND filled_count > 0
	`, gigID)
	return err
}

func (s *Store) CloseGig(ctx context.Context, gigID, companyID string) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE gigs
		SET status='closed', updated_at=now()
		WHERE id=$1 AND company_id=$2 AND status IN ('draft','active','paused')
	`, gigID, companyID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
