package store

import (
	"context"

	"UnjobCore/internal/models"
)

// CreateApplication inserts an application, enforcing at most one per
// (gig, freelancer) pair via ON CONFLICT DO NOTHING. Returns false when the
// pair already applied.
func (s *Store) CreateApplication(ctx context.Context, app *models.Application) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		INSERT INTO applications (id, gig_id, freelancer_id, status, iterations, is_priority, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (gig_id, freelancer_id) DO NOTHING
	`,
		app.ID,
		app.GigID,
		app.FreelancerID,
		app.Status,
		app.Iterations,
		app.IsPriority,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) GetApplication(ctx context.Context, gigID, freelancerID string) (*models.Application, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, gig_id, freelancer_id, status, iterations, is_priority, reason, created_at, updated_at
		FROM applications WHERE gig_id=$1 AND freelancer_id=$2
	`, gigID, freelancerID)
	return scanApplication(row)
}

func (s *Store) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, gig_id, freelancer_id, status, iterations, is_priority, reason, created_at, updated_at
		FROM applications WHERE id=$1
	`, id)
	return scanApplication(row)
}

// TransitionApplication moves an application from one status to another with
// the current status as the guard. Returns false when another writer won the
// race and the application is no longer in the expected status.
func (s *Store) TransitionApplication(ctx context.Context, id string, from, to models.ApplicationStatus, reason *string) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE applications
		SET status=$3, reason=COALESCE($4, reason), updated_at=now()
		WHERE id=$1 AND status=$2
	`, id, from, to, reason)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID,
		&app.GigID,
		&app.FreelancerID,
		&app.Status,
		&app.Iterations,
		&app.IsPriority,
		&app.Reason,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}
