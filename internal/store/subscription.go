package store

import (
	"context"
	"time"

	"UnjobCore/internal/models"
)

func (s *Store) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT user_id, plan_type, duration, status, remaining_gig_slots,
			remaining_application_slots, unlimited, priority_eligible,
			first_gig_consumed, expires_at, updated_at
		FROM subscriptions WHERE user_id=$1
	`, userID)

	var sub models.Subscription
	err := row.Scan(
		&sub.UserID,
		&sub.PlanType,
		&sub.Duration,
		&sub.Status,
		&sub.RemainingGigSlots,
		&sub.RemainingApplicationSlots,
		&sub.Unlimited,
		&sub.PriorityEligible,
		&sub.FirstGigConsumed,
		&sub.ExpiresAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ConsumeFirstGig claims the one-time free gig entitlement. The flag flip is
// the guard: two concurrent creations claim it at most once.
func (s *Store) ConsumeFirstGig(ctx context.Context, companyID string) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE subscriptions
		SET first_gig_consumed=true, updated_at=now()
		WHERE user_id=$1 AND first_gig_consumed=false
	`, companyID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ConsumeGigSlot authorizes and decrements in one statement. Unlimited plans
// pass the guard without decrementing.
func (s *Store) ConsumeGigSlot(ctx context.Context, companyID string) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE subscriptions
		SET remaining_gig_slots = CASE WHEN unlimited THEN remaining_gig_slots ELSE remaining_gig_slots - 1 END,
		    updated_at=now()
		WHERE user_id=$1 AND status='active' AND (unlimited OR remaining_gig_slots > 0)
	`, companyID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) ConsumeApplicationSlot(ctx context.Context, freelancerID string) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE subscriptions
		SET remaining_application_slots = CASE WHEN unlimited THEN remaining_application_slots ELSE remaining_application_slots - 1 END,
		    updated_at=now()
		WHERE user_id=$1 AND status='active' AND (unlimited OR remaining_application_slots > 0)
	`, freelancerID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ExpireSubscriptions is the local lapse guard; the billing system remains
// the writer for renewals and quota resets.
func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE subscriptions
		SET status='expired', updated_at=now()
		WHERE status='active' AND expires_at IS NOT NULL AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
