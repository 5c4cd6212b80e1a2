// Package subscription is the ledger that gates gig creation and gig
// application against the caller's plan. Authorization and quota consumption
// are one atomic store operation; the ledger never reads a count and writes
// it back separately.
package subscription

import (
	"context"
	"errors"

	"UnjobCore/internal/models"

	"github.com/jackc/pgx/v5"
)

type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonNoActiveSubscription Reason = "NO_ACTIVE_SUBSCRIPTION"
	ReasonQuotaExhausted       Reason = "QUOTA_EXHAUSTED"
)

type Decision struct {
	Allowed bool
	Reason  Reason
	// Priority is set on application authorization when the freelancer holds
	// an active paid plan. Captured once into the application.
	Priority bool
	// FirstGigFree marks the one-time free creation path; no quota was touched.
	FirstGigFree bool
	// RedirectToBilling tells the caller to surface a billing redirect, not a
	// generic error.
	RedirectToBilling bool
}

type Store interface {
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	ConsumeFirstGig(ctx context.Context, companyID string) (bool, error)
	ConsumeGigSlot(ctx context.Context, companyID string) (bool, error)
	ConsumeApplicationSlot(ctx context.Context, freelancerID string) (bool, error)
}

type Ledger struct {
	Store Store
}

// AuthorizeGigCreation checks the first-gig-free entitlement before touching
// plan quota. A denied conditional attempt is retried once before the denial
// is classified, so a transiently lost race does not misreport the reason.
func (l *Ledger) AuthorizeGigCreation(ctx context.Context, companyID string) (Decision, error) {
	claimed, err := l.Store.ConsumeFirstGig(ctx, companyID)
	if err != nil {
		return Decision{}, err
	}
	if claimed {
		return Decision{Allowed: true, FirstGigFree: true}, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := l.Store.ConsumeGigSlot(ctx, companyID)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return Decision{Allowed: true}, nil
		}
	}

	reason, err := l.classifyDenial(ctx, companyID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: false, Reason: reason, RedirectToBilling: true}, nil
}

// AuthorizeApplication consumes one application slot and reports whether the
// freelancer's plan grants priority placement at this moment.
func (l *Ledger) AuthorizeApplication(ctx context.Context, freelancerID string) (Decision, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := l.Store.ConsumeApplicationSlot(ctx, freelancerID)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			continue
		}
		sub, err := l.Store.GetSubscription(ctx, freelancerID)
		if err != nil {
			return Decision{}, err
		}
		priority := sub.Status == models.SubscriptionActive && sub.PriorityEligible
		return Decision{Allowed: true, Priority: priority}, nil
	}

	reason, err := l.classifyDenial(ctx, freelancerID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: false, Reason: reason, RedirectToBilling: true}, nil
}

func (l *Ledger) classifyDenial(ctx context.Context, userID string) (Reason, error) {
	sub, err := l.Store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReasonNoActiveSubscription, nil
		}
		return ReasonNone, err
	}
	if sub.Status != models.SubscriptionActive {
		return ReasonNoActiveSubscription, nil
	}
	return ReasonQuotaExhausted, nil
}
