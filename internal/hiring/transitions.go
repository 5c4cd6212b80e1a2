// Package hiring drives the application workflow between a gig and its
// applicants.
//
// Valid status graph:
//
//	pending ──► payment_pending ──► accepted
//	   │               │
//	   │               └──► pending   (payment failed or expired; retry)
//	   └──► rejected
//
// accepted and rejected are terminal states.
package hiring

import (
	"fmt"

	"UnjobCore/internal/models"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationPending:        {models.ApplicationPaymentPending, models.ApplicationRejected},
	models.ApplicationPaymentPending: {models.ApplicationAccepted, models.ApplicationPending},
	// accepted and rejected are terminal — no outgoing transitions
}

// ParseStatus converts a raw string to an ApplicationStatus, returning an
// error for unknown values.
func ParseStatus(s string) (models.ApplicationStatus, error) {
	st := models.ApplicationStatus(s)
	switch st {
	case models.ApplicationPending, models.ApplicationPaymentPending, models.ApplicationAccepted, models.ApplicationRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to models.ApplicationStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for statuses with no outgoing transitions.
func IsTerminal(s models.ApplicationStatus) bool {
	_, ok := validTransitions[s]
	return !ok
}
