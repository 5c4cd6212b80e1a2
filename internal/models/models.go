package models

import "time"

type GigStatus string

const (
	GigDraft     GigStatus = "draft"
	GigActive    GigStatus = "active"
	GigPaused    GigStatus = "paused"
	GigClosed    GigStatus = "closed"
	GigCompleted GigStatus = "completed"
)

type ApplicationStatus string

const (
	ApplicationPending        ApplicationStatus = "pending"
	ApplicationPaymentPending ApplicationStatus = "payment_pending"
	ApplicationAccepted       ApplicationStatus = "accepted"
	ApplicationRejected       ApplicationStatus = "rejected"
)

type EscrowStatus string

const (
	EscrowCreated    EscrowStatus = "created"
	EscrowVerified   EscrowStatus = "verified"
	EscrowFailed     EscrowStatus = "failed"
	EscrowExpired    EscrowStatus = "expired"
	EscrowSuperseded EscrowStatus = "superseded"
)

type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
	SubscriptionNone    SubscriptionStatus = "none"
)

type Gig struct {
	ID          string
	CompanyID   string
	Title       string
	Budget      int64
	Quantity    int
	FilledCount int
	Status      GigStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Application struct {
	ID           string
	GigID        string
	FreelancerID string
	Status       ApplicationStatus
	Iterations   int
	IsPriority   bool
	Reason       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EscrowOrder is one acceptance attempt. A retried acceptance supersedes the
// prior live order and creates a new one; orders are never deleted.
type EscrowOrder struct {
	ID               string
	ApplicationID    string
	Amount           int64
	Fee              int64
	GatewayOrderID   string
	GatewayPaymentID *string
	Status           EscrowStatus
	VerifiedAt       *time.Time
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Subscription quota fields are written by the billing system; this core only
// reads them and consumes slots atomically.
type Subscription struct {
	UserID                    string
	PlanType                  string
	Duration                  string
	Status                    SubscriptionStatus
	RemainingGigSlots         int
	RemainingApplicationSlots int
	Unlimited                 bool
	PriorityEligible          bool
	FirstGigConsumed          bool
	ExpiresAt                 *time.Time
	UpdatedAt                 time.Time
}
