package hiring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"UnjobCore/internal/models"
	"UnjobCore/internal/notify"
	"UnjobCore/internal/subscription"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrGigNotFound         = errors.New("gig not found")
	ErrGigNotOpen          = errors.New("gig is not open")
	ErrGigFull             = errors.New("gig has no free slots")
	ErrNotOwner            = errors.New("gig belongs to another company")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyApplied      = errors.New("already applied to this gig")
	ErrNotPending          = errors.New("application is not pending")
	ErrInvalidIterations   = errors.New("iterations must be within 1..20")
	ErrInvalidGig          = errors.New("budget and quantity must be positive")
	ErrPaymentInit         = errors.New("payment initiation failed")
)

// AuthorizationError is a ledger denial: an expected business outcome that
// the caller surfaces with a billing redirect, never a fault.
type AuthorizationError struct {
	Reason            subscription.Reason
	RedirectToBilling bool
}

func (e *AuthorizationError) Error() string {
	return "authorization denied: " + string(e.Reason)
}

type Store interface {
	CreateGig(ctx context.Context, gig *models.Gig) error
	GetGig(ctx context.Context, gigID string) (*models.Gig, error)
	CloseGig(ctx context.Context, gigID, companyID string) (bool, error)
	ReserveSlot(ctx context.Context, gigID string) (bool, error)
	ReleaseSlot(ctx context.Context, gigID string) error
	CreateApplication(ctx context.Context, app *models.Application) (bool, error)
	GetApplication(ctx context.Context, gigID, freelancerID string) (*models.Application, error)
	TransitionApplication(ctx context.Context, id string, from, to models.ApplicationStatus, reason *string) (bool, error)
}

type Authorizer interface {
	AuthorizeGigCreation(ctx context.Context, companyID string) (subscription.Decision, error)
	AuthorizeApplication(ctx context.Context, freelancerID string) (subscription.Decision, error)
}

type PaymentInitiator interface {
	Initiate(ctx context.Context, app *models.Application, gig *models.Gig) (*models.EscrowOrder, error)
}

type Service struct {
	Store  Store
	Ledger Authorizer
	Escrow PaymentInitiator
	Events notify.Publisher
}

type AcceptResult struct {
	// Accepted is the zero-total fast path: no payment round trip was needed
	// and the application is already accepted.
	Accepted        bool
	RequiresPayment bool
	GatewayOrderID  string
	Amount          int64
}

// CreateGig creates an active gig after the subscription ledger authorizes
// (and consumes) the creation.
func (s *Service) CreateGig(ctx context.Context, companyID, title string, budget int64, quantity int) (*models.Gig, error) {
	if budget <= 0 || quantity <= 0 {
		return nil, ErrInvalidGig
	}

	decision, err := s.Ledger.AuthorizeGigCreation(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &AuthorizationError{Reason: decision.Reason, RedirectToBilling: decision.RedirectToBilling}
	}

	now := time.Now().UTC()
	gig := &models.Gig{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Title:     title,
		Budget:    budget,
		Quantity:  quantity,
		Status:    models.GigActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateGig(ctx, gig); err != nil {
		return nil, err
	}
	return gig, nil
}

func (s *Service) GetGig(ctx context.Context, gigID string) (*models.Gig, error) {
	gig, err := s.Store.GetGig(ctx, gigID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	return gig, nil
}

func (s *Service) CloseGig(ctx context.Context, companyID, gigID string) error {
	closed, err := s.Store.CloseGig(ctx, gigID, companyID)
	if err != nil {
		return err
	}
	if !closed {
		return ErrGigNotOpen
	}
	return nil
}

// Apply creates a pending application for the freelancer, consuming one
// application slot from their plan. The priority flag is captured from the
// plan at this moment and never changes afterwards.
func (s *Service) Apply(ctx context.Context, gigID, freelancerID string, iterations int) (*models.Application, error) {
	if iterations < 1 || iterations > 20 {
		return nil, ErrInvalidIterations
	}

	gig, err := s.GetGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if gig.Status != models.GigActive {
		return nil, ErrGigNotOpen
	}

	if _, err := s.Store.GetApplication(ctx, gigID, freelancerID); err == nil {
		return nil, ErrAlreadyApplied
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	decision, err := s.Ledger.AuthorizeApplication(ctx, freelancerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &AuthorizationError{Reason: decision.Reason, RedirectToBilling: decision.RedirectToBilling}
	}

	now := time.Now().UTC()
	app := &models.Application{
		ID:           uuid.NewString(),
		GigID:        gigID,
		FreelancerID: freelancerID,
		Status:       models.ApplicationPending,
		Iterations:   iterations,
		IsPriority:   decision.Priority,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.Store.CreateApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyApplied
	}
	return app, nil
}

// Accept reserves a gig slot and moves the application into payment_pending,
// returning the gateway order the company completes out-of-band. Capacity is
// enforced solely by the slot reservation: concurrent accepts beyond quantity
// observe ErrGigFull. Failure to open the order compensates the reservation.
func (s *Service) Accept(ctx context.Context, companyID, gigID, freelancerID string) (AcceptResult, error) {
	gig, err := s.GetGig(ctx, gigID)
	if err != nil {
		return AcceptResult{}, err
	}
	if gig.CompanyID != companyID {
		return AcceptResult{}, ErrNotOwner
	}

	app, err := s.Store.GetApplication(ctx, gigID, freelancerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AcceptResult{}, ErrApplicationNotFound
		}
		return AcceptResult{}, err
	}
	if app.Status != models.ApplicationPending {
		return AcceptResult{}, ErrNotPending
	}

	reserved, err := s.Store.ReserveSlot(ctx, gigID)
	if err != nil {
		return AcceptResult{}, err
	}
	if !reserved {
		return AcceptResult{}, ErrGigFull
	}

	moved, err := s.Store.TransitionApplication(ctx, app.ID, models.ApplicationPending, models.ApplicationPaymentPending, nil)
	if err != nil || !moved {
		if relErr := s.Store.ReleaseSlot(ctx, gigID); relErr != nil {
			return AcceptResult{}, relErr
		}
		if err != nil {
			return AcceptResult{}, err
		}
		return AcceptResult{}, ErrNotPending
	}

	order, err := s.Escrow.Initiate(ctx, app, gig)
	if err != nil {
		rolledBack, trErr := s.Store.TransitionApplication(ctx, app.ID, models.ApplicationPaymentPending, models.ApplicationPending, nil)
		if trErr != nil {
			return AcceptResult{}, trErr
		}
		if relErr := s.Store.ReleaseSlot(ctx, gigID); relErr != nil {
			return AcceptResult{}, relErr
		}
		if rolledBack {
			s.Events.Publish(ctx, notify.NewEvent(notify.TypeApplicationPaymentFailed, app.ID, gig.ID, gig.CompanyID, app.FreelancerID))
		}
		return AcceptResult{}, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	if order.Status == models.EscrowVerified {
		return AcceptResult{Accepted: true}, nil
	}
	return AcceptResult{
		RequiresPayment: true,
		GatewayOrderID:  order.GatewayOrderID,
		Amount:          order.Amount,
	}, nil
}

// Reject moves a pending application to rejected with an optional reason and
// emits the rejected event.
func (s *Service) Reject(ctx context.Context, companyID, gigID, freelancerID, reason string) error {
	gig, err := s.GetGig(ctx, gigID)
	if err != nil {
		return err
	}
	if gig.CompanyID != companyID {
		return ErrNotOwner
	}

	app, err := s.Store.GetApplication(ctx, gigID, freelancerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrApplicationNotFound
		}
		return err
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	moved, err := s.Store.TransitionApplication(ctx, app.ID, models.ApplicationPending, models.ApplicationRejected, reasonPtr)
	if err != nil {
		return err
	}
	if !moved {
		return ErrNotPending
	}

	s.Events.Publish(ctx, notify.NewEvent(notify.TypeApplicationRejected, app.ID, gig.ID, gig.CompanyID, app.FreelancerID))
	return nil
}
