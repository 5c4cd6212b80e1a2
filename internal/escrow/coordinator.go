// Package escrow coordinates the payment leg of an acceptance: open a
// gateway order, verify the signed confirmation, finalize the application.
// Non-success paths run one compensating step that releases the slot.
package escrow

import (
	"context"
	"errors"
	"log"
	"time"

	"UnjobCore/internal/models"
	"UnjobCore/internal/notify"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidSignature = errors.New("invalid gateway signature")
	ErrOrderNotFound    = errors.New("escrow order not found")
	ErrStateConflict    = errors.New("application state conflict")
)

type Store interface {
	CreateEscrowOrder(ctx context.Context, order *models.EscrowOrder) error
	GetEscrowOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*models.EscrowOrder, error)
	SupersedeOpenOrders(ctx context.Context, applicationID string) error
	FinalizeEscrowOrder(ctx context.Context, id string, to models.EscrowStatus, gatewayPaymentID *string, verifiedAt *time.Time) (bool, error)
	ListDueEscrowOrders(ctx context.Context, now time.Time) ([]*models.EscrowOrder, error)
	GetApplicationByID(ctx context.Context, id string) (*models.Application, error)
	TransitionApplication(ctx context.Context, id string, from, to models.ApplicationStatus, reason *string) (bool, error)
	GetGig(ctx context.Context, gigID string) (*models.Gig, error)
	ReleaseSlot(ctx context.Context, gigID string) error
}

type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (string, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type Coordinator struct {
	Store    Store
	Gateway  Gateway
	Events   notify.Publisher
	Fees     FeePolicy
	OrderTTL time.Duration
}

type VerifyResult struct {
	OrderID string
	// Idempotent marks a repeat verify of an already-verified order.
	Idempotent bool
	// Superseded marks a stale verify for an order that was retired (failed,
	// expired or replaced) before the confirmation arrived.
	Superseded bool
}

// Initiate opens an escrow order for one acceptance attempt. Prior live
// orders for the application are superseded first, so at most one order per
// application can reach verified. A zero total skips the gateway round trip
// and finalizes immediately.
func (c *Coordinator) Initiate(ctx context.Context, app *models.Application, gig *models.Gig) (*models.EscrowOrder, error) {
	if err := c.Store.SupersedeOpenOrders(ctx, app.ID); err != nil {
		return nil, err
	}

	total := c.Fees.Total(gig.Budget)
	now := time.Now().UTC()
	order := &models.EscrowOrder{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		Amount:        total,
		Fee:           c.Fees.Fee(gig.Budget),
		Status:        models.EscrowCreated,
		ExpiresAt:     now.Add(c.OrderTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if total == 0 {
		order.GatewayOrderID = "free_" + order.ID
		order.Status = models.EscrowVerified
		order.VerifiedAt = &now
		if err := c.Store.CreateEscrowOrder(ctx, order); err != nil {
			return nil, err
		}
		if err := c.finalizeAcceptance(ctx, order); err != nil {
			return nil, err
		}
		return order, nil
	}

	gatewayOrderID, err := c.Gateway.CreateOrder(ctx, total, app.ID)
	if err != nil {
		return nil, err
	}
	order.GatewayOrderID = gatewayOrderID

	if err := c.Store.CreateEscrowOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Verify handles the gateway confirmation callback. It is idempotent per
// (gateway order id, payment id): only the first call against a live order
// finalizes the acceptance; repeats and stale confirmations are no-op
// successes. A repeat against a verified order still re-attempts the
// application transition, so a crash between the order flip and the
// transition heals on the gateway's next retry.
func (c *Coordinator) Verify(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (VerifyResult, error) {
	if !c.Gateway.VerifySignature(gatewayOrderID, gatewayPaymentID, signature) {
		return VerifyResult{}, ErrInvalidSignature
	}

	order, err := c.Store.GetEscrowOrderByGatewayID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("verify for unknown gateway order %s", gatewayOrderID)
			return VerifyResult{}, ErrOrderNotFound
		}
		return VerifyResult{}, err
	}

	if res, done, err := c.settled(ctx, order, gatewayPaymentID); done {
		return res, err
	}

	now := time.Now().UTC()
	won, err := c.Store.FinalizeEscrowOrder(ctx, order.ID, models.EscrowVerified, &gatewayPaymentID, &now)
	if err != nil {
		return VerifyResult{}, err
	}
	if !won {
		// Lost to a concurrent verify or the expiry sweep; re-read to report
		// which.
		order, err = c.Store.GetEscrowOrderByGatewayID(ctx, gatewayOrderID)
		if err != nil {
			return VerifyResult{}, err
		}
		if res, done, err := c.settled(ctx, order, gatewayPaymentID); done {
			return res, err
		}
		return VerifyResult{}, ErrStateConflict
	}

	order.Status = models.EscrowVerified
	order.GatewayPaymentID = &gatewayPaymentID
	order.VerifiedAt = &now
	if err := c.finalizeAcceptance(ctx, order); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{OrderID: order.ID}, nil
}

// settled resolves a confirmation against an order that already left created.
// The verified branch re-runs finalizeAcceptance: the transition guard makes
// it exactly-once, and a retry after a crash mid-finalize completes the
// acceptance instead of reporting a hollow success.
func (c *Coordinator) settled(ctx context.Context, order *models.EscrowOrder, gatewayPaymentID string) (VerifyResult, bool, error) {
	switch order.Status {
	case models.EscrowVerified:
		if order.GatewayPaymentID == nil || *order.GatewayPaymentID != gatewayPaymentID {
			stored := ""
			if order.GatewayPaymentID != nil {
				stored = *order.GatewayPaymentID
			}
			log.Printf("invariant violation: order %s verified with payment %q but confirmation carries %q", order.ID, stored, gatewayPaymentID)
		}
		if err := c.finalizeAcceptance(ctx, order); err != nil {
			return VerifyResult{}, true, err
		}
		return VerifyResult{OrderID: order.ID, Idempotent: true}, true, nil
	case models.EscrowFailed, models.EscrowExpired, models.EscrowSuperseded:
		log.Printf("superseded verify: order %s already %s", order.ID, order.Status)
		return VerifyResult{OrderID: order.ID, Superseded: true}, true, nil
	}
	return VerifyResult{}, false, nil
}

func (c *Coordinator) finalizeAcceptance(ctx context.Context, order *models.EscrowOrder) error {
	ok, err := c.Store.TransitionApplication(ctx, order.ApplicationID, models.ApplicationPaymentPending, models.ApplicationAccepted, nil)
	if err != nil {
		return err
	}
	if !ok {
		app, err := c.Store.GetApplicationByID(ctx, order.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status == models.ApplicationAccepted {
			// An earlier verify already finished the job.
			return nil
		}
		log.Printf("invariant violation: order %s verified but application %s is %s", order.ID, order.ApplicationID, app.Status)
		return ErrStateConflict
	}

	app, err := c.Store.GetApplicationByID(ctx, order.ApplicationID)
	if err != nil {
		log.Printf("accepted event lookup failed application=%s: %v", order.ApplicationID, err)
		return nil
	}
	gig, err := c.Store.GetGig(ctx, app.GigID)
	if err != nil {
		log.Printf("accepted event lookup failed gig=%s: %v", app.GigID, err)
		return nil
	}
	c.Events.Publish(ctx, notify.NewEvent(notify.TypeApplicationAccepted, app.ID, gig.ID, gig.CompanyID, app.FreelancerID))
	return nil
}

// ExpireDue retires every escrow order past its deadline and runs the
// compensating release for each. Called by the background sweep.
func (c *Coordinator) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	orders, err := c.Store.ListDueEscrowOrders(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range orders {
		won, err := c.Store.FinalizeEscrowOrder(ctx, order.ID, models.EscrowExpired, nil, nil)
		if err != nil {
			log.Printf("expire order %s failed: %v", order.ID, err)
			continue
		}
		if !won {
			continue
		}
		expired++
		if err := c.compensate(ctx, order); err != nil {
			log.Printf("compensate order %s failed: %v", order.ID, err)
		}
	}
	return expired, nil
}

// compensate undoes the optimistic reservation after a payment did not
// complete: the application returns to pending (company may retry) and the
// gig slot is released.
func (c *Coordinator) compensate(ctx context.Context, order *models.EscrowOrder) error {
	app, err := c.Store.GetApplicationByID(ctx, order.ApplicationID)
	if err != nil {
		return err
	}

	ok, err := c.Store.TransitionApplication(ctx, app.ID, models.ApplicationPaymentPending, models.ApplicationPending, nil)
	if err != nil {
		return err
	}
	if !ok {
		// Already moved on (a retried acceptance superseded this order); the
		// slot belongs to the newer attempt.
		return nil
	}

	if err := c.Store.ReleaseSlot(ctx, app.GigID); err != nil {
		return err
	}

	gig, err := c.Store.GetGig(ctx, app.GigID)
	if err != nil {
		log.Printf("payment_failed event lookup failed gig=%s: %v", app.GigID, err)
		return nil
	}
	c.Events.Publish(ctx, notify.NewEvent(notify.TypeApplicationPaymentFailed, app.ID, gig.ID, gig.CompanyID, app.FreelancerID))
	return nil
}
