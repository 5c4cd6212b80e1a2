package hiring_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"UnjobCore/internal/escrow"
	"UnjobCore/internal/gateway"
	"UnjobCore/internal/hiring"
	"UnjobCore/internal/models"
	"UnjobCore/internal/storetest"
	"UnjobCore/internal/subscription"
)

const testSecret = "test_secret"

type fakeGateway struct {
	n          atomic.Int64
	failCreate bool
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, receipt string) (string, error) {
	if g.failCreate {
		return "", errors.New("gateway unreachable")
	}
	return fmt.Sprintf("order_%d", g.n.Add(1)), nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return gateway.VerifySignature(testSecret, orderID, paymentID, signature)
}

type env struct {
	store       *storetest.MemStore
	events      *storetest.EventRecorder
	gateway     *fakeGateway
	coordinator *escrow.Coordinator
	svc         *hiring.Service
}

func newEnv() *env {
	st := storetest.NewMemStore()
	events := &storetest.EventRecorder{}
	gw := &fakeGateway{}
	coordinator := &escrow.Coordinator{
		Store:    st,
		Gateway:  gw,
		Events:   events,
		Fees:     escrow.FeePolicy{Bps: 500},
		OrderTTL: 30 * time.Minute,
	}
	svc := &hiring.Service{
		Store:  st,
		Ledger: &subscription.Ledger{Store: st},
		Escrow: coordinator,
		Events: events,
	}
	return &env{store: st, events: events, gateway: gw, coordinator: coordinator, svc: svc}
}

func (e *env) seedGig(companyID string, budget int64, quantity int) *models.Gig {
	gig := &models.Gig{
		ID:        fmt.Sprintf("gig-%s-%d", companyID, quantity),
		CompanyID: companyID,
		Budget:    budget,
		Quantity:  quantity,
		Status:    models.GigActive,
	}
	_ = e.store.CreateGig(context.Background(), gig)
	return gig
}

func (e *env) seedFreelancer(id string, priority bool) {
	e.store.SeedSubscription(models.Subscription{
		UserID:                    id,
		Status:                    models.SubscriptionActive,
		RemainingApplicationSlots: 10,
		PriorityEligible:          priority,
	})
}

func TestCreateGig_FirstGigFreeThenDenied(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.store.SeedSubscription(models.Subscription{UserID: "co1", Status: models.SubscriptionNone})

	if _, err := e.svc.CreateGig(ctx, "co1", "logo design", 1000, 1); err != nil {
		t.Fatalf("first gig should be free: %v", err)
	}

	_, err := e.svc.CreateGig(ctx, "co1", "another gig", 1000, 1)
	var authErr *hiring.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("second gig without subscription: got %v, want AuthorizationError", err)
	}
	if authErr.Reason != subscription.ReasonNoActiveSubscription {
		t.Errorf("reason = %s, want NO_ACTIVE_SUBSCRIPTION", authErr.Reason)
	}
	if !authErr.RedirectToBilling {
		t.Error("denial should carry the billing redirect signal")
	}
}

func TestApply_CapturesPriorityImmutably(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 1)
	e.seedFreelancer("fl1", true)

	app, err := e.svc.Apply(ctx, gig.ID, "fl1", 3)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !app.IsPriority {
		t.Fatal("active paid plan should set isPriority")
	}

	// Plan lapses before the company reviews; the flag must not change.
	e.store.SeedSubscription(models.Subscription{UserID: "fl1", Status: models.SubscriptionExpired})
	stored, err := e.store.GetApplication(ctx, gig.ID, "fl1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !stored.IsPriority {
		t.Error("isPriority must survive plan expiry")
	}
}

func TestApply_Duplicate(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 2)
	e.seedFreelancer("fl1", false)

	if _, err := e.svc.Apply(ctx, gig.ID, "fl1", 1); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, err := e.svc.Apply(ctx, gig.ID, "fl1", 1); !errors.Is(err, hiring.ErrAlreadyApplied) {
		t.Errorf("duplicate apply: got %v, want ErrAlreadyApplied", err)
	}
}

func TestApply_WithoutSubscription(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 1)

	_, err := e.svc.Apply(ctx, gig.ID, "fl1", 1)
	var authErr *hiring.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %v, want AuthorizationError", err)
	}
	if authErr.Reason != subscription.ReasonNoActiveSubscription {
		t.Errorf("reason = %s, want NO_ACTIVE_SUBSCRIPTION", authErr.Reason)
	}
}

func TestApply_InvalidIterations(t *testing.T) {
	e := newEnv()
	gig := e.seedGig("co1", 1000, 1)
	e.seedFreelancer("fl1", false)

	for _, n := range []int{0, -1, 21} {
		if _, err := e.svc.Apply(context.Background(), gig.ID, "fl1", n); !errors.Is(err, hiring.ErrInvalidIterations) {
			t.Errorf("iterations=%d: got %v, want ErrInvalidIterations", n, err)
		}
	}
}

// Scenario: single-slot gig, two applicants. Accepting the first holds the
// slot through payment_pending; accepting the second is refused with GIG_FULL
// until the payment outcome is known. Verification completes the first
// acceptance and the gig.
func TestAccept_SingleSlotLifecycle(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 1)
	e.seedFreelancer("fl1", false)
	e.seedFreelancer("fl2", false)

	if _, err := e.svc.Apply(ctx, gig.ID, "fl1", 1); err != nil {
		t.Fatalf("fl1 apply failed: %v", err)
	}
	if _, err := e.svc.Apply(ctx, gig.ID, "fl2", 1); err != nil {
		t.Fatalf("fl2 apply failed: %v", err)
	}

	res, err := e.svc.Accept(ctx, "co1", gig.ID, "fl1")
	if err != nil {
		t.Fatalf("accept fl1 failed: %v", err)
	}
	if !res.RequiresPayment || res.GatewayOrderID == "" {
		t.Fatalf("accept should require payment, got %+v", res)
	}

	if _, err := e.svc.Accept(ctx, "co1", gig.ID, "fl2"); !errors.Is(err, hiring.ErrGigFull) {
		t.Fatalf("accept fl2 before payment: got %v, want ErrGigFull", err)
	}

	sig := gateway.Sign(testSecret, res.GatewayOrderID, "pay_1")
	if _, err := e.coordinator.Verify(ctx, res.GatewayOrderID, "pay_1", sig); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	app, _ := e.store.GetApplication(ctx, gig.ID, "fl1")
	if app.Status != models.ApplicationAccepted {
		t.Errorf("application status = %s, want accepted", app.Status)
	}
	stored, _ := e.store.GetGig(ctx, gig.ID)
	if stored.Status != models.GigCompleted || stored.FilledCount != 1 {
		t.Errorf("gig = %s filled=%d, want completed filled=1", stored.Status, stored.FilledCount)
	}
	if n := e.events.CountByType("application.accepted"); n != 1 {
		t.Errorf("accepted events = %d, want 1", n)
	}
}

func TestAccept_ConcurrentSingleSlot(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 1)

	const n = 8
	for i := 0; i < n; i++ {
		fl := fmt.Sprintf("fl%d", i)
		e.seedFreelancer(fl, false)
		if _, err := e.svc.Apply(ctx, gig.ID, fl, 1); err != nil {
			t.Fatalf("apply %s failed: %v", fl, err)
		}
	}

	var wg sync.WaitGroup
	var accepted, full atomic.Int64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.svc.Accept(ctx, "co1", gig.ID, fmt.Sprintf("fl%d", i))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, hiring.ErrGigFull):
				full.Add(1)
			default:
				t.Errorf("unexpected accept error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted.Load())
	}
	if full.Load() != n-1 {
		t.Errorf("GIG_FULL = %d, want %d", full.Load(), n-1)
	}
	stored, _ := e.store.GetGig(ctx, gig.ID)
	if stored.FilledCount != 1 {
		t.Errorf("filledCount = %d, want 1", stored.FilledCount)
	}
}

func TestAccept_NotOwner(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 1)
	e.seedFreelancer("fl1", false)
	if _, err := e.svc.Apply(ctx, gig.ID, "fl1", 1); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if _, err := e.svc.Accept(ctx, "co2", gig.ID, "fl1"); !errors.Is(err, hiring.ErrNotOwner) {
		t.Errorf("got %v, want ErrNotOwner", err)
	}
}

func TestAccept_PaymentInitFailureCompensates(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 1)
	e.seedFreelancer("fl1", false)
	if _, err := e.svc.Apply(ctx, gig.ID, "fl1", 1); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	e.gateway.failCreate = true
	if _, err := e.svc.Accept(ctx, "co1", gig.ID, "fl1"); !errors.Is(err, hiring.ErrPaymentInit) {
		t.Fatalf("got %v, want ErrPaymentInit", err)
	}

	app, _ := e.store.GetApplication(ctx, gig.ID, "fl1")
	if app.Status != models.ApplicationPending {
		t.Errorf("application status = %s, want pending after compensation", app.Status)
	}
	stored, _ := e.store.GetGig(ctx, gig.ID)
	if stored.FilledCount != 0 {
		t.Errorf("filledCount = %d, want 0 after compensation", stored.FilledCount)
	}
	if n := e.events.CountByType("application.payment_failed"); n != 1 {
		t.Errorf("payment_failed events = %d, want 1", n)
	}

	// Retry after the gateway recovers.
	e.gateway.failCreate = false
	res, err := e.svc.Accept(ctx, "co1", gig.ID, "fl1")
	if err != nil {
		t.Fatalf("retry accept failed: %v", err)
	}
	if !res.RequiresPayment {
		t.Errorf("retry accept should require payment, got %+v", res)
	}
}

func TestReject(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	gig := e.seedGig("co1", 1000, 1)
	e.seedFreelancer("fl1", false)
	if _, err := e.svc.Apply(ctx, gig.ID, "fl1", 1); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if err := e.svc.Reject(ctx, "co1", gig.ID, "fl1", "budget mismatch"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	app, _ := e.store.GetApplication(ctx, gig.ID, "fl1")
	if app.Status != models.ApplicationRejected {
		t.Errorf("status = %s, want rejected", app.Status)
	}
	if app.Reason == nil || *app.Reason != "budget mismatch" {
		t.Error("reject reason should be recorded")
	}
	if n := e.events.CountByType("application.rejected"); n != 1 {
		t.Errorf("rejected events = %d, want 1", n)
	}

	// Terminal: a second reject and a later accept must both refuse.
	if err := e.svc.Reject(ctx, "co1", gig.ID, "fl1", ""); !errors.Is(err, hiring.ErrNotPending) {
		t.Errorf("second reject: got %v, want ErrNotPending", err)
	}
	if _, err := e.svc.Accept(ctx, "co1", gig.ID, "fl1"); !errors.Is(err, hiring.ErrNotPending) {
		t.Errorf("accept after reject: got %v, want ErrNotPending", err)
	}
}
