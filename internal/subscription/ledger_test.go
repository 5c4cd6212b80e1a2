package subscription_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"UnjobCore/internal/models"
	"UnjobCore/internal/storetest"
	"UnjobCore/internal/subscription"
)

func newLedger() (*subscription.Ledger, *storetest.MemStore) {
	st := storetest.NewMemStore()
	return &subscription.Ledger{Store: st}, st
}

func TestAuthorizeGigCreation_FirstGigFree(t *testing.T) {
	ledger, st := newLedger()
	ctx := context.Background()
	st.SeedSubscription(models.Subscription{UserID: "co1", Status: models.SubscriptionNone})

	d, err := ledger.AuthorizeGigCreation(ctx, "co1")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !d.Allowed || !d.FirstGigFree {
		t.Fatalf("first gig should be free, got %+v", d)
	}

	d, err = ledger.AuthorizeGigCreation(ctx, "co1")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed {
		t.Fatal("second gig without active plan should be denied")
	}
	if d.Reason != subscription.ReasonNoActiveSubscription {
		t.Errorf("reason = %s, want NO_ACTIVE_SUBSCRIPTION", d.Reason)
	}
	if !d.RedirectToBilling {
		t.Error("denial should carry the billing redirect signal")
	}
}

func TestAuthorizeGigCreation_FirstGigFreeClaimedOnce(t *testing.T) {
	ledger, st := newLedger()
	st.SeedSubscription(models.Subscription{UserID: "co1", Status: models.SubscriptionNone})

	var free atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := ledger.AuthorizeGigCreation(context.Background(), "co1")
			if err != nil {
				t.Errorf("authorize failed: %v", err)
				return
			}
			if d.Allowed && d.FirstGigFree {
				free.Add(1)
			}
		}()
	}
	wg.Wait()

	if free.Load() != 1 {
		t.Errorf("free-gig claims = %d, want exactly 1", free.Load())
	}
}

func TestAuthorizeGigCreation_QuotaConsumedToExhaustion(t *testing.T) {
	ledger, st := newLedger()
	ctx := context.Background()
	st.SeedSubscription(models.Subscription{
		UserID:            "co1",
		Status:            models.SubscriptionActive,
		RemainingGigSlots: 2,
		FirstGigConsumed:  true,
	})

	for i := 0; i < 2; i++ {
		d, err := ledger.AuthorizeGigCreation(ctx, "co1")
		if err != nil || !d.Allowed {
			t.Fatalf("creation %d should be allowed: %+v %v", i+1, d, err)
		}
	}

	d, err := ledger.AuthorizeGigCreation(ctx, "co1")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != subscription.ReasonQuotaExhausted {
		t.Errorf("exhausted quota: got %+v, want QUOTA_EXHAUSTED denial", d)
	}
}

func TestAuthorizeGigCreation_Unlimited(t *testing.T) {
	ledger, st := newLedger()
	ctx := context.Background()
	st.SeedSubscription(models.Subscription{
		UserID:           "co1",
		Status:           models.SubscriptionActive,
		Unlimited:        true,
		FirstGigConsumed: true,
	})

	for i := 0; i < 5; i++ {
		d, err := ledger.AuthorizeGigCreation(ctx, "co1")
		if err != nil || !d.Allowed {
			t.Fatalf("unlimited plan creation %d denied: %+v %v", i+1, d, err)
		}
	}
}

func TestAuthorizeApplication_Priority(t *testing.T) {
	ledger, st := newLedger()
	ctx := context.Background()
	st.SeedSubscription(models.Subscription{
		UserID:                    "fl1",
		Status:                    models.SubscriptionActive,
		RemainingApplicationSlots: 1,
		PriorityEligible:          true,
	})

	d, err := ledger.AuthorizeApplication(ctx, "fl1")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !d.Allowed || !d.Priority {
		t.Errorf("active paid plan should allow with priority, got %+v", d)
	}

	d, err = ledger.AuthorizeApplication(ctx, "fl1")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != subscription.ReasonQuotaExhausted {
		t.Errorf("exhausted application quota: got %+v", d)
	}
}

func TestAuthorizeApplication_ExpiredPlan(t *testing.T) {
	ledger, st := newLedger()
	st.SeedSubscription(models.Subscription{
		UserID:                    "fl1",
		Status:                    models.SubscriptionExpired,
		RemainingApplicationSlots: 5,
	})

	d, err := ledger.AuthorizeApplication(context.Background(), "fl1")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != subscription.ReasonNoActiveSubscription {
		t.Errorf("expired plan: got %+v, want NO_ACTIVE_SUBSCRIPTION denial", d)
	}
}
