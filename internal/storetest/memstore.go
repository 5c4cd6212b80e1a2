// Package storetest provides an in-memory store with the same conditional
// semantics as the SQL layer, for exercising the services without a database.
package storetest

import (
	"context"
	"sync"
	"time"

	"UnjobCore/internal/models"
	"UnjobCore/internal/notify"

	"github.com/jackc/pgx/v5"
)

type MemStore struct {
	mu            sync.Mutex
	gigs          map[string]*models.Gig
	applications  map[string]*models.Application
	orders        map[string]*models.EscrowOrder
	byGatewayID   map[string]string
	subscriptions map[string]*models.Subscription
}

func NewMemStore() *MemStore {
	return &MemStore{
		gigs:          make(map[string]*models.Gig),
		applications:  make(map[string]*models.Application),
		orders:        make(map[string]*models.EscrowOrder),
		byGatewayID:   make(map[string]string),
		subscriptions: make(map[string]*models.Subscription),
	}
}

func (m *MemStore) SeedSubscription(sub models.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.UserID] = &sub
}

func (m *MemStore) CreateGig(ctx context.Context, gig *models.Gig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *gig
	m.gigs[gig.ID] = &copied
	return nil
}

func (m *MemStore) GetGig(ctx context.Context, gigID string) (*models.Gig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gig, ok := m.gigs[gigID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *gig
	return &copied, nil
}

func (m *MemStore) CloseGig(ctx context.Context, gigID, companyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gig, ok := m.gigs[gigID]
	if !ok || gig.CompanyID != companyID {
		return false, nil
	}
	switch gig.Status {
	case models.GigDraft, models.GigActive, models.GigPaused:
		gig.Status = models.GigClosed
		return true, nil
	}
	return false, nil
}

func (m *MemStore) ReserveSlot(ctx context.Context, gigID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gig, ok := m.gigs[gigID]
	if !ok || gig.Status != models.GigActive || gig.FilledCount >= gig.Quantity {
		return false, nil
	}
	gig.FilledCount++
	if gig.FilledCount == gig.Quantity {
		gig.Status = models.GigCompleted
	}
	return true, nil
}

func (m *MemStore) ReleaseSlot(ctx context.Context, gigID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gig, ok := m.gigs[gigID]
	if !ok || gig.FilledCount == 0 {
		return nil
	}
	gig.FilledCount--
	if gig.Status == models.GigCompleted {
		gig.Status = models.GigActive
	}
	return nil
}

func (m *MemStore) CreateApplication(ctx context.Context, app *models.Application) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.applications {
		if existing.GigID == app.GigID && existing.FreelancerID == app.FreelancerID {
			return false, nil
		}
	}
	copied := *app
	m.applications[app.ID] = &copied
	return true, nil
}

func (m *MemStore) GetApplication(ctx context.Context, gigID, freelancerID string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range m.applications {
		if app.GigID == gigID && app.FreelancerID == freelancerID {
			copied := *app
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MemStore) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *app
	return &copied, nil
}

func (m *MemStore) TransitionApplication(ctx context.Context, id string, from, to models.ApplicationStatus, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[id]
	if !ok || app.Status != from {
		return false, nil
	}
	app.Status = to
	if reason != nil {
		app.Reason = reason
	}
	return true, nil
}

func (m *MemStore) CreateEscrowOrder(ctx context.Context, order *models.EscrowOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *order
	m.orders[order.ID] = &copied
	m.byGatewayID[order.GatewayOrderID] = order.ID
	return nil
}

func (m *MemStore) GetEscrowOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*models.EscrowOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byGatewayID[gatewayOrderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *m.orders[id]
	return &copied, nil
}

func (m *MemStore) SupersedeOpenOrders(ctx context.Context, applicationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.ApplicationID == applicationID && order.Status == models.EscrowCreated {
			order.Status = models.EscrowSuperseded
		}
	}
	return nil
}

func (m *MemStore) FinalizeEscrowOrder(ctx context.Context, id string, to models.EscrowStatus, gatewayPaymentID *string, verifiedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.Status != models.EscrowCreated {
		return false, nil
	}
	order.Status = to
	if gatewayPaymentID != nil {
		order.GatewayPaymentID = gatewayPaymentID
	}
	order.VerifiedAt = verifiedAt
	return true, nil
}

func (m *MemStore) ListDueEscrowOrders(ctx context.Context, now time.Time) ([]*models.EscrowOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*models.EscrowOrder
	for _, order := range m.orders {
		if order.Status == models.EscrowCreated && order.ExpiresAt.Before(now) {
			copied := *order
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (m *MemStore) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *sub
	return &copied, nil
}

func (m *MemStore) ConsumeFirstGig(ctx context.Context, companyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[companyID]
	if !ok || sub.FirstGigConsumed {
		return false, nil
	}
	sub.FirstGigConsumed = true
	return true, nil
}

func (m *MemStore) ConsumeGigSlot(ctx context.Context, companyID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[companyID]
	if !ok || sub.Status != models.SubscriptionActive {
		return false, nil
	}
	if sub.Unlimited {
		return true, nil
	}
	if sub.RemainingGigSlots <= 0 {
		return false, nil
	}
	sub.RemainingGigSlots--
	return true, nil
}

func (m *MemStore) ConsumeApplicationSlot(ctx context.Context, freelancerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[freelancerID]
	if !ok || sub.Status != models.SubscriptionActive {
		return false, nil
	}
	if sub.Unlimited {
		return true, nil
	}
	if sub.RemainingApplicationSlots <= 0 {
		return false, nil
	}
	sub.RemainingApplicationSlots--
	return true, nil
}

func (m *MemStore) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, sub := range m.subscriptions {
		if sub.Status == models.SubscriptionActive && sub.ExpiresAt != nil && sub.ExpiresAt.Before(now) {
			sub.Status = models.SubscriptionExpired
			n++
		}
	}
	return n, nil
}

// EventRecorder collects published events for assertions.
type EventRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *EventRecorder) Publish(ctx context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *EventRecorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *EventRecorder) CountByType(eventType string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
