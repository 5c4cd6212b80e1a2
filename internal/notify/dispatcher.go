// Package notify is the outbound event boundary. Terminal application
// transitions are published as JSON events on a Redis channel; the
// notification fan-out (email, in-app) consumes them on its own schedule and
// deduplicates by event id. A publish failure never rolls back the state
// transition that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const Channel = "unjob.notifications"

const (
	TypeApplicationAccepted      = "application.accepted"
	TypeApplicationRejected      = "application.rejected"
	TypeApplicationPaymentFailed = "application.payment_failed"
)

type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ApplicationID string    `json:"applicationId"`
	GigID         string    `json:"gigId"`
	CompanyID     string    `json:"companyId"`
	FreelancerID  string    `json:"freelancerId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewEvent(eventType, applicationID, gigID, companyID, freelancerID string) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ApplicationID: applicationID,
		GigID:         gigID,
		CompanyID:     companyID,
		FreelancerID:  freelancerID,
		Timestamp:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Dispatcher struct {
	RDB *redis.Client
}

// Publish is fire-and-forget: failures are logged and swallowed.
func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify marshal failed type=%s application=%s: %v", event.Type, event.ApplicationID, err)
		return
	}
	if err := d.RDB.Publish(ctx, Channel, payload).Err(); err != nil {
		log.Printf("notify publish failed type=%s application=%s: %v", event.Type, event.ApplicationID, err)
	}
}

// Subscribe returns the raw pub/sub stream for the notification channel, used
// by the ops event feed.
func (d *Dispatcher) Subscribe(ctx context.Context) *redis.PubSub {
	return d.RDB.Subscribe(ctx, Channel)
}
