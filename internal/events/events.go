// Package events carries domain events from the service to a broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

const TypeCheckoutCompleted = "checkout.completed"

// Event is the envelope published for every domain event. Key groups
// events for ordered delivery (the shopper id for checkouts).
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewCheckoutEvent(t models.Transaction) (Event, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return Event{}, fmt.Errorf("marshal transaction %s: %w", t.ID, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      TypeCheckoutCompleted,
		Key:       t.ShopperID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
