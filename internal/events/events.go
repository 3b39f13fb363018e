package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventInventoryMovement = "InventoryMovement"
	EventItemStatusChanged = "ItemStatusChanged"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope stamps a version 1 envelope around an already encoded payload.
func NewEnvelope(eventType, producer, correlationID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// ---- payloads ----

type InventoryMovementPayload struct {
	SKU       string    `json:"sku"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ItemStatusChangedPayload is consumed by the worker. Status is the requested
// target; the current status is read from the database.
type ItemStatusChangedPayload struct {
	OrderItemID string `json:"order_item_id"`
	Status      string `json:"status"`
}
