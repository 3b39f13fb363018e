package inventory

import (
	"context"
	"time"
)

type Item struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type Variant struct {
	SKU       string    `json:"sku"`
	Available int       `json:"available_quantity"`
	Reserved  int       `json:"reserved_quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MovementReason string

const (
	MovementReservation MovementReason = "reservation"
	MovementRelease     MovementReason = "release"
	MovementAdjustment  MovementReason = "adjustment"
)

// Movement is one audited change of a variant's available quantity.
type Movement struct {
	SKU       string         `json:"sku"`
	Delta     int            `json:"delta"`
	Reason    MovementReason `json:"reason"`
	Timestamp time.Time      `json:"timestamp"`
}

// Adjustment moves quantity between available and reserved for one SKU.
type Adjustment struct {
	SKU            string
	AvailableDelta int
	ReservedDelta  int
}

// Store holds variant quantities. Callers serialize per SKU with stocklock;
// Apply must still be all-or-nothing across the batch.
type Store interface {
	Variants(ctx context.Context, skus []string) (map[string]Variant, error)
	Apply(ctx context.Context, adjustments []Adjustment) error
	// SetAvailable overwrites the available quantity, creating the variant
	// when missing, and returns the previous value.
	SetAvailable(ctx context.Context, sku string, qty int) (int, error)
}

type MovementPublisher interface {
	PublishMovements(ctx context.Context, movements []Movement) error
}

type nopPublisher struct{}

func (nopPublisher) PublishMovements(context.Context, []Movement) error { return nil }
