package orders

import (
	"math"

	"github.com/shopspring/decimal"
)

// Bucket is a quantity and value pair.
type Bucket struct {
	Qty   int             `json:"qty"`
	Value decimal.Decimal `json:"value"`
}

func (b *Bucket) add(it OrderItem) {
	b.Qty += it.Qty
	b.Value = b.Value.Add(it.TotalPrice)
}

// Totals puts every item in exactly one of Delivered, Cancelled or Active,
// and also in Total.
type Totals struct {
	Delivered Bucket `json:"delivered"`
	Cancelled Bucket `json:"cancelled"`
	Active    Bucket `json:"active"`
	Total     Bucket `json:"total"`
}

func CalculateOrderTotals(items []OrderItem) Totals {
	var t Totals
	for _, it := range items {
		switch it.Status {
		case StatusDelivered:
			t.Delivered.add(it)
		case StatusCancelled:
			t.Cancelled.add(it)
		default:
			t.Active.add(it)
		}
		t.Total.add(it)
	}
	return t
}

// IsPartiallyFulfilled reports whether the items carry more than one
// distinct status.
func IsPartiallyFulfilled(items []OrderItem) bool {
	if len(items) == 0 {
		return false
	}
	first := items[0].Status
	for _, it := range items[1:] {
		if it.Status != first {
			return true
		}
	}
	return false
}

// FulfillmentPercentage is delivered items over non-cancelled items, rounded
// half away from zero. No live items yields 0.
func FulfillmentPercentage(items []OrderItem) int {
	var delivered, live int
	for _, it := range items {
		if it.Status == StatusCancelled {
			continue
		}
		live++
		if it.Status == StatusDelivered {
			delivered++
		}
	}
	if live == 0 {
		return 0
	}
	return int(math.Round(float64(delivered) / float64(live) * 100))
}

// ShouldIncludeInRevenue is the pipeline revenue gate: any delivered item,
// or any item not cancelled. Use DeliveredRevenue for realized revenue.
func ShouldIncludeInRevenue(o Order) bool {
	for _, it := range o.Items {
		if it.Status != StatusCancelled {
			return true
		}
	}
	return false
}

func DeliveredRevenue(o Order) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		if it.Status == StatusDelivered {
			sum = sum.Add(it.TotalPrice)
		}
	}
	return sum
}

// EffectiveValue sums every item that is not cancelled.
func EffectiveValue(o Order) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		if it.Status != StatusCancelled {
			sum = sum.Add(it.TotalPrice)
		}
	}
	return sum
}

// Aggregate is the derived view of one order snapshot.
type Aggregate struct {
	OrderID          string          `json:"orderId"`
	Totals           Totals          `json:"totals"`
	IsPartial        bool            `json:"isPartial"`
	FulfillmentRate  int             `json:"fulfillmentRate"`
	RevenueEligible  bool            `json:"revenueEligible"`
	DeliveredRevenue decimal.Decimal `json:"deliveredRevenue"`
	EffectiveValue   decimal.Decimal `json:"effectiveValue"`
	Status           Status          `json:"status"`
	PossibleStatuses []Status        `json:"possibleStatuses"`
	CanBeCancelled   bool            `json:"canBeCancelled"`
}

// BuildAggregate computes every figure from the same item slice, so a report
// never mixes two snapshots.
func BuildAggregate(o Order) Aggregate {
	return Aggregate{
		OrderID:          o.ID,
		Totals:           CalculateOrderTotals(o.Items),
		IsPartial:        IsPartiallyFulfilled(o.Items),
		FulfillmentRate:  FulfillmentPercentage(o.Items),
		RevenueEligible:  ShouldIncludeInRevenue(o),
		DeliveredRevenue: DeliveredRevenue(o),
		EffectiveValue:   EffectiveValue(o),
		Status:           DeriveOrderStatus(o.Items),
		PossibleStatuses: PossibleStatuses(o),
		CanBeCancelled:   CanBeCancelled(o),
	}
}
