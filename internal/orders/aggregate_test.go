package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(status Status, qty int, unit string) OrderItem {
	it := NewItem("", "o1", ItemInput{SKU: "SKU", Qty: qty, UnitPrice: decimal.RequireFromString(unit)})
	it.Status = status
	return it
}

func statuses(ss ...Status) []OrderItem {
	out := make([]OrderItem, 0, len(ss))
	for _, s := range ss {
		out = append(out, item(s, 1, "1"))
	}
	return out
}

func TestCalculateOrderTotalsEmpty(t *testing.T) {
	for _, items := range [][]OrderItem{nil, {}} {
		got := CalculateOrderTotals(items)
		assert.Equal(t, 0, got.Total.Qty)
		assert.True(t, got.Total.Value.IsZero())
		assert.True(t, got.Delivered.Value.IsZero())
		assert.True(t, got.Cancelled.Value.IsZero())
		assert.True(t, got.Active.Value.IsZero())
	}
}

func TestCalculateOrderTotalsBucketsPartitionTotal(t *testing.T) {
	items := []OrderItem{
		item(StatusDelivered, 2, "50"),
		item(StatusCancelled, 1, "50"),
		item(StatusPending, 3, "10"),
		item(StatusShipped, 1, "7.25"),
		item(StatusProcessing, 4, "0.10"),
	}
	got := CalculateOrderTotals(items)

	assert.Equal(t, got.Total.Qty, got.Delivered.Qty+got.Cancelled.Qty+got.Active.Qty)
	assert.True(t, got.Total.Value.Equal(got.Delivered.Value.Add(got.Cancelled.Value).Add(got.Active.Value)))

	assert.Equal(t, 2, got.Delivered.Qty)
	assert.Equal(t, 1, got.Cancelled.Qty)
	assert.Equal(t, 8, got.Active.Qty)
	assert.Equal(t, "37.65", got.Active.Value.StringFixed(2))
	assert.Equal(t, "187.65", got.Total.Value.StringFixed(2))
}

func TestIsPartiallyFulfilled(t *testing.T) {
	cases := []struct {
		name  string
		items []OrderItem
		want  bool
	}{
		{"empty", nil, false},
		{"fresh order", statuses(StatusPending, StatusPending, StatusPending), false},
		{"mixed", statuses(StatusPending, StatusDelivered), true},
		{"all delivered", statuses(StatusDelivered, StatusDelivered), false},
		{"one cancelled", statuses(StatusShipped, StatusCancelled), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsPartiallyFulfilled(tc.items))
		})
	}
}

func TestFulfillmentPercentage(t *testing.T) {
	cases := []struct {
		name  string
		items []OrderItem
		want  int
	}{
		{"empty", nil, 0},
		{"all cancelled", statuses(StatusCancelled, StatusCancelled), 0},
		{"half", statuses(StatusDelivered, StatusCancelled, StatusPending), 50},
		{"thirds round down", statuses(StatusDelivered, StatusPending, StatusPending), 33},
		{"thirds round up", statuses(StatusDelivered, StatusDelivered, StatusPending), 67},
		{"complete", statuses(StatusDelivered, StatusDelivered, StatusCancelled), 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FulfillmentPercentage(tc.items))
		})
	}
}

func TestRevenueFiguresStayDistinct(t *testing.T) {
	o := Order{ID: "o1", Items: []OrderItem{
		item(StatusDelivered, 1, "100"),
		item(StatusCancelled, 1, "50"),
		item(StatusPending, 1, "30"),
	}}

	assert.True(t, DeliveredRevenue(o).Equal(decimal.NewFromInt(100)))
	assert.True(t, EffectiveValue(o).Equal(decimal.NewFromInt(130)))
	assert.True(t, ShouldIncludeInRevenue(o))
	assert.Equal(t, 50, FulfillmentPercentage(o.Items))
}

func TestShouldIncludeInRevenue(t *testing.T) {
	assert.False(t, ShouldIncludeInRevenue(Order{}))
	assert.False(t, ShouldIncludeInRevenue(Order{Items: statuses(StatusCancelled, StatusCancelled)}))
	assert.True(t, ShouldIncludeInRevenue(Order{Items: statuses(StatusCancelled, StatusProcessing)}))
	assert.True(t, ShouldIncludeInRevenue(Order{Items: statuses(StatusDelivered)}))
}

func TestBuildAggregate(t *testing.T) {
	o := Order{ID: "o1", Items: []OrderItem{
		item(StatusDelivered, 1, "100"),
		item(StatusCancelled, 1, "50"),
		item(StatusShipped, 2, "15"),
	}}

	agg := BuildAggregate(o)
	require.Equal(t, "o1", agg.OrderID)
	assert.True(t, agg.IsPartial)
	assert.Equal(t, 50, agg.FulfillmentRate)
	assert.True(t, agg.RevenueEligible)
	assert.Equal(t, "100", agg.DeliveredRevenue.String())
	assert.Equal(t, "130", agg.EffectiveValue.String())
	assert.Equal(t, StatusShipped, agg.Status)
	assert.Equal(t, []Status{StatusDelivered}, agg.PossibleStatuses)
	assert.False(t, agg.CanBeCancelled)
}
