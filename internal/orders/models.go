package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string      `json:"id"`
	ExternalID    string      `json:"external_id"`
	PaymentMethod string      `json:"payment_method"`
	CreatedAt     time.Time   `json:"created_at"`
	Items         []OrderItem `json:"items"`
}

// OrderItem is one line of an order. TotalPrice is fixed at placement as
// Qty x UnitPrice.
type OrderItem struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	SKU        string          `json:"sku"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     Status          `json:"status"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ItemInput struct {
	SKU       string          `json:"sku"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PlaceOrderInput struct {
	ExternalID    string      `json:"external_id"`
	PaymentMethod string      `json:"payment_method"`
	Items         []ItemInput `json:"items"`
}

// NewItem builds a pending line with its total computed.
func NewItem(id, orderID string, in ItemInput) OrderItem {
	return OrderItem{
		ID:         id,
		OrderID:    orderID,
		SKU:        in.SKU,
		Qty:        in.Qty,
		UnitPrice:  in.UnitPrice,
		TotalPrice: in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Qty))),
		Status:     StatusPending,
	}
}
