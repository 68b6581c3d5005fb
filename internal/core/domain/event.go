package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventProductCreated  EventType = "product.created"
	EventProductSold     EventType = "product.sold"
	EventProductRepriced EventType = "product.repriced"
	EventProductDeleted  EventType = "product.deleted"
)

// InventoryEvent records one committed catalog mutation.
type InventoryEvent struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	ProductID     int64           `json:"product_id"`
	SKU           string          `json:"sku"`
	Quantity      int             `json:"quantity,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	StockAfter    int             `json:"stock_after"`
	OccurredAt    time.Time       `json:"occurred_at"`

	// TraceContext is the propagated span context of the operation that
	// produced the event. It travels as message headers, not in the payload.
	TraceContext map[string]string `json:"-"`
}
