package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

// DefaultCategories is the category set used when none is configured.
var DefaultCategories = []Category{"อาหาร", "เครื่องดื่ม", "ของใช้", "เสื้อผ้า"}

type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Category  Category        `json:"category"`
	CreatedAt time.Time       `json:"created_at"`
}

// Value is the stock value of the product (price * stock).
func (p Product) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// ProductInput carries the caller-supplied fields of a new product.
type ProductInput struct {
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category Category        `json:"category"`
}

type PriceUpdate struct {
	ProductID int64           `json:"product_id"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

type SortField string

const (
	SortNone      SortField = ""
	SortName      SortField = "name"
	SortPrice     SortField = "price"
	SortStock     SortField = "stock"
	SortCreatedAt SortField = "created_at"
)

// ParseSortField accepts the empty string as SortNone.
func ParseSortField(s string) (SortField, bool) {
	switch f := SortField(s); f {
	case SortNone, SortName, SortPrice, SortStock, SortCreatedAt:
		return f, true
	default:
		return SortNone, false
	}
}

// ListOptions restricts and orders a product listing. The zero value lists
// every product in insertion order.
type ListOptions struct {
	Category   Category
	SortBy     SortField
	Descending bool
}

type Summary struct {
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
	LowStock   int             `json:"low_stock"`
	OutOfStock int             `json:"out_of_stock"`
}
