package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a single item in the store's catalogue. Prices are decimals
// because they come straight from NUMERIC columns and feed cash arithmetic.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	CostPrice decimal.Decimal `json:"costPrice"`
	SalePrice decimal.Decimal `json:"salePrice"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"minStock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// LowStock reports whether the product has fallen below its advisory
// minimum. MinStock carries no enforcement anywhere else.
func (p Product) LowStock() bool {
	return p.Stock < p.MinStock
}

// Fields carries the absolute values for a full-record overwrite.
// Every field is written as-is; there is no partial-update path.
type Fields struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	CostPrice decimal.Decimal `json:"costPrice"`
	SalePrice decimal.Decimal `json:"salePrice"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"minStock"`
}
