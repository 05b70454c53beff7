package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one requested decrement in a sale: the cart sends product + quantity,
// the unit price is read from the locked product row at commit time.
type Line struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type Item struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Sale struct {
	ID         string          `json:"saleId"`
	Items      []Item          `json:"items"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Change     decimal.Decimal `json:"change"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// InsufficientLine describes a cart line the store could not cover.
type InsufficientLine struct {
	ProductID int64 `json:"productId"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

// StockLevel is the post-commit stock of a touched product, so callers can
// raise low-stock events without a second read.
type StockLevel struct {
	ProductID int64
	Stock     int
	MinStock  int
}

type CommitResult struct {
	// Sale is set on success, nil when the commit was refused.
	Sale         *Sale
	Insufficient []InsufficientLine
	Levels       []StockLevel
}
