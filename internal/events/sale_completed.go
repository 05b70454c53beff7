package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypeSaleCompleted = "SaleCompleted"

	saleCompletedSchema = "estoque.sale.completed.v1"
)

type SaleItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type SaleCompletedPayload struct {
	SaleID     string          `json:"saleId"`
	Items      []SaleItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Change     decimal.Decimal `json:"change"`
	Timestamp  time.Time       `json:"timestamp"`
}

type SaleCompletedEvent struct {
	EventEnvelope
	Payload SaleCompletedPayload `json:"payload"`
}
