package events

import "time"

const (
	EventTypeStockLow = "StockLow"

	stockLowSchema = "estoque.stock.low.v1"
)

// StockLowPayload is advisory: stock dropped below the product's minimum
// after a sell. Nothing blocks on it.
type StockLowPayload struct {
	ProductID int64     `json:"productId"`
	SKU       string    `json:"sku"`
	Stock     int       `json:"stock"`
	MinStock  int       `json:"minStock"`
	Timestamp time.Time `json:"timestamp"`
}

type StockLowEvent struct {
	EventEnvelope
	Payload StockLowPayload `json:"payload"`
}
