package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSaleCompletedEventContract(t *testing.T) {
	payload := SaleCompletedPayload{
		SaleID: "s-1",
		Items: []SaleItem{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00"), Subtotal: decimal.RequireFromString("20.00")},
		},
		Total:      decimal.RequireFromString("20.00"),
		AmountPaid: decimal.RequireFromString("25.00"),
		Change:     decimal.RequireFromString("5.00"),
		Timestamp:  time.Now().UTC(),
	}
	meta := EventMeta{CorrelationID: "corr-1", PartitionKey: "s-1"}

	ev := newSaleCompletedEvent(meta, 7, "sistema-estoque", payload, time.Now().UTC())

	if err := ev.EventEnvelope.Validate(EventTypeSaleCompleted, 1); err != nil {
		t.Fatalf("envelope should validate: %v", err)
	}
	if ev.Schema != "estoque.sale.completed.v1" {
		t.Fatalf("unexpected schema %q", ev.Schema)
	}
	if ev.Sequence != 7 {
		t.Fatalf("unexpected sequence %d", ev.Sequence)
	}
	if ev.Producer != "sistema-estoque" {
		t.Fatalf("unexpected producer %q", ev.Producer)
	}
	if ev.CorrelationID != "corr-1" {
		t.Fatalf("unexpected correlationId %q", ev.CorrelationID)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		EventEnvelope
		Payload SaleCompletedPayload `json:"payload"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Payload.SaleID != "s-1" {
		t.Fatalf("payload lost on the wire: %+v", decoded.Payload)
	}
	if len(decoded.Payload.Items) != 1 || decoded.Payload.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", decoded.Payload.Items)
	}
	if !decoded.Payload.Total.Equal(payload.Total) {
		t.Fatalf("total changed on the wire: %s", decoded.Payload.Total)
	}
}

func TestStockLowEventContract(t *testing.T) {
	payload := StockLowPayload{
		ProductID: 3,
		SKU:       "CF-01",
		Stock:     1,
		MinStock:  5,
		Timestamp: time.Now().UTC(),
	}
	meta := EventMeta{CausationID: "s-1", PartitionKey: "3"}

	ev := newStockLowEvent(meta, 2, "sistema-estoque", payload, time.Now().UTC())

	if err := ev.EventEnvelope.Validate(EventTypeStockLow, 1); err != nil {
		t.Fatalf("envelope should validate: %v", err)
	}
	if ev.Schema != "estoque.stock.low.v1" {
		t.Fatalf("unexpected schema %q", ev.Schema)
	}
	if ev.CausationID != "s-1" {
		t.Fatalf("unexpected causationId %q", ev.CausationID)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		EventEnvelope
		Payload StockLowPayload `json:"payload"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Payload.ProductID != payload.ProductID ||
		decoded.Payload.SKU != payload.SKU ||
		decoded.Payload.Stock != payload.Stock ||
		decoded.Payload.MinStock != payload.MinStock ||
		!decoded.Payload.Timestamp.Equal(payload.Timestamp) {
		t.Fatalf("payload changed on the wire: %+v", decoded.Payload)
	}
}

func TestEnvelopeValidate(t *testing.T) {
	base := EventEnvelope{
		EventName:    EventTypeStockLow,
		EventVersion: 1,
		EventID:      "evt-1",
		PartitionKey: "3",
	}

	tests := []struct {
		name    string
		mutate  func(e *EventEnvelope)
		wantErr bool
	}{
		{"valid", func(e *EventEnvelope) {}, false},
		{"wrong name", func(e *EventEnvelope) { e.EventName = "Other" }, true},
		{"wrong version", func(e *EventEnvelope) { e.EventVersion = 2 }, true},
		{"missing partition key", func(e *EventEnvelope) { e.PartitionKey = "" }, true},
		{"missing event id", func(e *EventEnvelope) { e.EventID = "" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := base
			tc.mutate(&env)
			err := env.Validate(EventTypeStockLow, 1)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
