package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/VNGato/sistema-estoque/internal/sale"
	"github.com/VNGato/sistema-estoque/internal/sequence"
)

type Publisher struct {
	ch                 *amqp.Channel
	seqRepo            *sequence.Repository
	producerIdentifier string
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seqRepo *sequence.Repository, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = "sistema-estoque"
	}

	return &Publisher{
		ch:                 ch,
		seqRepo:            seqRepo,
		producerIdentifier: producer,
	}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

type EventMeta struct {
	CorrelationID string
	CausationID   string
	PartitionKey  string
}

func (p *Publisher) PublishSaleCompleted(ctx context.Context, meta EventMeta, s *sale.Sale) error {
	timestamp := time.Now().UTC()

	payload := SaleCompletedPayload{
		SaleID:     s.ID,
		Total:      s.Total,
		AmountPaid: s.AmountPaid,
		Change:     s.Change,
		Timestamp:  timestamp,
	}
	for _, it := range s.Items {
		payload.Items = append(payload.Items, SaleItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}

	seq, err := p.seqRepo.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newSaleCompletedEvent(meta, seq, p.producerIdentifier, payload, timestamp)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal SaleCompleted envelope: %w", err)
	}

	return p.publishJSON(ctx, SaleCompletedRoutingKey, body)
}

func (p *Publisher) PublishStockLow(ctx context.Context, meta EventMeta, payload StockLowPayload) error {
	timestamp := time.Now().UTC()
	if payload.Timestamp.IsZero() {
		payload.Timestamp = timestamp
	}

	seq, err := p.seqRepo.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newStockLowEvent(meta, seq, p.producerIdentifier, payload, timestamp)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal StockLow envelope: %w", err)
	}

	return p.publishJSON(ctx, StockLowRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newSaleCompletedEvent(meta EventMeta, seq int64, producer string, payload SaleCompletedPayload, occurredAt time.Time) SaleCompletedEvent {
	return SaleCompletedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeSaleCompleted,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        saleCompletedSchema,
		},
		Payload: payload,
	}
}

func newStockLowEvent(meta EventMeta, seq int64, producer string, payload StockLowPayload, occurredAt time.Time) StockLowEvent {
	return StockLowEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeStockLow,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        stockLowSchema,
		},
		Payload: payload,
	}
}

// MustDialRabbit connects to RabbitMQ or panics. Only called from main when
// an URL is configured.
func MustDialRabbit(url string) *amqp.Connection {
	conn, err := amqp.Dial(url)
	if err != nil {
		panic(fmt.Sprintf("connect to RabbitMQ: %v", err))
	}
	return conn
}
