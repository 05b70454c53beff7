package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange          = "estoque.events"
	SaleCompletedRoutingKey = "sale.completed.v1"
	StockLowRoutingKey      = "stock.low.v1"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
