// Package events mirrors stock change events to RabbitMQ so downstream
// consumers (1C sync, notifications) can follow the movements ledger.
package events

import (
	"context"
	"encoding/json"

	"pricep86-backend/internal/stock"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "stock.events"

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish sends one event with routing key "stock.<changeType>".
func (p *Publisher) Publish(ctx context.Context, ev *stock.ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, exchange, "stock."+string(ev.ChangeType), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
