package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.EventPublisher {
	return &publisher{conn: conn}
}

// RoutingKey is the topic key an admitted order is published under, e.g. kitchen.high.
func RoutingKey(p domain.Priority) string {
	return "kitchen." + p.String()
}

// messagePriority maps rank 1 (high) to the largest AMQP priority.
func messagePriority(p domain.Priority) uint8 {
	if !p.Valid() {
		return 0
	}
	return uint8(4 - p.Rank())
}

func (p *publisher) PublishOrderAdmitted(ctx context.Context, msg interfaces.OrderAdmittedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return p.publish(ctx, OrdersExchange, "topic", RoutingKey(msg.Priority), amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Priority:     messagePriority(msg.Priority),
	})
}

func (p *publisher) PublishStatusChanged(ctx context.Context, msg interfaces.StatusChangedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return p.publish(ctx, NotificationsExchange, "fanout", "", amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *publisher) publish(ctx context.Context, exchange, kind, key string, msg amqp.Publishing) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return err
		}
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if err := ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", exchange, err)
	}
	return nil
}

type discardPublisher struct{}

// NewDiscardPublisher is used when RabbitMQ is disabled.
func NewDiscardPublisher() interfaces.EventPublisher {
	return discardPublisher{}
}

func (discardPublisher) PublishOrderAdmitted(context.Context, interfaces.OrderAdmittedMessage) error {
	return nil
}

func (discardPublisher) PublishStatusChanged(context.Context, interfaces.StatusChangedMessage) error {
	return nil
}
