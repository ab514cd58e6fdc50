package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

const defaultRetryDelay = 5 * time.Second

type consumer struct {
	conn       Connection
	logger     logger.Logger
	retryDelay time.Duration
}

func NewConsumer(conn Connection, log logger.Logger) interfaces.EventConsumer {
	return &consumer{conn: conn, logger: log, retryDelay: defaultRetryDelay}
}

// ConsumeStatusChanges блокируется до отмены ctx, переподключаясь при обрыве.
func (c *consumer) ConsumeStatusChanges(ctx context.Context, handler interfaces.MessageHandler) error {
	for {
		err := c.consumeStatusChanges(ctx, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Error("consumer_disconnected", fmt.Sprintf("Notifications consumer disconnected, retrying in %s", c.retryDelay), "", nil, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}

		if err := c.conn.Reconnect(); err != nil {
			c.logger.Error("rabbitmq_reconnect_failed", "Failed to reconnect to RabbitMQ", "", nil, err)
		}
	}
}

func (c *consumer) consumeStatusChanges(ctx context.Context, handler interfaces.MessageHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Временная эксклюзивная очередь на каждого подписчика
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", NotificationsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			if err := handler(ctx, msg.Body); err != nil {
				c.logger.Debug("notification_skipped", "Handler rejected notification", "", nil)
			}
		}
	}
}
