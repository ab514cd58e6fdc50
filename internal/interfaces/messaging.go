package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/domain"
)

// Сообщения RabbitMQ
type OrderAdmittedMessage struct {
	OrderID    int64           `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Items      []MessageItem   `json:"items"`
	Total      domain.Money    `json:"total"`
	Priority   domain.Priority `json:"priority"`
	CreatedAt  time.Time       `json:"created_at"`
}

type MessageItem struct {
	MenuItemID int64        `json:"menu_item_id"`
	Name       string       `json:"name"`
	Quantity   int          `json:"quantity"`
	UnitCost   domain.Money `json:"unit_cost"`
}

type StatusChangedMessage struct {
	OrderID   int64         `json:"order_id"`
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	ChangedBy string        `json:"changed_by"`
	Timestamp time.Time     `json:"timestamp"`
}

// Интерфейсы Messaging (Adapter/RabbitMQ)
type EventPublisher interface {
	PublishOrderAdmitted(ctx context.Context, msg OrderAdmittedMessage) error
	PublishStatusChanged(ctx context.Context, msg StatusChangedMessage) error
}

type EventConsumer interface {
	ConsumeStatusChanges(ctx context.Context, handler MessageHandler) error
}

type MessageHandler func(ctx context.Context, body []byte) error
