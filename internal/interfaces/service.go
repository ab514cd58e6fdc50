package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/domain"
)

// Команды для сервисов
type SubmitOrderCommand struct {
	CustomerID string
	IsVIP      bool
	Items      []RequestedItem
}

// RequestedItem references a menu item by name or numeric id.
type RequestedItem struct {
	Item     string
	Quantity int
}

type SubmitResult struct {
	Order    *domain.Order
	Rejected []string
}

// OrderView is one row of the kitchen display.
type OrderView struct {
	OrderID    int64
	CustomerID string
	Items      []domain.LineItem
	Total      domain.Money
	Priority   domain.Priority
	Status     domain.Status
	CreatedAt  time.Time
}

// Интерфейсы Сервисов (Business Logic)
type KitchenService interface {
	Submit(ctx context.Context, cmd SubmitOrderCommand) (*SubmitResult, error)
	ActiveOrders(ctx context.Context) ([]OrderView, error)
	Transition(ctx context.Context, orderID int64, newStatus domain.Status, changedBy string) (*domain.Order, error)
	Menu(ctx context.Context) ([]domain.MenuItem, error)
}

type TrackingService interface {
	CustomerOrders(ctx context.Context, customerID string) ([]*domain.Order, error)
	LatestOrder(ctx context.Context, customerID string) (*domain.Order, error)
	OrderHistory(ctx context.Context, orderID int64) ([]*domain.StatusChange, error)
}
