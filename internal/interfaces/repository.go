package interfaces

import (
	"context"

	"github.com/YelzhanWeb/kitchen/internal/domain"
)

// OrderRepository is the durable order store. Storage faults are wrapped
// with domain.ErrRepository.
type OrderRepository interface {
	CountActive(ctx context.Context) (int, error)
	// Insert persists order with its items and initial history row, and
	// sets the assigned ID and CreatedAt on it.
	Insert(ctx context.Context, order *domain.Order) error
	// UpdateStatus moves the order from -> to only if the persisted status is
	// still from. Unknown ids give domain.ErrOrderNotFound, a stale from gives
	// domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id int64, from, to domain.Status, changedBy string) (*domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	QueryActive(ctx context.Context) ([]*domain.Order, error)
	// QueryByCustomer returns the customer's orders newest first.
	QueryByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error)
	StatusHistory(ctx context.Context, id int64) ([]*domain.StatusChange, error)
}

// Catalog resolves menu items by name or numeric id.
type Catalog interface {
	ResolveItem(ctx context.Context, nameOrID string) (domain.MenuItem, error)
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
}
