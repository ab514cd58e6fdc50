package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

// BuildResult is the persisted order plus the requested item references
// that could not be resolved against the catalog.
type BuildResult struct {
	Order    *domain.Order
	Rejected []string
}

type Builder struct {
	repo             interfaces.OrderRepository
	catalog          interfaces.Catalog
	logger           logger.Logger
	rejectUnresolved bool
}

// NewBuilder returns a Builder. With rejectUnresolved any item missing from
// the catalog fails the whole order; otherwise such items are skipped and
// reported in BuildResult.Rejected.
func NewBuilder(repo interfaces.OrderRepository, catalog interfaces.Catalog, logger logger.Logger, rejectUnresolved bool) *Builder {
	return &Builder{
		repo:             repo,
		catalog:          catalog,
		logger:           logger,
		rejectUnresolved: rejectUnresolved,
	}
}

func (b *Builder) Build(ctx context.Context, customerID string, priority domain.Priority, requested []interfaces.RequestedItem) (*BuildResult, error) {
	// 1. Проверка количества до обращения к каталогу
	for _, item := range requested {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity of %q must be at least 1", domain.ErrInvalidOrder, item.Item)
		}
	}

	// 2. Разрешение позиций меню
	var (
		items    []domain.LineItem
		rejected []string
	)
	for _, req := range requested {
		ref := strings.TrimSpace(req.Item)
		menuItem, err := b.catalog.ResolveItem(ctx, ref)
		if errors.Is(err, domain.ErrItemNotFound) {
			rejected = append(rejected, ref)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve item %q: %w", ref, err)
		}

		items = append(items, domain.LineItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   req.Quantity,
			UnitCost:   menuItem.Cost,
		})
	}

	if len(rejected) > 0 {
		b.logger.Debug("items_unresolved", "Some requested items are not on the menu", logger.RequestIDFrom(ctx), map[string]interface{}{
			"customer_id": customerID,
			"items":       rejected,
		})
		if b.rejectUnresolved {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, strings.Join(rejected, ", "))
		}
	}

	// 3. Создание доменной сущности (валидация и расчет суммы)
	order, err := domain.NewOrder(customerID, priority, items)
	if err != nil {
		return nil, err
	}

	// 4. Сохранение в БД
	if err := b.repo.Insert(ctx, order); err != nil {
		b.logger.Error("db_transaction_failed", "Failed to create order", logger.RequestIDFrom(ctx), nil, err)
		return nil, err
	}

	b.logger.Debug("order_created", "Order created in DB", logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total,
		"priority": order.Priority.String(),
	})

	return &BuildResult{Order: order, Rejected: rejected}, nil
}
