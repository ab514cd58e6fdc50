package kitchen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/app/admission"
	"github.com/YelzhanWeb/kitchen/internal/app/order"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
	"github.com/YelzhanWeb/kitchen/internal/metrics"
)

const defaultChangedBy = "kitchen"

type Options struct {
	MaxCapacity         int
	AllowDirectComplete bool
	RejectUnresolved    bool
}

type Service struct {
	repo      interfaces.OrderRepository
	catalog   interfaces.Catalog
	admission *admission.Controller
	builder   *order.Builder
	publisher interfaces.EventPublisher
	policy    domain.TransitionPolicy
	logger    logger.Logger
	metrics   *metrics.Metrics
	locks     *orderLocks
	now       func() time.Time
}

func NewService(
	repo interfaces.OrderRepository,
	catalog interfaces.Catalog,
	publisher interfaces.EventPublisher,
	logger logger.Logger,
	m *metrics.Metrics,
	opts Options,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		admission: admission.NewController(repo, opts.MaxCapacity, m),
		builder:   order.NewBuilder(repo, catalog, logger, opts.RejectUnresolved),
		publisher: publisher,
		policy:    domain.NewTransitionPolicy(opts.AllowDirectComplete),
		logger:    logger,
		metrics:   m,
		locks:     newOrderLocks(),
		now:       time.Now,
	}
}

// Submit admits, builds and persists a new order.
func (s *Service) Submit(ctx context.Context, cmd interfaces.SubmitOrderCommand) (*interfaces.SubmitResult, error) {
	requestID := logger.RequestIDFrom(ctx)

	// 1. Проверка загрузки кухни
	reservation, err := s.admission.TryAdmit(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			s.logger.Info("kitchen_full", "Order rejected, kitchen at capacity", requestID, map[string]interface{}{
				"customer_id":  cmd.CustomerID,
				"max_capacity": s.admission.MaxCapacity(),
			})
		}
		return nil, err
	}
	defer reservation.Release()

	// 2. Приоритет фиксируется один раз, при создании
	priority := domain.ResolvePriority(cmd.IsVIP)

	// 3. Сборка и сохранение заказа
	built, err := s.builder.Build(ctx, cmd.CustomerID, priority, cmd.Items)
	// после вставки заказ уже учитывается в CountActive
	reservation.Release()
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_admitted", fmt.Sprintf("Order %d admitted", built.Order.ID), requestID, map[string]interface{}{
		"order_id":       built.Order.ID,
		"customer_id":    built.Order.CustomerID,
		"priority":       built.Order.Priority.String(),
		"total":          built.Order.Total,
		"rejected_items": built.Rejected,
	})

	// 4. Публикация события
	if err := s.publisher.PublishOrderAdmitted(ctx, admittedMessage(built.Order)); err != nil {
		s.logger.Error("rabbitmq_publish_failed", "Failed to publish admitted order", requestID, nil, err)
		// Не блокируем процесс из-за ошибки уведомления
	}

	return &interfaces.SubmitResult{Order: built.Order, Rejected: built.Rejected}, nil
}

// ActiveOrders returns a fresh, ordered snapshot of the kitchen queue.
func (s *Service) ActiveOrders(ctx context.Context) ([]interfaces.OrderView, error) {
	orders, err := s.repo.QueryActive(ctx)
	if err != nil {
		return nil, err
	}

	SortQueue(orders)
	s.metrics.SetQueueLength(len(orders))

	views := make([]interfaces.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o))
	}
	return views, nil
}

// Transition applies a status change if the transition table allows it
// from the persisted status.
func (s *Service) Transition(ctx context.Context, orderID int64, newStatus domain.Status, changedBy string) (*domain.Order, error) {
	if _, err := domain.ParseStatus(string(newStatus)); err != nil {
		return nil, err
	}
	changedBy = strings.TrimSpace(changedBy)
	if changedBy == "" {
		changedBy = defaultChangedBy
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	current, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := current.Status

	// Обновляем в памяти, чтобы проверить переход по таблице
	if err := current.TransitionTo(s.policy, newStatus, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, oldStatus, newStatus, changedBy)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(oldStatus), string(newStatus))
	s.logger.Info("status_changed", fmt.Sprintf("Order %d is now %s", orderID, newStatus), logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id":   orderID,
		"old_status": oldStatus,
		"new_status": newStatus,
		"changed_by": changedBy,
	})

	notification := interfaces.StatusChangedMessage{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
		Timestamp: updated.UpdatedAt,
	}
	if err := s.publisher.PublishStatusChanged(ctx, notification); err != nil {
		s.logger.Error("rabbitmq_publish_failed", "Failed to publish status update", logger.RequestIDFrom(ctx), nil, err)
	}

	return updated, nil
}

func (s *Service) Menu(ctx context.Context) ([]domain.MenuItem, error) {
	return s.catalog.ListMenu(ctx)
}

func admittedMessage(o *domain.Order) interfaces.OrderAdmittedMessage {
	items := make([]interfaces.MessageItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = interfaces.MessageItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitCost:   it.UnitCost,
		}
	}
	return interfaces.OrderAdmittedMessage{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      items,
		Total:      o.Total,
		Priority:   o.Priority,
		CreatedAt:  o.CreatedAt,
	}
}
