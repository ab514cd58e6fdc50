package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

type Service struct {
	orderRepo interfaces.OrderRepository
	logger    logger.Logger
}

func NewService(orderRepo interfaces.OrderRepository, logger logger.Logger) *Service {
	return &Service{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// CustomerOrders returns every order of the customer, newest first.
func (s *Service) CustomerOrders(ctx context.Context, customerID string) ([]*domain.Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidOrder)
	}
	orders, err := s.orderRepo.QueryByCustomer(ctx, customerID)
	if err != nil {
		s.logFailure(ctx, "query_customer_orders_failed", "Failed to query customer orders",
			map[string]interface{}{"customer_id": customerID}, err)
		return nil, err
	}
	return orders, nil
}

// LatestOrder is derived from the stored orders on every call.
func (s *Service) LatestOrder(ctx context.Context, customerID string) (*domain.Order, error) {
	orders, err := s.CustomerOrders(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return orders[0], nil
}

func (s *Service) OrderHistory(ctx context.Context, orderID int64) ([]*domain.StatusChange, error) {
	details := map[string]interface{}{"order_id": orderID}
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		s.logFailure(ctx, "find_order_failed", "Failed to find order", details, err)
		return nil, err
	}
	history, err := s.orderRepo.StatusHistory(ctx, orderID)
	if err != nil {
		s.logFailure(ctx, "query_history_failed", "Failed to query order history", details, err)
		return nil, err
	}
	return history, nil
}

// логируем только сбои хранилища, ErrOrderNotFound не пишем
func (s *Service) logFailure(ctx context.Context, action, message string, details map[string]interface{}, err error) {
	if !errors.Is(err, domain.ErrRepository) {
		return
	}
	s.logger.Error(action, message, logger.RequestIDFrom(ctx), details, err)
}
