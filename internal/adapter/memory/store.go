// Package memory keeps orders and the menu in process memory. It backs the
// "memory" storage driver and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	orders     map[int64]*domain.Order
	history    map[int64][]*domain.StatusChange
	menu       []domain.MenuItem
	nextID     int64
	nextLogID  int64
	lastCreate time.Time
	now        func() time.Time
}

// New returns an empty order store whose catalog holds menu.
func New(menu []domain.MenuItem) *Store {
	items := make([]domain.MenuItem, len(menu))
	copy(items, menu)
	return &Store{
		orders:  make(map[int64]*domain.Order),
		history: make(map[int64][]*domain.StatusChange),
		menu:    items,
		now:     time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetItemCost changes a catalog price. Existing orders keep the cost they captured.
func (s *Store) SetItemCost(id int64, cost domain.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.menu {
		if s.menu[i].ID == id {
			s.menu[i].Cost = cost
		}
	}
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, o := range s.orders {
		if o.Active() {
			n++
		}
	}
	return n, nil
}

func (s *Store) Insert(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Метка времени строго возрастает в пределах хранилища
	created := s.now().UTC()
	if !created.After(s.lastCreate) {
		created = s.lastCreate.Add(time.Nanosecond)
	}
	s.lastCreate = created

	s.nextID++
	order.ID = s.nextID
	order.CreatedAt = created
	order.UpdatedAt = created

	s.orders[order.ID] = cloneOrder(order)
	s.appendHistory(order.ID, nil, order.Status, "order-service", created)
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, from, to domain.Status, changedBy string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, domain.ErrInvalidTransition
	}

	at := s.now().UTC()
	o.Status = to
	o.UpdatedAt = at
	if to == domain.StatusCompleted {
		o.CompletedAt = &at
	} else {
		o.CompletedAt = nil
	}

	prev := from
	s.appendHistory(id, &prev, to, changedBy, at)
	return cloneOrder(o), nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) QueryActive(ctx context.Context) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.orders {
		if o.Active() {
			out = append(out, cloneOrder(o))
		}
	}
	// Map iteration order is random; hand out insertion order like a table scan.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) QueryByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) StatusHistory(ctx context.Context, id int64) ([]*domain.StatusChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := s.history[id]
	out := make([]*domain.StatusChange, len(logs))
	for i, l := range logs {
		c := *l
		out[i] = &c
	}
	return out, nil
}

func (s *Store) ResolveItem(ctx context.Context, nameOrID string) (domain.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.MenuItem{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref := strings.TrimSpace(nameOrID)
	id, byID := domain.ParseItemRef(ref)
	for _, item := range s.menu {
		if byID && item.ID == id {
			return item, nil
		}
		if !byID && strings.EqualFold(item.Name, ref) {
			return item, nil
		}
	}
	return domain.MenuItem{}, domain.ErrItemNotFound
}

func (s *Store) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MenuItem, len(s.menu))
	copy(out, s.menu)
	return out, nil
}

func (s *Store) appendHistory(orderID int64, from *domain.Status, to domain.Status, changedBy string, at time.Time) {
	s.nextLogID++
	s.history[orderID] = append(s.history[orderID], &domain.StatusChange{
		ID:        s.nextLogID,
		OrderID:   orderID,
		From:      from,
		To:        to,
		ChangedBy: changedBy,
		ChangedAt: at,
	})
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.LineItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
