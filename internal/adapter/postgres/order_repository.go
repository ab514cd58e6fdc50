package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"

	"github.com/jackc/pgx/v5"
)

type orderRepository struct {
	db DB

	mu         sync.Mutex
	lastCreate time.Time
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

func repoErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrRepository, op, err)
}

// createdAt returns a timestamp strictly after every one this repository
// handed out. The caller holds r.mu.
func (r *orderRepository) createdAt() time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(r.lastCreate) {
		now = r.lastCreate.Add(time.Microsecond)
	}
	r.lastCreate = now
	return now
}

func (r *orderRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status != $1`, string(domain.StatusCompleted)).Scan(&n)
	if err != nil {
		return 0, repoErr("count active orders", err)
	}
	return n, nil
}

func (r *orderRepository) Insert(ctx context.Context, order *domain.Order) error {
	// mu держится до коммита: id из sequence должен расти вместе с created_at
	r.mu.Lock()
	defer r.mu.Unlock()
	created := r.createdAt()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return repoErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Insert order
	query := `
		INSERT INTO orders (customer_id, total, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`
	var id int64
	err = tx.QueryRow(ctx, query,
		order.CustomerID, int64(order.Total), order.Priority.String(), string(order.Status), created,
	).Scan(&id)
	if err != nil {
		return repoErr("insert order", err)
	}

	// Insert order items
	for _, item := range order.Items {
		itemQuery := `
			INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_cost)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, itemQuery, id, item.MenuItemID, item.Name, item.Quantity, int64(item.UnitCost)); err != nil {
			return repoErr("insert order item", err)
		}
	}

	// Log initial status
	logQuery := `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at)
		VALUES ($1, NULL, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, logQuery, id, string(order.Status), "order-service", created); err != nil {
		return repoErr("log status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return repoErr("commit order", err)
	}

	order.ID = id
	order.CreatedAt = created
	order.UpdatedAt = created
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.Status, changedBy string) (*domain.Order, error) {
	at := time.Now().UTC()
	var completedAt *time.Time
	if to == domain.StatusCompleted {
		completedAt = &at
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, repoErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET status = $1, updated_at = $2, completed_at = $3
		WHERE id = $4 AND status = $5
	`
	tag, err := tx.Exec(ctx, query, string(to), at, completedAt, id, string(from))
	if err != nil {
		return nil, repoErr("update order status", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, repoErr("check order", err)
		}
		if !exists {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: order %d is no longer %s", domain.ErrInvalidTransition, id, from)
	}

	logQuery := `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, logQuery, id, string(from), string(to), changedBy, at); err != nil {
		return nil, repoErr("log status", err)
	}

	order, err := findByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, repoErr("commit status", err)
	}
	return order, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	return findByID(ctx, r.db, id)
}

func (r *orderRepository) QueryActive(ctx context.Context) ([]*domain.Order, error) {
	return queryOrders(ctx, r.db, orderColumns+` WHERE status != $1 ORDER BY id`, string(domain.StatusCompleted))
}

func (r *orderRepository) QueryByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return queryOrders(ctx, r.db, orderColumns+` WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
}

func (r *orderRepository) StatusHistory(ctx context.Context, orderID int64) ([]*domain.StatusChange, error) {
	query := `
		SELECT id, order_id, from_status, to_status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, repoErr("query status history", err)
	}
	defer rows.Close()

	var logs []*domain.StatusChange
	for rows.Next() {
		var (
			entry domain.StatusChange
			from  *string
			to    string
		)
		if err := rows.Scan(&entry.ID, &entry.OrderID, &from, &to, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, repoErr("scan status log", err)
		}
		if from != nil {
			st := domain.Status(*from)
			entry.From = &st
		}
		entry.To = domain.Status(to)
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("iterate status log", err)
	}

	return logs, nil
}

const orderColumns = `
	SELECT id, customer_id, total, priority, status, created_at, updated_at, completed_at
	FROM orders`

func scanOrder(row Row) (*domain.Order, error) {
	var (
		order            domain.Order
		total            int64
		priority, status string
	)
	if err := row.Scan(&order.ID, &order.CustomerID, &total, &priority, &status,
		&order.CreatedAt, &order.UpdatedAt, &order.CompletedAt); err != nil {
		return nil, err
	}

	p, err := domain.ParsePriority(priority)
	if err != nil {
		return nil, err
	}
	order.Total = domain.Money(total)
	order.Priority = p
	order.Status = domain.Status(status)
	return &order, nil
}

func findByID(ctx context.Context, q querier, id int64) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, orderColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, repoErr("find order", err)
	}
	if err := loadItems(ctx, q, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func queryOrders(ctx context.Context, q querier, query string, args ...any) ([]*domain.Order, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, repoErr("query orders", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, repoErr("scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("iterate orders", err)
	}
	rows.Close()

	if err := loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fetches the lines of all orders in one round trip.
func loadItems(ctx context.Context, q querier, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	itemsQuery := `
		SELECT order_id, menu_item_id, name, quantity, unit_cost
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`
	rows, err := q.Query(ctx, itemsQuery, ids)
	if err != nil {
		return repoErr("load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			item    domain.LineItem
			cost    int64
		)
		if err := rows.Scan(&orderID, &item.MenuItemID, &item.Name, &item.Quantity, &cost); err != nil {
			return repoErr("scan order item", err)
		}
		item.UnitCost = domain.Money(cost)
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return repoErr("iterate order items", err)
	}
	return nil
}
