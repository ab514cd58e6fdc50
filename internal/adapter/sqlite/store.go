// Package sqlite provides a SQLite-backed order store and menu catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/adapter/sqlite/migrations"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	_ "modernc.org/sqlite"
)

// Store persists orders in SQLite.
type Store struct {
	sqlDB *sql.DB

	// mu serializes inserts; lastCreate keeps creation times strictly increasing.
	mu         sync.Mutex
	lastCreate int64
	now        func() time.Time
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

func repoErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrRepository, op, err)
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Один писатель: SQLite сериализует запись, пул из одного соединения убирает SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, now: time.Now}
	var last sql.NullInt64
	if err := sqlDB.QueryRowContext(ctx, `SELECT MAX(created_at) FROM orders`).Scan(&last); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("read last order time: %w", err)
	}
	s.lastCreate = last.Int64
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE status != ?`, domain.StatusCompleted,
	).Scan(&n)
	if err != nil {
		return 0, repoErr("count active orders", err)
	}
	return n, nil
}

// Insert holds mu until commit so ids and creation times grow together.
func (s *Store) Insert(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := toNanos(s.now())
	if created <= s.lastCreate {
		created = s.lastCreate + 1
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return repoErr("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (customer_id, total, priority, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		order.CustomerID, int64(order.Total), order.Priority.String(), order.Status, created, created,
	)
	if err != nil {
		return repoErr("insert order", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return repoErr("read order id", err)
	}

	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_cost)
			 VALUES (?, ?, ?, ?, ?)`,
			id, item.MenuItemID, item.Name, item.Quantity, int64(item.UnitCost),
		); err != nil {
			return repoErr("insert order item", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at)
		 VALUES (?, NULL, ?, ?, ?)`,
		id, order.Status, "order-service", created,
	); err != nil {
		return repoErr("log status", err)
	}

	if err := tx.Commit(); err != nil {
		return repoErr("commit order", err)
	}
	s.lastCreate = created

	order.ID = id
	order.CreatedAt = fromNanos(created)
	order.UpdatedAt = order.CreatedAt
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, from, to domain.Status, changedBy string) (*domain.Order, error) {
	at := toNanos(s.now())
	var completedAt sql.NullInt64
	if to == domain.StatusCompleted {
		completedAt = sql.NullInt64{Int64: at, Valid: true}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, repoErr("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		to, at, completedAt, id, from,
	)
	if err != nil {
		return nil, repoErr("update order status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, repoErr("update order status", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, id).Scan(&exists); err != nil {
			return nil, repoErr("check order", err)
		}
		if exists == 0 {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: order %d is no longer %s", domain.ErrInvalidTransition, id, from)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, from, to, changedBy, at,
	); err != nil {
		return nil, repoErr("log status", err)
	}

	order, err := findByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, repoErr("commit status", err)
	}
	return order, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	return findByID(ctx, s.sqlDB, id)
}

func (s *Store) QueryActive(ctx context.Context) ([]*domain.Order, error) {
	return queryOrders(ctx, s.sqlDB, orderColumns+` WHERE status != ? ORDER BY id`, domain.StatusCompleted)
}

func (s *Store) QueryByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return queryOrders(ctx, s.sqlDB, orderColumns+` WHERE customer_id = ? ORDER BY created_at DESC, id DESC`, customerID)
}

func (s *Store) StatusHistory(ctx context.Context, id int64) ([]*domain.StatusChange, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, order_id, from_status, to_status, changed_by, changed_at
		 FROM order_status_log WHERE order_id = ? ORDER BY changed_at ASC, id ASC`, id)
	if err != nil {
		return nil, repoErr("query status history", err)
	}
	defer rows.Close()

	var logs []*domain.StatusChange
	for rows.Next() {
		var (
			entry     domain.StatusChange
			from      sql.NullString
			to        string
			changedAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.OrderID, &from, &to, &entry.ChangedBy, &changedAt); err != nil {
			return nil, repoErr("scan status log", err)
		}
		if from.Valid {
			st := domain.Status(from.String)
			entry.From = &st
		}
		entry.To = domain.Status(to)
		entry.ChangedAt = fromNanos(changedAt)
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("iterate status log", err)
	}
	return logs, nil
}

func (s *Store) ResolveItem(ctx context.Context, nameOrID string) (domain.MenuItem, error) {
	ref := strings.TrimSpace(nameOrID)

	var row *sql.Row
	if id, ok := domain.ParseItemRef(ref); ok {
		row = s.sqlDB.QueryRowContext(ctx, `SELECT id, name, cost FROM menu_items WHERE id = ?`, id)
	} else {
		row = s.sqlDB.QueryRowContext(ctx, `SELECT id, name, cost FROM menu_items WHERE name = ? COLLATE NOCASE`, ref)
	}

	var (
		item domain.MenuItem
		cost int64
	)
	if err := row.Scan(&item.ID, &item.Name, &cost); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MenuItem{}, domain.ErrItemNotFound
		}
		return domain.MenuItem{}, repoErr("resolve menu item", err)
	}
	item.Cost = domain.Money(cost)
	return item, nil
}

func (s *Store) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, cost FROM menu_items ORDER BY id`)
	if err != nil {
		return nil, repoErr("list menu", err)
	}
	defer rows.Close()

	var menu []domain.MenuItem
	for rows.Next() {
		var (
			item domain.MenuItem
			cost int64
		)
		if err := rows.Scan(&item.ID, &item.Name, &cost); err != nil {
			return nil, repoErr("scan menu item", err)
		}
		item.Cost = domain.Money(cost)
		menu = append(menu, item)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("iterate menu", err)
	}
	return menu, nil
}

// SetItemCost changes a catalog price. Orders keep the cost they captured.
func (s *Store) SetItemCost(ctx context.Context, id int64, cost domain.Money) error {
	if _, err := s.sqlDB.ExecContext(ctx, `UPDATE menu_items SET cost = ? WHERE id = ?`, int64(cost), id); err != nil {
		return repoErr("update menu item", err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const orderColumns = `SELECT id, customer_id, total, priority, status, created_at, updated_at, completed_at FROM orders`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		order                domain.Order
		total                int64
		priority, status     string
		createdAt, updatedAt int64
		completedAt          sql.NullInt64
	)
	if err := row.Scan(&order.ID, &order.CustomerID, &total, &priority, &status, &createdAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}

	p, err := domain.ParsePriority(priority)
	if err != nil {
		return nil, err
	}
	order.Total = domain.Money(total)
	order.Priority = p
	order.Status = domain.Status(status)
	order.CreatedAt = fromNanos(createdAt)
	order.UpdatedAt = fromNanos(updatedAt)
	if completedAt.Valid {
		t := fromNanos(completedAt.Int64)
		order.CompletedAt = &t
	}
	return &order, nil
}

func findByID(ctx context.Context, q queryer, id int64) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, orderColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, repoErr("find order", err)
	}
	if err := loadItems(ctx, q, order); err != nil {
		return nil, err
	}
	return order, nil
}

func queryOrders(ctx context.Context, q queryer, query string, args ...any) ([]*domain.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repoErr("query orders", err)
	}

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, repoErr("scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, repoErr("iterate orders", err)
	}
	// Закрываем до загрузки позиций: в пуле одно соединение
	rows.Close()

	for _, order := range orders {
		if err := loadItems(ctx, q, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func loadItems(ctx context.Context, q queryer, order *domain.Order) error {
	rows, err := q.QueryContext(ctx,
		`SELECT menu_item_id, name, quantity, unit_cost FROM order_items WHERE order_id = ? ORDER BY id`, order.ID)
	if err != nil {
		return repoErr("load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item domain.LineItem
			cost int64
		)
		if err := rows.Scan(&item.MenuItemID, &item.Name, &item.Quantity, &cost); err != nil {
			return repoErr("scan order item", err)
		}
		item.UnitCost = domain.Money(cost)
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return repoErr("iterate order items", err)
	}
	return nil
}
