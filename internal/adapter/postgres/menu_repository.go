package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"

	"github.com/jackc/pgx/v5"
)

type menuRepository struct {
	db DB
}

func NewMenuRepository(db DB) interfaces.Catalog {
	return &menuRepository{db: db}
}

func (r *menuRepository) ResolveItem(ctx context.Context, nameOrID string) (domain.MenuItem, error) {
	ref := strings.TrimSpace(nameOrID)

	var row Row
	if id, ok := domain.ParseItemRef(ref); ok {
		row = r.db.QueryRow(ctx, `SELECT id, name, cost FROM menu_items WHERE id = $1`, id)
	} else {
		row = r.db.QueryRow(ctx, `SELECT id, name, cost FROM menu_items WHERE lower(name) = lower($1)`, ref)
	}

	var (
		item domain.MenuItem
		cost int64
	)
	if err := row.Scan(&item.ID, &item.Name, &cost); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MenuItem{}, domain.ErrItemNotFound
		}
		return domain.MenuItem{}, repoErr("resolve menu item", err)
	}
	item.Cost = domain.Money(cost)
	return item, nil
}

func (r *menuRepository) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, cost FROM menu_items ORDER BY id`)
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
