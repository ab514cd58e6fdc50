package kitchen

import (
	"sort"

	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
)

// SortQueue orders active orders for the kitchen display: priority rank
// ascending, then submission time, then id. The sort is stable, so the
// result is deterministic for a fixed snapshot.
func SortQueue(orders []*domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return queueLess(orders[i], orders[j])
	})
}

func queueLess(a, b *domain.Order) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func toView(o *domain.Order) interfaces.OrderView {
	return interfaces.OrderView{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      o.Items,
		Total:      o.Total,
		Priority:   o.Priority,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
	}
}
