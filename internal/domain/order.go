package domain

import (
	"fmt"
	"strings"
	"time"
)

// Money is an amount in whole menu currency units.
type Money int64

// MenuItem is a catalog entry as resolved at order time.
type MenuItem struct {
	ID   int64
	Name string
	Cost Money
}

// LineItem is one resolved line of an order. UnitCost is captured when
// the order is built and never recomputed.
type LineItem struct {
	MenuItemID int64
	Name       string
	Quantity   int
	UnitCost   Money
}

// Subtotal returns unit cost times quantity.
func (li LineItem) Subtotal() Money {
	return li.UnitCost * Money(li.Quantity)
}

// Order represents a kitchen order entity
type Order struct {
	ID          int64
	CustomerID  string
	Items       []LineItem
	Total       Money
	Priority    Priority
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// NewOrder creates a pending order and computes its total once.
func NewOrder(customerID string, priority Priority, items []LineItem) (*Order, error) {
	order := &Order{
		CustomerID: strings.TrimSpace(customerID),
		Items:      items,
		Priority:   priority,
		Status:     StatusPending,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.Total = order.computeTotal()
	return order, nil
}

// Validate applies business validation rules
func (o *Order) Validate() error {
	if o.CustomerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidOrder)
	}
	if !o.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority", ErrInvalidOrder)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrInvalidOrder)
	}

	for _, item := range o.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: quantity of %q must be at least 1", ErrInvalidOrder, item.Name)
		}
		if item.UnitCost < 0 {
			return fmt.Errorf("%w: unit cost of %q is negative", ErrInvalidOrder, item.Name)
		}
	}

	return nil
}

func (o *Order) computeTotal() Money {
	var total Money
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// TransitionTo moves the order to newStatus if policy allows it.
func (o *Order) TransitionTo(policy TransitionPolicy, newStatus Status, at time.Time) error {
	if err := policy.Check(o.Status, newStatus); err != nil {
		return err
	}

	o.Status = newStatus
	o.UpdatedAt = at
	if newStatus == StatusCompleted {
		o.CompletedAt = &at
	}
	return nil
}

// Active reports whether the order still occupies kitchen capacity.
func (o *Order) Active() bool {
	return o.Status.Active()
}
