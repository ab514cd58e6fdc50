// Package admission decides whether a new order may enter the kitchen.
package admission

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/metrics"
)

const DefaultMaxCapacity = 5

// ActiveCounter is the part of the order repository the controller needs.
type ActiveCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// Controller enforces the maximum number of in-flight orders. A slot is
// held by a Reservation from TryAdmit until Release, so two submissions
// cannot both pass the check on the same count.
type Controller struct {
	counter     ActiveCounter
	maxCapacity int
	metrics     *metrics.Metrics

	// lock is a one-slot semaphore so waiting on it can honor ctx.
	lock        chan struct{}
	mu          sync.Mutex
	outstanding int
}

func NewController(counter ActiveCounter, maxCapacity int, m *metrics.Metrics) *Controller {
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxCapacity
	}
	return &Controller{
		counter:     counter,
		maxCapacity: maxCapacity,
		metrics:     m,
		lock:        make(chan struct{}, 1),
	}
}

func (c *Controller) MaxCapacity() int {
	return c.maxCapacity
}

// TryAdmit returns a Reservation when the kitchen has room, or
// domain.ErrCapacityExceeded when active plus reserved orders reach the limit.
func (c *Controller) TryAdmit(ctx context.Context) (*Reservation, error) {
	select {
	case c.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.lock }()

	// active и outstanding читаются под одним mu, release ждёт подсчёта
	c.mu.Lock()
	defer c.mu.Unlock()

	active, err := c.counter.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active orders: %w", err)
	}

	if active+c.outstanding >= c.maxCapacity {
		c.metrics.ObserveAdmission("rejected")
		return nil, fmt.Errorf("%w (%d/%d active)", domain.ErrCapacityExceeded, active+c.outstanding, c.maxCapacity)
	}

	c.outstanding++
	c.metrics.ObserveAdmission("admitted")
	return &Reservation{controller: c}, nil
}

// Outstanding returns the number of reservations not yet released.
// It blocks while an admission check is counting.
func (c *Controller) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outstanding > 0 {
		c.outstanding--
	}
}

// Reservation holds one capacity slot between admission and insert.
type Reservation struct {
	controller *Controller
	once       sync.Once
}

// Release frees the slot. It is safe to call more than once.
func (r *Reservation) Release() {
	if r == nil {
		return
	}
	r.once.Do(r.controller.release)
}
