package kitchen

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/adapter/logger"
	"github.com/YelzhanWeb/kitchen/internal/adapter/memory"
	"github.com/YelzhanWeb/kitchen/internal/domain"
	"github.com/YelzhanWeb/kitchen/internal/interfaces"
	"github.com/YelzhanWeb/kitchen/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	admitted []interfaces.OrderAdmittedMessage
	changed  []interfaces.StatusChangedMessage
	err      error
}

func (p *recordingPublisher) PublishOrderAdmitted(_ context.Context, msg interfaces.OrderAdmittedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admitted = append(p.admitted, msg)
	return p.err
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, msg interfaces.StatusChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, msg)
	return p.err
}

func newTestService(t *testing.T, opts Options) (*Service, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New(domain.DefaultMenu)
	pub := &recordingPublisher{}
	svc := NewService(store, store, pub, logger.NewWithWriter("test", io.Discard), metrics.New(), opts)
	return svc, store, pub
}

func submit(t *testing.T, svc *Service, customer string, vip bool, items ...interfaces.RequestedItem) *domain.Order {
	t.Helper()
	if len(items) == 0 {
		items = []interfaces.RequestedItem{{Item: "Masala Dosa", Quantity: 1}}
	}
	res, err := svc.Submit(context.Background(), interfaces.SubmitOrderCommand{
		CustomerID: customer,
		IsVIP:      vip,
		Items:      items,
	})
	require.NoError(t, err)
	return res.Order
}

func TestSubmitVIPOrder(t *testing.T) {
	svc, _, pub := newTestService(t, Options{})

	order := submit(t, svc, "cust-1", true,
		interfaces.RequestedItem{Item: "Chicken Biryani", Quantity: 1},
		interfaces.RequestedItem{Item: "Butter Naan", Quantity: 2},
	)

	assert.Equal(t, domain.PriorityHigh, order.Priority)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, domain.Money(400), order.Total)

	require.Len(t, pub.admitted, 1)
	assert.Equal(t, order.ID, pub.admitted[0].OrderID)
	assert.Equal(t, domain.PriorityHigh, pub.admitted[0].Priority)
	assert.Len(t, pub.admitted[0].Items, 2)
}

func TestSubmitRegularCustomerIsMedium(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})

	order := submit(t, svc, "cust-2", false)
	assert.Equal(t, domain.PriorityMedium, order.Priority)
}

func TestSubmitRejectsWhenKitchenFull(t *testing.T) {
	svc, store, _ := newTestService(t, Options{MaxCapacity: 5})
	ctx := context.Background()

	var first *domain.Order
	for i := 0; i < 5; i++ {
		o := submit(t, svc, "c", false)
		if first == nil {
			first = o
		}
	}

	_, err := svc.Submit(ctx, interfaces.SubmitOrderCommand{
		CustomerID: "late",
		Items:      []interfaces.RequestedItem{{Item: "Masala Dosa", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	n, err := store.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// finishing one order frees a slot
	_, err = svc.Transition(ctx, first.ID, domain.StatusPreparing, "chef")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, first.ID, domain.StatusCompleted, "chef")
	require.NoError(t, err)

	submit(t, svc, "late", false)
}

func TestSubmitConcurrentRespectsCapacity(t *testing.T) {
	svc, store, _ := newTestService(t, Options{MaxCapacity: 3})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, interfaces.SubmitOrderCommand{
				CustomerID: "c",
				Items:      []interfaces.RequestedItem{{Item: "Pav Bhaji", Quantity: 1}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	}
	assert.Equal(t, 3, ok)

	n, err := store.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSubmitInvalidOrderReleasesSlot(t *testing.T) {
	svc, _, pub := newTestService(t, Options{MaxCapacity: 1})
	ctx := context.Background()

	_, err := svc.Submit(ctx, interfaces.SubmitOrderCommand{
		CustomerID: "c",
		Items:      []interfaces.RequestedItem{{Item: "Pizza", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	assert.Empty(t, pub.admitted)

	submit(t, svc, "c", false)
}

func TestSubmitSucceedsWhenPublishFails(t *testing.T) {
	svc, _, pub := newTestService(t, Options{})
	pub.err = errors.New("broker down")

	order := submit(t, svc, "c", false)
	assert.NotZero(t, order.ID)
}

func TestActiveOrdersPriorityBeforeTime(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})

	medium := submit(t, svc, "regular", false)
	high := submit(t, svc, "vip", true)

	views, err := svc.ActiveOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, high.ID, views[0].OrderID)
	assert.Equal(t, medium.ID, views[1].OrderID)
	assert.True(t, high.CreatedAt.After(medium.CreatedAt))
}

func TestActiveOrdersFIFOWithinPriority(t *testing.T) {
	svc, store, _ := newTestService(t, Options{})

	fixed := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })

	a := submit(t, svc, "a", false)
	b := submit(t, svc, "b", true)
	c := submit(t, svc, "c", false)
	d := submit(t, svc, "d", true)

	views, err := svc.ActiveOrders(context.Background())
	require.NoError(t, err)

	var ids []int64
	for _, v := range views {
		ids = append(ids, v.OrderID)
	}
	assert.Equal(t, []int64{b.ID, d.ID, a.ID, c.ID}, ids)

	again, err := svc.ActiveOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, views, again)
}

func TestTransitionLifecycle(t *testing.T) {
	svc, _, pub := newTestService(t, Options{})
	ctx := context.Background()
	order := submit(t, svc, "c", false)

	updated, err := svc.Transition(ctx, order.ID, domain.StatusPreparing, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, updated.Status)

	views, err := svc.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.StatusPreparing, views[0].Status)

	updated, err = svc.Transition(ctx, order.ID, domain.StatusCompleted, "chef-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	views, err = svc.ActiveOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)

	require.Len(t, pub.changed, 2)
	assert.Equal(t, defaultChangedBy, pub.changed[0].ChangedBy)
	assert.Equal(t, domain.StatusPending, pub.changed[0].OldStatus)
	assert.Equal(t, "chef-1", pub.changed[1].ChangedBy)
	assert.Equal(t, domain.StatusCompleted, pub.changed[1].NewStatus)
}

func TestTransitionErrors(t *testing.T) {
	svc, _, pub := newTestService(t, Options{})
	ctx := context.Background()
	order := submit(t, svc, "c", false)

	_, err := svc.Transition(ctx, order.ID, domain.StatusCompleted, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Transition(ctx, order.ID, domain.Status("burnt"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Transition(ctx, 999, domain.StatusPreparing, "")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.Transition(ctx, order.ID, domain.StatusPreparing, "")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, order.ID, domain.StatusPending, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Len(t, pub.changed, 1)
}

func TestTransitionDirectCompleteOption(t *testing.T) {
	svc, _, _ := newTestService(t, Options{AllowDirectComplete: true})
	order := submit(t, svc, "c", false)

	updated, err := svc.Transition(context.Background(), order.ID, domain.StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
}

func TestTransitionConcurrentSameOrder(t *testing.T) {
	svc, store, _ := newTestService(t, Options{})
	ctx := context.Background()
	order := submit(t, svc, "c", false)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transition(ctx, order.ID, domain.StatusPreparing, "")
			if err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, 0, svc.locks.size())

	history, err := store.StatusHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestTotalUnaffectedByPriceChange(t *testing.T) {
	svc, store, _ := newTestService(t, Options{})
	ctx := context.Background()

	order := submit(t, svc, "c", false, interfaces.RequestedItem{Item: "Butter Naan", Quantity: 3})
	require.Equal(t, domain.Money(120), order.Total)

	store.SetItemCost(15, 999)

	_, err := svc.Transition(ctx, order.ID, domain.StatusPreparing, "")
	require.NoError(t, err)

	views, err := svc.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.Money(120), views[0].Total)
	assert.Equal(t, domain.Money(40), views[0].Items[0].UnitCost)
}

func TestMenu(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})

	menu, err := svc.Menu(context.Background())
	require.NoError(t, err)
	assert.Len(t, menu, len(domain.DefaultMenu))
}
