package memory

import (
	"context"
	"testing"
	"time"

	"github.com/YelzhanWeb/kitchen/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T, customer string) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(customer, domain.PriorityHigh, []domain.LineItem{
		{MenuItemID: 2, Name: "Chicken Biryani", Quantity: 1, UnitCost: 320},
	})
	require.NoError(t, err)
	return o
}

func TestInsertAssignsIDsAndMonotonicTimes(t *testing.T) {
	s := New(domain.DefaultMenu)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })
	ctx := context.Background()

	a, b := newOrder(t, "c"), newOrder(t, "c")
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, fixed, a.CreatedAt)
	assert.True(t, b.CreatedAt.After(a.CreatedAt))
}

func TestStoredOrderIsACopy(t *testing.T) {
	s := New(domain.DefaultMenu)
	ctx := context.Background()

	o := newOrder(t, "c")
	require.NoError(t, s.Insert(ctx, o))

	o.Items[0].Quantity = 50
	o.Status = domain.StatusCompleted

	stored, err := s.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Items[0].Quantity)
	assert.Equal(t, domain.StatusPending, stored.Status)

	n, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	s := New(domain.DefaultMenu)
	ctx := context.Background()

	o := newOrder(t, "c")
	require.NoError(t, s.Insert(ctx, o))

	_, err := s.UpdateStatus(ctx, o.ID, domain.StatusPreparing, domain.StatusCompleted, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.UpdateStatus(ctx, 42, domain.StatusPending, domain.StatusPreparing, "x")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	updated, err := s.UpdateStatus(ctx, o.ID, domain.StatusPending, domain.StatusPreparing, "x")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, updated.Status)

	updated, err = s.UpdateStatus(ctx, o.ID, domain.StatusPreparing, domain.StatusCompleted, "x")
	require.NoError(t, err)
	assert.NotNil(t, updated.CompletedAt)

	active, err := s.QueryActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	history, err := s.StatusHistory(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestResolveItem(t *testing.T) {
	s := New(domain.DefaultMenu)
	ctx := context.Background()

	item, err := s.ResolveItem(ctx, "butter NAAN")
	require.NoError(t, err)
	assert.Equal(t, int64(15), item.ID)

	item, err = s.ResolveItem(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Chicken Biryani", item.Name)

	_, err = s.ResolveItem(ctx, "Sushi")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = s.ResolveItem(ctx, "99")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestSetItemCostKeepsCapturedCost(t *testing.T) {
	s := New(domain.DefaultMenu)
	ctx := context.Background()

	o := newOrder(t, "c")
	require.NoError(t, s.Insert(ctx, o))

	s.SetItemCost(2, 1)

	item, err := s.ResolveItem(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1), item.Cost)

	stored, err := s.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(320), stored.Total)

	// the caller's menu slice is not shared
	assert.Equal(t, domain.Money(320), domain.DefaultMenu[1].Cost)
}

func TestCanceledContext(t *testing.T) {
	s := New(domain.DefaultMenu)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CountActive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Insert(ctx, newOrder(t, "c")), context.Canceled)
}
