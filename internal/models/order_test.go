package models_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusdelivery/internal/models"
)

var t0 = time.Date(2026, 10, 17, 11, 30, 0, 0, time.UTC)

func newOrder(t *testing.T) models.Order {
	t.Helper()
	order, err := models.NewOrder("2abcdefghijk", "acc-1", "Alex", t0)
	require.NoError(t, err)
	return order
}

func TestStatusCapabilities(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status                         models.OrderStatus
		modifiable, cancellable, final bool
		display                        string
	}{
		{models.OrderPending, true, true, false, "Pending"},
		{models.OrderConfirmed, false, true, false, "Confirmed"},
		{models.OrderDispatched, false, true, false, "Dispatched"},
		{models.OrderDelivered, false, false, true, "Delivered"},
		{models.OrderCancelled, false, false, true, "Cancelled"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.modifiable, tc.status.CanBeModified(), tc.status)
		assert.Equal(t, tc.cancellable, tc.status.CanBeCancelled(), tc.status)
		assert.Equal(t, tc.final, tc.status.IsTerminal(), tc.status)
		assert.Equal(t, tc.display, tc.status.DisplayName(), tc.status)
		assert.NotEmpty(t, tc.status.Description())
	}

	assert.False(t, models.OrderStatus("LOST").Valid())
	parsed, err := models.ParseOrderStatus(" delivered ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, parsed)
	_, err = models.ParseOrderStatus("LOST")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestOrderHappyPath(t *testing.T) {
	t.Parallel()

	order := newOrder(t)
	require.NoError(t, order.AddItem(models.OrderItem{Type: models.ItemChips, Description: "BBQ chips", PriceCents: 150}, t0))
	require.NoError(t, order.AddItem(models.OrderItem{Type: models.ItemDrink, Description: "large cola", PriceCents: 300}, t0))

	later := t0.Add(time.Minute)
	require.NoError(t, order.Confirm(later))
	require.NoError(t, order.Dispatch(later))
	require.NoError(t, order.Deliver(later))

	assert.Equal(t, models.OrderDelivered, order.Status)
	assert.Equal(t, later, order.UpdatedAt)
	assert.Equal(t, int64(450), order.TotalCents())
}

func TestOrderTransitionsAreGuarded(t *testing.T) {
	t.Parallel()

	order := newOrder(t)
	assert.ErrorIs(t, order.Confirm(t0), models.ErrEmptyOrder)
	assert.ErrorIs(t, order.Dispatch(t0), models.ErrOrderTransition)
	assert.ErrorIs(t, order.Deliver(t0), models.ErrOrderTransition)

	require.NoError(t, order.AddItem(models.OrderItem{Type: models.ItemChips, Description: "chips", PriceCents: 150}, t0))
	require.NoError(t, order.Confirm(t0))

	err := order.AddItem(models.OrderItem{Type: models.ItemChips, Description: "chips", PriceCents: 150}, t0)
	var terr *models.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "modify", terr.Action)
	assert.Equal(t, models.OrderConfirmed, terr.From)

	require.NoError(t, order.Cancel(t0))
	assert.ErrorIs(t, order.Cancel(t0), models.ErrOrderTransition)
}

func TestDeliveredOrderCannotBeCancelled(t *testing.T) {
	t.Parallel()

	order := newOrder(t)
	require.NoError(t, order.AddItem(models.OrderItem{Type: models.ItemChips, Description: "chips", PriceCents: 150}, t0))
	require.NoError(t, order.Confirm(t0))
	require.NoError(t, order.Dispatch(t0))
	require.NoError(t, order.Deliver(t0))

	assert.ErrorIs(t, order.Cancel(t0), models.ErrOrderTransition)
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()

	order := newOrder(t)
	require.NoError(t, order.AddItem(models.OrderItem{Description: "a", PriceCents: 100}, t0))
	require.NoError(t, order.AddItem(models.OrderItem{Description: "b", PriceCents: 200}, t0))

	require.NoError(t, order.RemoveItem(0, t0))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "b", order.Items[0].Description)
	assert.ErrorIs(t, order.RemoveItem(3, t0), models.ErrValidation)
}

func TestReceipt(t *testing.T) {
	t.Parallel()

	order := newOrder(t)
	require.NoError(t, order.AddItem(models.OrderItem{Type: models.ItemSandwich, Description: `8" wheat sandwich`, PriceCents: 700}, t0))
	require.NoError(t, order.AddItem(models.OrderItem{Type: models.ItemChips, Description: "BBQ chips", PriceCents: 150}, t0))

	receipt := order.Receipt()
	assert.Contains(t, receipt, "ORDER #2ABCDEFG\n")
	assert.Contains(t, receipt, "Customer: Alex\n")
	assert.Contains(t, receipt, "Status: Pending\n")
	assert.Contains(t, receipt, "1. 8\" wheat sandwich - $7.00\n")
	assert.Contains(t, receipt, "2. BBQ chips - $1.50\n")
	assert.Contains(t, receipt, "TOTAL: $8.50\n")
	assert.True(t, strings.HasPrefix(receipt, strings.Repeat("=", 50)+"\n"))
}

func TestNewOrderRequiresCustomer(t *testing.T) {
	t.Parallel()

	_, err := models.NewOrder("id", "acc-1", "  ", t0)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = models.NewOrder("id", "", "Alex", t0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestFormatCents(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$0.00", models.FormatCents(0))
	assert.Equal(t, "$2.05", models.FormatCents(205))
	assert.Equal(t, "-$1.50", models.FormatCents(-150))
}
