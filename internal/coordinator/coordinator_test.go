package coordinator

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-store-ledger.git/internal/catalog"
	"github.com/ariefcatur/go-store-ledger.git/internal/ledger"
	"github.com/ariefcatur/go-store-ledger.git/internal/memstore"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	coord   *Coordinator
	catalog *catalog.Service
	ledger  *ledger.Service
	store   *memstore.Store
}

func newFixture() *fixture {
	st := memstore.New()
	return &fixture{
		coord:   &Coordinator{Store: st},
		catalog: &catalog.Service{Store: st},
		ledger:  &ledger.Service{Store: st},
		store:   st,
	}
}

func (f *fixture) product(t *testing.T, name string, priceCents, stock int) store.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), name, priceCents, stock)
	require.NoError(t, err)
	return p
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// checkReconciled asserts stock == sum of journaled movements for the product.
func (f *fixture) checkReconciled(t *testing.T, productID string) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(tx store.Tx) error {
		p, err := tx.GetProduct(context.Background(), productID)
		require.NoError(t, err)
		sum, err := tx.SumMovements(context.Background(), productID)
		require.NoError(t, err)
		assert.Equal(t, p.Stock, sum, "stock must equal movement sum")
		return nil
	})
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestPlaceOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", o.OrderNumber)
	assert.Equal(t, store.StatusPending, o.Status)
	assert.Equal(t, 200, o.UnitPriceCents)
	assert.Equal(t, 800, o.TotalCents)
	assert.Equal(t, "Widget", o.ProductName)
	assert.Equal(t, 6, f.stockOf(t, p.ID))
	f.checkReconciled(t, p.ID)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	_, err := f.coord.PlaceOrder(ctx, p.ID, 0)
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = f.coord.PlaceOrder(ctx, p.ID, -3)
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = f.coord.PlaceOrder(ctx, "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, 10, f.stockOf(t, p.ID))
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 3)

	_, err := f.coord.PlaceOrder(ctx, p.ID, 5)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	// atomicity: no order record, stock untouched
	os, err := f.ledger.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, os)
	assert.Equal(t, 3, f.stockOf(t, p.ID))
	f.checkReconciled(t, p.ID)
}

func TestOrderNumbersSurviveDeletion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 100, 100)

	o1, err := f.coord.PlaceOrder(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", o1.OrderNumber)

	_, err = f.coord.DeleteOrder(ctx, o1.OrderNumber)
	require.NoError(t, err)

	// next number must not be re-derived from the surviving row count
	o2, err := f.coord.PlaceOrder(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", o2.OrderNumber)

	o3, err := f.coord.PlaceOrder(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "ORD-3", o3.OrderNumber)
}

// The end-to-end scenario: stock 10, price 2.00. Place 4 -> total 8.00,
// stock 6. Edit to 7 -> stock 3, total 14.00. Place 5 -> insufficient.
func TestEditOrderRestoreThenReapply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 800, o.TotalCents)
	assert.Equal(t, 6, f.stockOf(t, p.ID))

	// 6 on hand + 4 restored = 10, enough for 7
	o, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Quantity: ptr(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, o.Quantity)
	assert.Equal(t, 1400, o.TotalCents)
	assert.Equal(t, 3, f.stockOf(t, p.ID))

	_, err = f.coord.PlaceOrder(ctx, p.ID, 5)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 3, f.stockOf(t, p.ID))
	f.checkReconciled(t, p.ID)
}

func TestEditOrderSwitchProduct(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.product(t, "A", 100, 5)
	b := f.product(t, "B", 300, 3)

	o, err := f.coord.PlaceOrder(ctx, a.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, f.stockOf(t, a.ID))

	o, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{ProductID: ptr(b.ID), Quantity: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, b.ID, o.ProductID)
	assert.Equal(t, "B", o.ProductName)
	assert.Equal(t, 300, o.UnitPriceCents) // re-snapshot of the new product
	assert.Equal(t, 600, o.TotalCents)
	assert.Equal(t, 5, f.stockOf(t, a.ID)) // fully restored
	assert.Equal(t, 1, f.stockOf(t, b.ID))
	f.checkReconciled(t, a.ID)
	f.checkReconciled(t, b.ID)
}

func TestEditOrderFailureIsNetNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)

	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Quantity: ptr(20)})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	// the interim restoration must have been rolled back too
	assert.Equal(t, 6, f.stockOf(t, p.ID))
	got, err := f.ledger.Get(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, 800, got.TotalCents)
	f.checkReconciled(t, p.ID)

	// switching to a missing product rolls back the same way
	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{ProductID: ptr("missing")})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 6, f.stockOf(t, p.ID))
}

func TestEditOrderStatusMachine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 2)
	require.NoError(t, err)

	o, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusShipped)})
	require.NoError(t, err)
	assert.Equal(t, store.StatusShipped, o.Status)

	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusPending)})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.Status("LOST"))})
	assert.ErrorIs(t, err, store.ErrValidation)

	o, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusCompleted)})
	require.NoError(t, err)

	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusCancelled)})
	assert.ErrorIs(t, err, store.ErrValidation, "completed is terminal")
}

func TestStatusOnlyEditKeepsInvoiceSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)

	// a later catalog price change must not rewrite the existing invoice
	_, err = f.catalog.EditFields(ctx, p.ID, catalog.EditRequest{PriceCents: ptr(500)})
	require.NoError(t, err)

	o, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusShipped)})
	require.NoError(t, err)
	assert.Equal(t, 200, o.UnitPriceCents)
	assert.Equal(t, 800, o.TotalCents)
	assert.Equal(t, 6, f.stockOf(t, p.ID))
}

func TestDeleteOrderRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stockOf(t, p.ID))

	_, err = f.coord.DeleteOrder(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stockOf(t, p.ID))

	_, err = f.ledger.Get(ctx, o.OrderNumber)
	assert.ErrorIs(t, err, store.ErrNotFound)
	f.checkReconciled(t, p.ID)
}

func TestDeleteOrderNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	_, err := f.coord.DeleteOrder(ctx, "ORD-404")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 10, f.stockOf(t, p.ID))
}

func TestCancelAndRestock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)

	o, err = f.coord.CancelAndRestock(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, o.Status)
	assert.True(t, o.Restocked)
	assert.Equal(t, 10, f.stockOf(t, p.ID))
	f.checkReconciled(t, p.ID)

	// deleting a restocked order must not return the stock twice
	_, err = f.coord.DeleteOrder(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stockOf(t, p.ID))
	f.checkReconciled(t, p.ID)
}

func TestCancelViaStatusDoesNotRestock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)

	o, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, store.StatusCancelled, o.Status)
	assert.False(t, o.Restocked)
	assert.Equal(t, 6, f.stockOf(t, p.ID), "plain cancellation keeps the stock consumed")

	// the held stock comes back on delete
	_, err = f.coord.DeleteOrder(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stockOf(t, p.ID))
	f.checkReconciled(t, p.ID)
}

func TestEditRestockedOrderRefused(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)
	_, err = f.coord.CancelAndRestock(ctx, o.OrderNumber)
	require.NoError(t, err)

	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Quantity: ptr(2)})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 10, f.stockOf(t, p.ID))
}

func TestDeleteOrderAfterProductDeleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 200, 10)

	o, err := f.coord.PlaceOrder(ctx, p.ID, 4)
	require.NoError(t, err)

	// drive the order terminal so the product may be deleted
	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusShipped)})
	require.NoError(t, err)
	_, err = f.coord.EditOrder(ctx, o.OrderNumber, EditRequest{Status: ptr(store.StatusCompleted)})
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(ctx, p.ID))

	// nothing left to restore, but the delete must still succeed
	_, err = f.coord.DeleteOrder(ctx, o.OrderNumber)
	require.NoError(t, err)
	_, err = f.ledger.Get(ctx, o.OrderNumber)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// stock = initial - sum(quantity of live, non-restocked orders) after an
// arbitrary successful sequence.
func TestStockLedgerInvariant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "Widget", 150, 50)

	o1, err := f.coord.PlaceOrder(ctx, p.ID, 10)
	require.NoError(t, err)
	o2, err := f.coord.PlaceOrder(ctx, p.ID, 5)
	require.NoError(t, err)
	_, err = f.coord.PlaceOrder(ctx, p.ID, 8)
	require.NoError(t, err)

	_, err = f.coord.EditOrder(ctx, o1.OrderNumber, EditRequest{Quantity: ptr(12)})
	require.NoError(t, err)
	_, err = f.coord.DeleteOrder(ctx, o2.OrderNumber)
	require.NoError(t, err)

	// held: 12 + 8 = 20; 50 - 20 = 30
	assert.Equal(t, 30, f.stockOf(t, p.ID))
	f.checkReconciled(t, p.ID)
}
