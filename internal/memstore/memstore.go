// Package memstore is an in-memory store.Store used by tests and by the
// -mem demo mode of cmd/api.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ariefcatur/go-store-ledger.git/internal/store"
)

type state struct {
	products  map[string]store.Product
	orders    map[string]store.Order // keyed by order number
	movements []store.StockMovement
	counter   int64
}

func (s *state) clone() *state {
	c := &state{
		products:  make(map[string]store.Product, len(s.products)),
		orders:    make(map[string]store.Order, len(s.orders)),
		movements: append([]store.StockMovement(nil), s.movements...),
		counter:   s.counter,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

// Store runs every transaction against a staged copy of the state and swaps
// it in on commit, so a failed fn leaves nothing behind. One mutex per store:
// a single logical writer, which also serializes stock checks.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		products: make(map[string]store.Product),
		orders:   make(map[string]store.Order),
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.st.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

type memTx struct{ st *state }

func (t *memTx) GetProduct(ctx context.Context, id string) (store.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return store.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return p, nil
}

// Row locking is a no-op here: the store mutex already serializes writers.
func (t *memTx) GetProductForUpdate(ctx context.Context, id string) (store.Product, error) {
	return t.GetProduct(ctx, id)
}

func (t *memTx) InsertProduct(ctx context.Context, p store.Product) error {
	if _, exists := t.st.products[p.ID]; exists {
		return fmt.Errorf("%w: product %s already exists", store.ErrConflict, p.ID)
	}
	t.st.products[p.ID] = p
	return nil
}

func (t *memTx) UpdateProduct(ctx context.Context, p store.Product) error {
	if _, ok := t.st.products[p.ID]; !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, p.ID)
	}
	t.st.products[p.ID] = p
	return nil
}

func (t *memTx) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := t.st.products[id]; !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	delete(t.st.products, id)
	return nil
}

func (t *memTx) ListProducts(ctx context.Context) ([]store.Product, error) {
	out := make([]store.Product, 0, len(t.st.products))
	for _, p := range t.st.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	if p.Stock+delta < 0 {
		return fmt.Errorf("%w: product %s has %d, delta %d", store.ErrInsufficientStock, productID, p.Stock, delta)
	}
	p.Stock += delta
	t.st.products[productID] = p
	return nil
}

func (t *memTx) RecordMovement(ctx context.Context, m store.StockMovement) error {
	t.st.movements = append(t.st.movements, m)
	return nil
}

func (t *memTx) SumMovements(ctx context.Context, productID string) (int, error) {
	sum := 0
	for _, m := range t.st.movements {
		if m.ProductID == productID {
			sum += m.Delta
		}
	}
	return sum, nil
}

func (t *memTx) NextOrderNumber(ctx context.Context) (int64, error) {
	t.st.counter++
	return t.st.counter, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o store.Order) error {
	if _, exists := t.st.orders[o.OrderNumber]; exists {
		return fmt.Errorf("%w: order %s already exists", store.ErrConflict, o.OrderNumber)
	}
	t.st.orders[o.OrderNumber] = o
	return nil
}

func (t *memTx) GetOrder(ctx context.Context, orderNumber string) (store.Order, error) {
	o, ok := t.st.orders[orderNumber]
	if !ok {
		return store.Order{}, fmt.Errorf("%w: order %s", store.ErrNotFound, orderNumber)
	}
	return o, nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o store.Order) error {
	if _, ok := t.st.orders[o.OrderNumber]; !ok {
		return fmt.Errorf("%w: order %s", store.ErrNotFound, o.OrderNumber)
	}
	t.st.orders[o.OrderNumber] = o
	return nil
}

func (t *memTx) RemoveOrder(ctx context.Context, orderNumber string) error {
	if _, ok := t.st.orders[orderNumber]; !ok {
		return fmt.Errorf("%w: order %s", store.ErrNotFound, orderNumber)
	}
	delete(t.st.orders, orderNumber)
	return nil
}

func (t *memTx) ListOrders(ctx context.Context) ([]store.Order, error) {
	out := make([]store.Order, 0, len(t.st.orders))
	for _, o := range t.st.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].OrderNumber < out[j].OrderNumber
	})
	return out, nil
}

func (t *memTx) CountLiveOrders(ctx context.Context, productID string) (int, error) {
	n := 0
	for _, o := range t.st.orders {
		if o.ProductID == productID && (o.Status == store.StatusPending || o.Status == store.StatusShipped) {
			n++
		}
	}
	return n, nil
}
