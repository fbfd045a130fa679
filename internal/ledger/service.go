// Package ledger reads order records and owns the order-number format.
// All mutations go through the coordinator.
package ledger

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-store-ledger.git/internal/store"
)

// FormatOrderNumber renders the externally visible number. The value comes
// from the durable counter, not from a row count.
func FormatOrderNumber(n int64) string { return fmt.Sprintf("ORD-%d", n) }

type Service struct {
	Store store.Store
}

func (s *Service) Get(ctx context.Context, orderNumber string) (store.Order, error) {
	var o store.Order
	err := s.Store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, orderNumber)
		return err
	})
	return o, err
}

func (s *Service) List(ctx context.Context) ([]store.Order, error) {
	var os []store.Order
	err := s.Store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		os, err = tx.ListOrders(ctx)
		return err
	})
	return os, err
}
