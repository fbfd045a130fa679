// Package catalog owns product records and stock quantities. Order flow never
// goes through EditFields; it adjusts stock only via the coordinator's
// transactions.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/google/uuid"
)

type Service struct {
	Store store.Store
}

// EditRequest carries partial updates; nil fields are left unchanged.
// Stock here is an absolute correction (manual restocking), not a delta.
type EditRequest struct {
	Name       *string
	PriceCents *int
	Stock      *int
}

func (s *Service) Create(ctx context.Context, name string, priceCents, initialStock int) (store.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Product{}, fmt.Errorf("%w: product name must not be empty", store.ErrValidation)
	}
	if priceCents < 0 {
		return store.Product{}, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
	}
	if initialStock < 0 {
		return store.Product{}, fmt.Errorf("%w: initial stock must not be negative", store.ErrValidation)
	}

	now := time.Now().UTC()
	p := store.Product{
		ID:         uuid.NewString(),
		Name:       name,
		PriceCents: priceCents,
		Stock:      initialStock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.Store.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertProduct(ctx, p); err != nil {
			return err
		}
		if initialStock != 0 {
			return tx.RecordMovement(ctx, store.StockMovement{
				ID:        uuid.NewString(),
				ProductID: p.ID,
				Delta:     initialStock,
				CreatedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return store.Product{}, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (store.Product, error) {
	var p store.Product
	err := s.Store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) List(ctx context.Context) ([]store.Product, error) {
	var ps []store.Product
	err := s.Store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		ps, err = tx.ListProducts(ctx)
		return err
	})
	return ps, err
}

// EditFields is the administrative correction path, independent of orders.
// An absolute stock change is journaled as a movement of the difference so
// the stock ledger stays reconstructable.
func (s *Service) EditFields(ctx context.Context, id string, req EditRequest) (store.Product, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return store.Product{}, fmt.Errorf("%w: product name must not be empty", store.ErrValidation)
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		return store.Product{}, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return store.Product{}, fmt.Errorf("%w: stock must not be negative", store.ErrValidation)
	}

	var out store.Product
	err := s.Store.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.PriceCents != nil {
			p.PriceCents = *req.PriceCents
		}
		if req.Stock != nil && *req.Stock != p.Stock {
			delta := *req.Stock - p.Stock
			p.Stock = *req.Stock
			if err := tx.RecordMovement(ctx, store.StockMovement{
				ID:        uuid.NewString(),
				ProductID: p.ID,
				Delta:     delta,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		p.UpdatedAt = now
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return store.Product{}, err
	}
	return out, nil
}

// Delete refuses while any PENDING or SHIPPED order still references the
// product; the caller resolves those orders first (explicit two-step, never a
// silent cascade). Terminal orders keep their name/price snapshot for display.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProductForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountLiveOrders(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: product %s is referenced by %d live order(s)", store.ErrConflict, id, n)
		}
		return tx.DeleteProduct(ctx, id)
	})
}
