// Package coordinator performs every order-affecting stock change as one
// atomic unit: an order is never observable without its matching stock
// adjustment, and a failed step rolls the whole operation back.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-store-ledger.git/internal/ledger"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/google/uuid"
)

type Coordinator struct {
	Store store.Store
}

// EditRequest carries partial updates for EditOrder; nil fields keep the
// order's current value.
type EditRequest struct {
	ProductID *string
	Quantity  *int
	Status    *store.Status
}

// PlaceOrder validates, draws the next order number, inserts the order and
// decrements stock — all inside one transaction.
func (c *Coordinator) PlaceOrder(ctx context.Context, productID string, quantity int) (store.Order, error) {
	if quantity <= 0 {
		return store.Order{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}

	var out store.Order
	err := c.Store.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.Stock < quantity {
			return fmt.Errorf("%w: product %s has %d, need %d", store.ErrInsufficientStock, productID, p.Stock, quantity)
		}

		n, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		o := store.Order{
			ID:             uuid.NewString(),
			OrderNumber:    ledger.FormatOrderNumber(n),
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       quantity,
			UnitPriceCents: p.PriceCents,
			TotalCents:     p.PriceCents * quantity,
			Status:         store.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.AdjustStock(ctx, p.ID, -quantity); err != nil {
			return err
		}
		if err := tx.RecordMovement(ctx, store.StockMovement{
			ID:          uuid.NewString(),
			ProductID:   p.ID,
			OrderNumber: o.OrderNumber,
			Delta:       -quantity,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return store.Order{}, err
	}
	return out, nil
}

// EditOrder re-associates an order with a product/quantity and/or moves its
// status. Re-association is restore-then-reapply: the old stock effect is
// reversed before the new one is validated and applied, so the sufficiency
// check sees the just-restored units. Any failure rolls the restore back too.
func (c *Coordinator) EditOrder(ctx context.Context, orderNumber string, req EditRequest) (store.Order, error) {
	if req.Quantity != nil && *req.Quantity <= 0 {
		return store.Order{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if req.Status != nil && !store.ValidStatus(*req.Status) {
		return store.Order{}, fmt.Errorf("%w: unknown status %q", store.ErrValidation, *req.Status)
	}

	var out store.Order
	err := c.Store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := tx.GetOrder(ctx, orderNumber)
		if err != nil {
			return err
		}

		newStatus := o.Status
		if req.Status != nil && *req.Status != o.Status {
			if !store.CanTransition(o.Status, *req.Status) {
				return fmt.Errorf("%w: cannot move order %s from %s to %s",
					store.ErrValidation, orderNumber, o.Status, *req.Status)
			}
			newStatus = *req.Status
		}

		newProductID := o.ProductID
		if req.ProductID != nil {
			newProductID = *req.ProductID
		}
		newQty := o.Quantity
		if req.Quantity != nil {
			newQty = *req.Quantity
		}

		if newProductID != o.ProductID || newQty != o.Quantity {
			if o.Restocked {
				return fmt.Errorf("%w: order %s already released its stock", store.ErrConflict, orderNumber)
			}
			now := time.Now().UTC()

			// restore the old association
			if _, err := tx.GetProductForUpdate(ctx, o.ProductID); err != nil {
				return err
			}
			if err := tx.AdjustStock(ctx, o.ProductID, o.Quantity); err != nil {
				return err
			}
			if err := tx.RecordMovement(ctx, store.StockMovement{
				ID:          uuid.NewString(),
				ProductID:   o.ProductID,
				OrderNumber: o.OrderNumber,
				Delta:       o.Quantity,
				CreatedAt:   now,
			}); err != nil {
				return err
			}

			// validate and apply the new one; stock now includes the
			// restored units when the product is unchanged
			np, err := tx.GetProductForUpdate(ctx, newProductID)
			if err != nil {
				return err
			}
			if np.Stock < newQty {
				return fmt.Errorf("%w: product %s has %d, need %d", store.ErrInsufficientStock, np.ID, np.Stock, newQty)
			}
			if err := tx.AdjustStock(ctx, np.ID, -newQty); err != nil {
				return err
			}
			if err := tx.RecordMovement(ctx, store.StockMovement{
				ID:          uuid.NewString(),
				ProductID:   np.ID,
				OrderNumber: o.OrderNumber,
				Delta:       -newQty,
				CreatedAt:   now,
			}); err != nil {
				return err
			}

			o.ProductID = np.ID
			o.ProductName = np.Name
			o.Quantity = newQty
			o.UnitPriceCents = np.PriceCents // re-snapshot on re-association only
			o.TotalCents = np.PriceCents * newQty
		}

		o.Status = newStatus
		o.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return store.Order{}, err
	}
	return out, nil
}

// DeleteOrder removes the order and returns the stock it still holds. Orders
// already restocked via CancelAndRestock, and orders whose product was since
// deleted, have nothing left to restore.
func (c *Coordinator) DeleteOrder(ctx context.Context, orderNumber string) (store.Order, error) {
	var out store.Order
	err := c.Store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := tx.GetOrder(ctx, orderNumber)
		if err != nil {
			return err
		}
		if !o.Restocked {
			_, err := tx.GetProductForUpdate(ctx, o.ProductID)
			switch {
			case err == nil:
				if err := tx.AdjustStock(ctx, o.ProductID, o.Quantity); err != nil {
					return err
				}
				if err := tx.RecordMovement(ctx, store.StockMovement{
					ID:          uuid.NewString(),
					ProductID:   o.ProductID,
					OrderNumber: o.OrderNumber,
					Delta:       o.Quantity,
					CreatedAt:   time.Now().UTC(),
				}); err != nil {
					return err
				}
			case errors.Is(err, store.ErrNotFound):
				// product gone (terminal order outlived it); nothing to restore
			default:
				return err
			}
		}
		if err := tx.RemoveOrder(ctx, orderNumber); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return store.Order{}, err
	}
	return out, nil
}

// CancelAndRestock cancels the order and returns its stock in the same
// transaction. A plain status change to CANCELLED via EditOrder deliberately
// does not restock; this is the explicit variant for callers that want the
// units back without deleting the record.
func (c *Coordinator) CancelAndRestock(ctx context.Context, orderNumber string) (store.Order, error) {
	var out store.Order
	err := c.Store.WithinTx(ctx, func(tx store.Tx) error {
		o, err := tx.GetOrder(ctx, orderNumber)
		if err != nil {
			return err
		}
		if !store.CanTransition(o.Status, store.StatusCancelled) {
			return fmt.Errorf("%w: cannot cancel order %s in status %s", store.ErrValidation, orderNumber, o.Status)
		}
		if _, err := tx.GetProductForUpdate(ctx, o.ProductID); err != nil {
			return err
		}
		if err := tx.AdjustStock(ctx, o.ProductID, o.Quantity); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.RecordMovement(ctx, store.StockMovement{
			ID:          uuid.NewString(),
			ProductID:   o.ProductID,
			OrderNumber: o.OrderNumber,
			Delta:       o.Quantity,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		o.Status = store.StatusCancelled
		o.Restocked = true
		o.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return store.Order{}, err
	}
	return out, nil
}
