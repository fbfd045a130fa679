// Package audit consumes order lifecycle events, keeps the read caches fresh
// and re-checks stock reconciliation after every mutation.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkax "github.com/ariefcatur/go-store-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-store-ledger.git/internal/redisx"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Store       store.Store
	Redis       *redis.Client // optional: dedup and cache refresh
	Log         *zap.Logger
	ServiceName string
}

// HandleOrderEvent is the consumer handler. Returning an error leaves the
// offset uncommitted so the message is retried.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env store.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	switch env.EventType {
	case store.EventOrderPlaced, store.EventOrderEdited, store.EventOrderDeleted, store.EventOrderCancelled:
	default:
		return nil // not ours
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[store.OrderEventPayload](env.Payload)
	if err != nil {
		return err
	}

	s.refreshCaches(ctx, env.EventType, p)

	if err := s.Reconcile(ctx, p.ProductID); err != nil {
		s.Log.Error("reconciliation failed",
			zap.String("event_type", env.EventType),
			zap.String("order_number", p.OrderNumber),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) refreshCaches(ctx context.Context, eventType string, p store.OrderEventPayload) {
	if s.Redis == nil {
		return
	}
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderNumber)
	if eventType == store.EventOrderDeleted {
		_ = s.Redis.Del(ctx, statusKey).Err()
	} else {
		_ = s.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, p.Status), redisx.TTLStatusCache).Err()
	}
	_ = s.Redis.Del(ctx, redisx.KeyProductList).Err()
}

// Reconcile checks that the product's stock equals the sum of its journaled
// movements. A mismatch means some path changed stock without journaling it;
// that is never tolerated silently.
func (s *Service) Reconcile(ctx context.Context, productID string) error {
	var p store.Product
	var sum int
	err := s.Store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		sum, err = tx.SumMovements(ctx, productID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil // product deleted after its terminal orders; nothing to check
	}
	if err != nil {
		return err
	}
	if p.Stock != sum {
		s.Log.Error("stock drift detected",
			zap.String("product_id", productID),
			zap.Int("stock", p.Stock),
			zap.Int("movements_sum", sum),
		)
		return fmt.Errorf("%w: product %s stock=%d movements=%d", store.ErrConsistency, productID, p.Stock, sum)
	}
	return nil
}
