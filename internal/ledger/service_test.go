package ledger

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-store-ledger.git/internal/memstore"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-1", FormatOrderNumber(1))
	assert.Equal(t, "ORD-42", FormatOrderNumber(42))
	assert.Equal(t, "ORD-1000000", FormatOrderNumber(1000000))
}

func TestGetAndList(t *testing.T) {
	st := memstore.New()
	svc := &Service{Store: st}
	ctx := context.Background()

	err := st.WithinTx(ctx, func(tx store.Tx) error {
		for i, num := range []string{"ORD-1", "ORD-2"} {
			if err := tx.InsertOrder(ctx, store.Order{
				ID:          num,
				OrderNumber: num,
				ProductID:   "p1",
				Quantity:    i + 1,
				Status:      store.StatusPending,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	o, err := svc.Get(ctx, "ORD-2")
	require.NoError(t, err)
	assert.Equal(t, 2, o.Quantity)

	_, err = svc.Get(ctx, "ORD-404")
	assert.ErrorIs(t, err, store.ErrNotFound)

	os, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, os, 2)
}
