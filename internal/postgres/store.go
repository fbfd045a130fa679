package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements store.Store on Postgres. Stock mutations lock the product
// row (SELECT ... FOR UPDATE), so concurrent transactions against the same
// product serialize and cannot jointly oversell it.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

const productCols = `id, name, price_cents, stock, created_at, updated_at`

func scanProduct(row pgx.Row, id string) (store.Product, error) {
	var p store.Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	if err != nil {
		return store.Product{}, err
	}
	return p, nil
}

func (t *pgTx) GetProduct(ctx context.Context, id string) (store.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	return scanProduct(row, id)
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, id string) (store.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id)
	return scanProduct(row, id)
}

func (t *pgTx) InsertProduct(ctx context.Context, p store.Product) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO products(id, name, price_cents, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.PriceCents, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (t *pgTx) UpdateProduct(ctx context.Context, p store.Product) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET name=$2, price_cents=$3, stock=$4, updated_at=$5
		WHERE id=$1`,
		p.ID, p.Name, p.PriceCents, p.Stock, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, p.ID)
	}
	return nil
}

func (t *pgTx) DeleteProduct(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return nil
}

func (t *pgTx) ListProducts(ctx context.Context) ([]store.Product, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Product
	for rows.Next() {
		var p store.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	if err != nil {
		return err
	}
	if stock+delta < 0 {
		return fmt.Errorf("%w: product %s has %d, delta %d", store.ErrInsufficientStock, productID, stock, delta)
	}
	_, err = t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, productID, delta)
	return err
}

func (t *pgTx) RecordMovement(ctx context.Context, m store.StockMovement) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stock_movements(id, product_id, order_number, delta, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)`,
		m.ID, m.ProductID, m.OrderNumber, m.Delta, m.CreatedAt,
	)
	return err
}

func (t *pgTx) SumMovements(ctx context.Context, productID string) (int, error) {
	var sum int
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM stock_movements WHERE product_id=$1`, productID,
	).Scan(&sum)
	return sum, err
}

// Single-row counter, bumped inside the placing transaction. Never derived
// from COUNT(*), so deleted orders cannot cause number reuse.
func (t *pgTx) NextOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `UPDATE order_counter SET value = value + 1 RETURNING value`).Scan(&n)
	return n, err
}

const orderCols = `id, order_number, product_id, product_name, quantity,
	unit_price_cents, total_cents, status, restocked, created_at, updated_at`

func scanOrder(row pgx.Row, orderNumber string) (store.Order, error) {
	var o store.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.ProductID, &o.ProductName, &o.Quantity,
		&o.UnitPriceCents, &o.TotalCents, &o.Status, &o.Restocked, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Order{}, fmt.Errorf("%w: order %s", store.ErrNotFound, orderNumber)
	}
	if err != nil {
		return store.Order{}, err
	}
	return o, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o store.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, product_id, product_name, quantity,
			unit_price_cents, total_cents, status, restocked, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.OrderNumber, o.ProductID, o.ProductName, o.Quantity,
		o.UnitPriceCents, o.TotalCents, o.Status, o.Restocked, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (t *pgTx) GetOrder(ctx context.Context, orderNumber string) (store.Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE order_number=$1`, orderNumber)
	return scanOrder(row, orderNumber)
}

func (t *pgTx) UpdateOrder(ctx context.Context, o store.Order) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET product_id=$2, product_name=$3, quantity=$4,
			unit_price_cents=$5, total_cents=$6, status=$7, restocked=$8, updated_at=$9
		WHERE order_number=$1`,
		o.OrderNumber, o.ProductID, o.ProductName, o.Quantity,
		o.UnitPriceCents, o.TotalCents, o.Status, o.Restocked, o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: order %s", store.ErrNotFound, o.OrderNumber)
	}
	return nil
}

func (t *pgTx) RemoveOrder(ctx context.Context, orderNumber string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE order_number=$1`, orderNumber)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: order %s", store.ErrNotFound, orderNumber)
	}
	return nil
}

func (t *pgTx) ListOrders(ctx context.Context) ([]store.Order, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Order
	for rows.Next() {
		var o store.Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.ProductID, &o.ProductName, &o.Quantity,
			&o.UnitPriceCents, &o.TotalCents, &o.Status, &o.Restocked, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (t *pgTx) CountLiveOrders(ctx context.Context, productID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE product_id=$1 AND status IN ('PENDING', 'SHIPPED')`, productID,
	).Scan(&n)
	return n, err
}
