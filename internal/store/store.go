package store

import "context"

// Store is the transactional boundary for the whole core. Every cross-entity
// operation runs inside a single WithinTx call: fn returning an error rolls
// everything back, so partially-applied state is never observable.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the row-level operations available inside a transaction.
// GetProductForUpdate locks the product row for the rest of the transaction,
// serializing all stock mutations per product.
type Tx interface {
	// products
	GetProduct(ctx context.Context, id string) (Product, error)
	GetProductForUpdate(ctx context.Context, id string) (Product, error)
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context) ([]Product, error)
	// AdjustStock applies stock += delta, all-or-nothing: a result below zero
	// fails with ErrInsufficientStock and leaves the row untouched.
	AdjustStock(ctx context.Context, productID string, delta int) error

	// stock movement journal
	RecordMovement(ctx context.Context, m StockMovement) error
	SumMovements(ctx context.Context, productID string) (int, error)

	// orders
	// NextOrderNumber increments the durable counter and returns the new
	// value. Not derived from row counts, so deletions never reuse a number.
	NextOrderNumber(ctx context.Context) (int64, error)
	InsertOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, orderNumber string) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	RemoveOrder(ctx context.Context, orderNumber string) error
	ListOrders(ctx context.Context) ([]Order, error)
	// CountLiveOrders counts orders referencing the product in a non-terminal
	// status (PENDING or SHIPPED).
	CountLiveOrders(ctx context.Context, productID string) (int, error)
}
