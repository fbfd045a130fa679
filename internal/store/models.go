package store

import "time"

type Product struct {
	ID         string
	Name       string
	PriceCents int
	Stock      int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Order struct {
	ID          string
	OrderNumber string
	ProductID   string
	ProductName string // display snapshot; stock math always goes through ProductID
	Quantity    int
	// UnitPriceCents is the catalog price at placement (or last re-association),
	// so later catalog edits never rewrite an existing invoice.
	UnitPriceCents int
	TotalCents     int
	Status         Status
	// Restocked marks an order whose stock was already returned via
	// cancel-and-restock; deleting it must not return the stock again.
	Restocked bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockMovement journals every stock change (order placement, edits, deletes,
// restocks, catalog corrections). For any product, stock == sum of deltas.
type StockMovement struct {
	ID          string
	ProductID   string
	OrderNumber string // empty for catalog-side corrections
	Delta       int
	CreatedAt   time.Time
}
