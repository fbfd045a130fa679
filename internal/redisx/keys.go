package redisx

import "time"

const (
	// Order status cache: order_status:{order_number} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Cached product listing, invalidated on any catalog or stock change.
	KeyProductList = "catalog:products"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLProductList = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
