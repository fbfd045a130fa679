package store

// Single topic for all order lifecycle events; the envelope carries the type.
const TopicOrderEvents = "ledger.order.events"

// Partition key = order number, so events for one order stay ordered.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }
