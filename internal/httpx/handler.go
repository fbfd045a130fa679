package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-store-ledger.git/internal/catalog"
	"github.com/ariefcatur/go-store-ledger.git/internal/coordinator"
	kafkax "github.com/ariefcatur/go-store-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-store-ledger.git/internal/ledger"
	"github.com/ariefcatur/go-store-ledger.git/internal/redisx"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is what the handler needs from the kafka producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Handler exposes the core over HTTP. Redis and Producer are optional fast
// paths; the store remains the source of truth and the handler works with
// both set to nil (-mem mode, tests).
type Handler struct {
	Catalog  *catalog.Service
	Ledger   *ledger.Service
	Coord    *coordinator.Coordinator
	Redis    *redis.Client
	Producer Publisher
	Service  string
	Log      *zap.Logger
}

func (h *Handler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.editProduct)
	r.Delete("/products/{id}", h.deleteProduct)

	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{number}", h.getOrder)
	r.Get("/orders/{number}/status", h.getOrderStatus)
	r.Put("/orders/{number}", h.editOrder)
	r.Delete("/orders/{number}", h.deleteOrder)
	r.Post("/orders/{number}/cancel", h.cancelOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	kind := "internal"
	switch {
	case errors.Is(err, store.ErrValidation):
		code, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, store.ErrNotFound):
		code, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrInsufficientStock):
		code, kind = http.StatusConflict, "insufficient_stock"
	case errors.Is(err, store.ErrConflict):
		code, kind = http.StatusConflict, "conflict"
	case errors.Is(err, store.ErrConsistency):
		code, kind = http.StatusInternalServerError, "consistency"
	}
	if code == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": kind, "message": err.Error()})
}

type productResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	Stock      int       `json:"stock_quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toProductResponse(p store.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Stock:      p.Stock,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

type orderResponse struct {
	OrderNumber    string       `json:"order_number"`
	ProductID      string       `json:"product_id"`
	ProductName    string       `json:"product_name"`
	Quantity       int          `json:"quantity"`
	UnitPriceCents int          `json:"unit_price_cents"`
	TotalCents     int          `json:"total_cents"`
	Status         store.Status `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func toOrderResponse(o store.Order) orderResponse {
	return orderResponse{
		OrderNumber:    o.OrderNumber,
		ProductID:      o.ProductID,
		ProductName:    o.ProductName,
		Quantity:       o.Quantity,
		UnitPriceCents: o.UnitPriceCents,
		TotalCents:     o.TotalCents,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// publishOrderEvent emits a lifecycle event after the transaction committed.
func (h *Handler) publishOrderEvent(eventType string, o store.Order, traceID string) {
	if h.Producer == nil {
		return
	}
	ev := store.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: o.OrderNumber,
		Payload: kafkax.MustMarshal(store.OrderEventPayload{
			OrderNumber:    o.OrderNumber,
			ProductID:      o.ProductID,
			Quantity:       o.Quantity,
			UnitPriceCents: o.UnitPriceCents,
			TotalCents:     o.TotalCents,
			Status:         o.Status,
		}),
	}
	h.Producer.Publish(store.PartitionKey(o.OrderNumber), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *Handler) cacheOrderStatus(ctx context.Context, o store.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.OrderNumber)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, o.Status), redisx.TTLStatusCache).Err()
}

func (h *Handler) dropOrderStatus(ctx context.Context, orderNumber string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderNumber)).Err()
}

func (h *Handler) dropProductListCache(ctx context.Context) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, redisx.KeyProductList).Err()
}

func traceID(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

func reqCtx(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
