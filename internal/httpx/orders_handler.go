package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-store-ledger.git/internal/coordinator"
	"github.com/ariefcatur/go-store-ledger.git/internal/redisx"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/go-chi/chi/v5"
)

type placeOrderReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type editOrderReq struct {
	ProductID *string `json:"product_id"`
	Quantity  *int    `json:"quantity"`
	Status    *string `json:"status"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	os, err := h.Ledger.List(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(os))
	for _, o := range os {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	o, err := h.Ledger.Get(ctx, chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// getOrderStatus is the cheap polling endpoint: redis first, DB fallback.
func (h *Handler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, number)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Ledger.Get(ctx, number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.cacheOrderStatus(ctx, o)
	writeJSON(w, http.StatusOK, map[string]store.Status{"status": o.Status})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation", "message": "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	o, err := h.Coord.PlaceOrder(ctx, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.cacheOrderStatus(ctx, o)
	h.dropProductListCache(ctx)
	h.publishOrderEvent(store.EventOrderPlaced, o, traceID(r))
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) editOrder(w http.ResponseWriter, r *http.Request) {
	var req editOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation", "message": "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	var status *store.Status
	if req.Status != nil {
		s := store.Status(*req.Status)
		status = &s
	}
	o, err := h.Coord.EditOrder(ctx, chi.URLParam(r, "number"), coordinator.EditRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Status:    status,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.cacheOrderStatus(ctx, o)
	h.dropProductListCache(ctx)
	h.publishOrderEvent(store.EventOrderEdited, o, traceID(r))
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	o, err := h.Coord.DeleteOrder(ctx, chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dropOrderStatus(ctx, o.OrderNumber)
	h.dropProductListCache(ctx)
	h.publishOrderEvent(store.EventOrderDeleted, o, traceID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	o, err := h.Coord.CancelAndRestock(ctx, chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.cacheOrderStatus(ctx, o)
	h.dropProductListCache(ctx)
	h.publishOrderEvent(store.EventOrderCancelled, o, traceID(r))
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
