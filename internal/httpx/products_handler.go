package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-store-ledger.git/internal/catalog"
	"github.com/ariefcatur/go-store-ledger.git/internal/redisx"
	"github.com/go-chi/chi/v5"
)

type createProductReq struct {
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Stock      int    `json:"stock_quantity"`
}

type editProductReq struct {
	Name       *string `json:"name"`
	PriceCents *int    `json:"price_cents"`
	Stock      *int    `json:"stock_quantity"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	// cache fast path; DB stays the source of truth
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, redisx.KeyProductList).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResponse(p))
	}
	if h.Redis != nil {
		if b, err := json.Marshal(out); err == nil {
			_ = h.Redis.Set(ctx, redisx.KeyProductList, b, redisx.TTLProductList).Err()
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation", "message": "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	p, err := h.Catalog.Create(ctx, req.Name, req.PriceCents, req.Stock)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dropProductListCache(ctx)
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 3*time.Second)
	defer cancel()

	p, err := h.Catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) editProduct(w http.ResponseWriter, r *http.Request) {
	var req editProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation", "message": "invalid json"})
		return
	}
	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	p, err := h.Catalog.EditFields(ctx, chi.URLParam(r, "id"), catalog.EditRequest{
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dropProductListCache(ctx)
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r, 5*time.Second)
	defer cancel()

	if err := h.Catalog.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.dropProductListCache(ctx)
	w.WriteHeader(http.StatusNoContent)
}
