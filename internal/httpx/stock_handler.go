package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/inventory"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StockService is satisfied by *inventory.Service.
type StockService interface {
	Reserve(ctx context.Context, items []inventory.Item) (inventory.Result, error)
	Release(ctx context.Context, items []inventory.Item) (inventory.Result, error)
	SetStock(ctx context.Context, sku string, available int) (inventory.Variant, error)
	Variant(ctx context.Context, sku string) (inventory.Variant, error)
}

type StockHandler struct {
	Stock StockService
	Log   zerolog.Logger
}

type reserveReq struct {
	Items []inventory.Item `json:"items"`
}

type reserveResp struct {
	OK        bool             `json:"ok"`
	Committed []inventory.Item `json:"committed"`
}

type setStockReq struct {
	AvailableQuantity *int `json:"available_quantity"`
}

func (h *StockHandler) Register(r chi.Router) {
	r.Post("/reservations", h.reserve)
	r.Post("/reservations/release", h.release)
	r.Get("/variants/{sku}", h.getVariant)
	r.Put("/variants/{sku}/stock", h.setStock)
}

func (h *StockHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Stock.Reserve(ctx, req.Items)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, reserveResp{OK: true, Committed: res.Committed})
}

func (h *StockHandler) release(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Stock.Release(ctx, req.Items)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, reserveResp{OK: true, Committed: res.Committed})
}

func (h *StockHandler) getVariant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Stock.Variant(ctx, chi.URLParam(r, "sku"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *StockHandler) setStock(w http.ResponseWriter, r *http.Request) {
	var req setStockReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if req.AvailableQuantity == nil {
		writeError(w, h.Log, errs.Mark(errs.New("available_quantity required"), errs.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.Stock.SetStock(ctx, chi.URLParam(r, "sku"), *req.AvailableQuantity)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
