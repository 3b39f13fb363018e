package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderService is satisfied by *orders.Service.
type OrderService interface {
	PlaceOrder(ctx context.Context, in orders.PlaceOrderInput) (orders.Order, bool, error)
	Order(ctx context.Context, id string) (orders.Order, error)
	Transition(ctx context.Context, itemID string, to orders.Status) (orders.OrderItem, error)
	Aggregate(ctx context.Context, orderID string) (orders.Aggregate, error)
	Cancel(ctx context.Context, orderID string) (orders.Aggregate, error)
}

type OrdersHandler struct {
	Orders OrderService
	Log    zerolog.Logger
}

type placeOrderResp struct {
	Order      orders.Order `json:"order"`
	Idempotent bool         `json:"idempotent"`
}

type transitionReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/aggregate", h.getAggregate)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/order-items/{id}/status", h.transition)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, existed, err := h.Orders.PlaceOrder(ctx, req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, placeOrderResp{Order: o, Idempotent: existed})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Order(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getAggregate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	agg, err := h.Orders.Aggregate(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	agg, err := h.Orders.Cancel(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request) {
	var req transitionReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.Orders.Transition(ctx, chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}
