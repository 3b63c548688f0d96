package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/escpos"
	"github.com/momohouse/pos/internal/middleware"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/momohouse/pos/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	defaultOrderLimit = 50
	maxOrderLimit     = 200
)

// OrderServicer defines the order operations needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	List(ctx context.Context, f store.OrderFilter) ([]model.Order, error)
	Get(ctx context.Context, id uuid.UUID) (model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (model.Order, error)
	SetPaid(ctx context.Context, id uuid.UUID, paid bool) (model.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReceiptRenderer produces the printable and previewable receipt.
// Satisfied by *receipt.Formatter.
type ReceiptRenderer interface {
	Format(order model.Order, shop receipt.Shop) ([]byte, error)
	Preview(order model.Order, shop receipt.Shop, autoPrint bool) ([]byte, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orders   OrderServicer
	receipts ReceiptRenderer
	printer  ReceiptPrinter
	shop     receipt.Shop
	copies   int
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders OrderServicer, receipts ReceiptRenderer, p ReceiptPrinter, shop receipt.Shop, copies int) *OrderHandler {
	return &OrderHandler{orders: orders, receipts: receipts, printer: p, shop: shop, copies: copies}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders
// behind authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/paid", h.SetPaid)
	r.Get("/{id}/receipt", h.Receipt)
	r.Get("/{id}/receipt.txt", h.ReceiptText)
	r.Post("/{id}/print", h.Print)
	r.With(middleware.RequireRole(enum.RoleAdmin)).Delete("/{id}", h.Delete)
}

// --- Request types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

type printRequest struct {
	Copies int `json:"copies"`
}

// --- Handlers ---

// List returns orders newest first. Supports ?status, ?source, ?since
// (YYYY-MM-DD) and ?limit.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.OrderFilter{
		Status: q.Get("status"),
		Source: q.Get("source"),
		Limit:  defaultOrderLimit,
	}
	if f.Status != "" && !enum.IsOrderStatus(f.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			f.Limit = v
		}
	}
	if f.Limit > maxOrderLimit {
		f.Limit = maxOrderLimit
	}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid since format, use YYYY-MM-DD"})
			return
		}
		f.Since = t
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, err, "list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order ID")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, err, "update order status")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) SetPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order ID")
	if !ok {
		return
	}
	var req setPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.orders.SetPaid(r.Context(), id, req.Paid)
	if err != nil {
		writeServiceError(w, err, "set order paid")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "order ID")
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Receipt renders the HTML preview. ?autoprint=true makes the page open the
// browser print dialog on load.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}
	autoPrint, _ := strconv.ParseBool(r.URL.Query().Get("autoprint"))

	page, err := h.receipts.Preview(order, h.shop, autoPrint)
	if err != nil {
		writeServiceError(w, err, "render receipt")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// ReceiptText returns the printable text of the ESC/POS receipt, for tills
// without a printer attached.
func (h *OrderHandler) ReceiptText(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}
	script, err := h.receipts.Format(order, h.shop)
	if err != nil {
		writeServiceError(w, err, "format receipt")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(strings.Join(escpos.PlainText(script), "\n") + "\n"))
}

// Print queues receipt copies for an existing order. An empty body prints
// the configured number of copies.
func (h *OrderHandler) Print(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}
	var req printRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	copies := h.copies
	if req.Copies > 0 {
		copies = req.Copies
	}

	jobs, err := h.printer.PrintReceipt(order, h.shop, copies)
	if err != nil {
		log.Error().Err(err).Str("order", order.OrderNumber).Msg("queue receipt")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to queue receipt"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": len(jobs)})
}

func (h *OrderHandler) load(w http.ResponseWriter, r *http.Request) (model.Order, bool) {
	id, ok := parseID(w, r, "id", "order ID")
	if !ok {
		return model.Order{}, false
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get order")
		return model.Order{}, false
	}
	return order, true
}
