package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/printer"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/momohouse/pos/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CartService defines the cart session operations. Satisfied by
// *service.CartSessions.
type CartService interface {
	Create() service.CartSnapshot
	Get(id uuid.UUID) (service.CartSnapshot, error)
	Delete(id uuid.UUID) error
	AddItem(ctx context.Context, id, menuItemID uuid.UUID, portion string) (service.CartSnapshot, error)
	AddCustomItem(id uuid.UUID, name string, price decimal.Decimal, quantity int) (service.CartSnapshot, error)
	UpdateQuantity(id, lineID uuid.UUID, delta int) (service.CartSnapshot, error)
	SetNote(id, lineID uuid.UUID, note string) (service.CartSnapshot, error)
	RemoveLine(id, lineID uuid.UUID) (service.CartSnapshot, error)
	Clear(id uuid.UUID) (service.CartSnapshot, error)
	Configure(id uuid.UUID, cfg service.CartConfig) (service.CartSnapshot, error)
	SetPaid(id uuid.UUID, paid bool) (service.CartSnapshot, error)
}

// Checkouter turns a cart into an order. Satisfied by *service.OrderService.
type Checkouter interface {
	Checkout(ctx context.Context, cartID uuid.UUID, req service.CheckoutRequest) (model.Order, error)
}

// ReceiptPrinter queues receipt copies. Satisfied by *printer.Dispatcher.
type ReceiptPrinter interface {
	PrintReceipt(order model.Order, shop receipt.Shop, copies int) ([]printer.Job, error)
}

// CartHandler exposes the till's working cart.
type CartHandler struct {
	carts    CartService
	checkout Checkouter
	printer  ReceiptPrinter
	shop     receipt.Shop
	copies   int
}

// NewCartHandler creates a new CartHandler. copies is how many receipts a
// checkout prints when printing is requested.
func NewCartHandler(carts CartService, checkout Checkouter, p ReceiptPrinter, shop receipt.Shop, copies int) *CartHandler {
	return &CartHandler{carts: carts, checkout: checkout, printer: p, shop: shop, copies: copies}
}

// RegisterRoutes registers cart endpoints. Expected to be mounted at /carts.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/items", h.AddItem)
	r.Post("/{id}/custom-items", h.AddCustomItem)
	r.Patch("/{id}/lines/{lineId}", h.UpdateLine)
	r.Delete("/{id}/lines/{lineId}", h.RemoveLine)
	r.Post("/{id}/clear", h.Clear)
	r.Put("/{id}/config", h.Configure)
	r.Put("/{id}/paid", h.SetPaid)
	r.Post("/{id}/checkout", h.Checkout)
}

// --- Request / Response types ---

type addItemRequest struct {
	MenuItemID string `json:"menuItemId"`
	Portion    string `json:"portion"`
}

type addCustomItemRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity *int            `json:"quantity"`
}

// updateLineRequest carries a quantity change, a new note, or both.
type updateLineRequest struct {
	Delta *int    `json:"delta"`
	Note  *string `json:"note"`
}

type setPaidRequest struct {
	Paid bool `json:"paid"`
}

type checkoutRequest struct {
	OrderType string         `json:"orderType"`
	Customer  model.Customer `json:"customer"`
	Print     bool           `json:"print"`
}

type checkoutResponse struct {
	Order   model.Order `json:"order"`
	Printed int         `json:"printed"`
}

// --- Handlers ---

func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.carts.Create())
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	snap, err := h.carts.Get(id)
	if err != nil {
		writeServiceError(w, err, "get cart")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	if err := h.carts.Delete(id); err != nil {
		writeServiceError(w, err, "delete cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menuItemId"})
		return
	}

	snap, err := h.carts.AddItem(r.Context(), id, menuItemID, req.Portion)
	h.respond(w, snap, err, "add cart item")
}

func (h *CartHandler) AddCustomItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req addCustomItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	// Omitted quantity means one; an explicit zero is rejected.
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	snap, err := h.carts.AddCustomItem(id, req.Name, req.Price, quantity)
	h.respond(w, snap, err, "add custom item")
}

func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	lineID, ok := parseID(w, r, "lineId", "line ID")
	if !ok {
		return
	}
	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Delta == nil && req.Note == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta or note is required"})
		return
	}

	var (
		snap service.CartSnapshot
		err  error
	)
	if req.Note != nil {
		snap, err = h.carts.SetNote(id, lineID, *req.Note)
		if err != nil {
			writeServiceError(w, err, "set line note")
			return
		}
	}
	if req.Delta != nil {
		snap, err = h.carts.UpdateQuantity(id, lineID, *req.Delta)
	}
	h.respond(w, snap, err, "update cart line")
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	lineID, ok := parseID(w, r, "lineId", "line ID")
	if !ok {
		return
	}
	snap, err := h.carts.RemoveLine(id, lineID)
	h.respond(w, snap, err, "remove cart line")
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	snap, err := h.carts.Clear(id)
	h.respond(w, snap, err, "clear cart")
}

func (h *CartHandler) Configure(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req service.CartConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	snap, err := h.carts.Configure(id, req)
	h.respond(w, snap, err, "configure cart")
}

func (h *CartHandler) SetPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req setPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	snap, err := h.carts.SetPaid(id, req.Paid)
	h.respond(w, snap, err, "set cart paid")
}

// Checkout creates the order and, when asked, queues the receipt copies. A
// printing failure does not undo the order.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.checkout.Checkout(r.Context(), id, service.CheckoutRequest{
		OrderType: req.OrderType,
		Customer:  req.Customer,
	})
	if err != nil {
		writeServiceError(w, err, "checkout")
		return
	}

	resp := checkoutResponse{Order: order}
	if req.Print {
		jobs, err := h.printer.PrintReceipt(order, h.shop, h.copies)
		if err != nil {
			log.Error().Err(err).Str("order", order.OrderNumber).Msg("queue receipt")
		}
		resp.Printed = len(jobs)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// respond writes the snapshot, or the error mapped to a status.
func (h *CartHandler) respond(w http.ResponseWriter, snap service.CartSnapshot, err error, op string) {
	if err != nil {
		writeServiceError(w, err, op)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
