package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/service"
	"github.com/shopspring/decimal"
)

// AvailableMenu is satisfied by *service.MenuService.
type AvailableMenu interface {
	ListAvailable(ctx context.Context) ([]model.MenuItem, error)
}

// CustomerOrderPlacer is satisfied by *service.OrderService.
type CustomerOrderPlacer interface {
	PlaceCustomerOrder(ctx context.Context, req service.CustomerOrderRequest) (model.Order, error)
}

// PublicHandler serves the unauthenticated customer ordering page.
type PublicHandler struct {
	menu   AvailableMenu
	orders CustomerOrderPlacer
}

func NewPublicHandler(menu AvailableMenu, orders CustomerOrderPlacer) *PublicHandler {
	return &PublicHandler{menu: menu, orders: orders}
}

// RegisterRoutes registers public endpoints. Expected to be mounted at /public.
func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
	r.Post("/orders", h.PlaceOrder)
}

// --- Request / Response types ---

type publicOrderRequest struct {
	OrderType     string                   `json:"orderType"`
	PaymentMethod string                   `json:"paymentMethod"`
	Customer      model.Customer           `json:"customer"`
	Items         []publicOrderItemRequest `json:"items"`
}

type publicOrderItemRequest struct {
	MenuItemID string `json:"menuItemId"`
	Portion    string `json:"portion"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note"`
}

// publicOrderResponse is what the customer sees; staff-only fields stay out.
type publicOrderResponse struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"orderId"`
	Status      string            `json:"status"`
	Items       []model.OrderItem `json:"items"`
	Total       decimal.Decimal   `json:"total"`
}

// --- Handlers ---

func (h *PublicHandler) Menu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListAvailable(r.Context())
	if err != nil {
		writeServiceError(w, err, "list public menu")
		return
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PublicHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req publicOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CustomerOrderItem, len(req.Items))
	for i, it := range req.Items {
		id, err := uuid.Parse(it.MenuItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("items[%d]: invalid menuItemId", i)})
			return
		}
		items[i] = service.CustomerOrderItem{
			MenuItemID: id,
			Portion:    it.Portion,
			Quantity:   it.Quantity,
			Note:       it.Note,
		}
	}

	order, err := h.orders.PlaceCustomerOrder(r.Context(), service.CustomerOrderRequest{
		OrderType:     req.OrderType,
		PaymentMethod: req.PaymentMethod,
		Customer:      req.Customer,
		Items:         items,
	})
	if err != nil {
		writeServiceError(w, err, "place customer order")
		return
	}

	writeJSON(w, http.StatusCreated, publicOrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Items:       order.Items,
		Total:       order.Total,
	})
}
