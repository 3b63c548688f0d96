package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/cart"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/pricing"
	"github.com/momohouse/pos/internal/store"
	"github.com/momohouse/pos/internal/ws"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// maxItemQuantity caps one line of a customer order, after merging repeated
// items.
const maxItemQuantity = 999

// DefaultOrderPrefix starts every order number, e.g. "MH-007".
const DefaultOrderPrefix = "MH"

// Errors returned by the order service.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidQuantity    = errors.New("quantity must be between 1 and 999")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrDeliveryAddress    = errors.New("address is required for delivery orders")
	ErrInsufficientCash   = errors.New("amount received is less than the total")
	ErrStatusTransition   = errors.New("status change not allowed")
)

// statusTransitions lists where an order may move from each status.
var statusTransitions = map[string][]string{
	enum.OrderStatusPending:  {enum.OrderStatusAccepted, enum.OrderStatusCancelled},
	enum.OrderStatusAccepted: {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
}

// Alerts tracks unacknowledged customer orders. Satisfied by *alert.Alerter.
type Alerts interface {
	Notify(orderID string)
	Acknowledge(orderID string)
	Sync(ids []string)
}

// Publisher fans events out to connected terminals. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(typ string, payload any)
}

// CheckoutRequest is the order-level input collected at the till.
type CheckoutRequest struct {
	OrderType string
	Customer  model.Customer
}

// CustomerOrderRequest is an order placed from the public ordering page.
// Prices are always resolved from the menu, never taken from the request.
type CustomerOrderRequest struct {
	OrderType     string
	PaymentMethod string
	Customer      model.Customer
	Items         []CustomerOrderItem
}

// CustomerOrderItem is one requested item.
type CustomerOrderItem struct {
	MenuItemID uuid.UUID
	Portion    string
	Quantity   int
	Note       string
}

// OrderConfig configures order numbering and tax.
type OrderConfig struct {
	Prefix  string
	TaxRate decimal.Decimal
}

// OrderService turns carts and customer requests into stored orders.
type OrderService struct {
	store   store.OrderStore
	menu    MenuReader
	carts   *CartSessions
	alerts  Alerts
	events  Publisher
	prefix  string
	taxRate decimal.Decimal
	logger  zerolog.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(s store.OrderStore, menu MenuReader, carts *CartSessions, alerts Alerts, events Publisher, cfg OrderConfig, logger zerolog.Logger) *OrderService {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return &OrderService{
		store:   s,
		menu:    menu,
		carts:   carts,
		alerts:  alerts,
		events:  events,
		prefix:  prefix,
		taxRate: cfg.TaxRate,
		logger:  logger.With().Str("component", "orders").Logger(),
	}
}

// Checkout snapshots the cart into an order and empties the cart. Any
// failure leaves the cart exactly as it was.
func (s *OrderService) Checkout(ctx context.Context, cartID uuid.UUID, req CheckoutRequest) (model.Order, error) {
	// --- Validate order type and customer ---
	if !enum.IsOrderType(req.OrderType) {
		return model.Order{}, ErrInvalidOrderType
	}
	customer := trimCustomer(req.Customer)
	if req.OrderType == enum.OrderTypeDelivery && customer.Address == "" {
		return model.Order{}, ErrDeliveryAddress
	}

	var created model.Order
	err := s.carts.checkout(cartID, func(cr *cart.Cart, cfg CartConfig, totals pricing.Totals) error {
		if cr.Len() == 0 {
			return ErrEmptyCart
		}
		if !enum.IsPaymentMethod(cfg.PaymentMethod) {
			return ErrInvalidPaymentMethod
		}
		received := pricing.ParseAmount(cfg.AmountReceived)
		if cr.Paid() && cfg.PaymentMethod == enum.PaymentMethodCash && received.LessThan(totals.Total) {
			return ErrInsufficientCash
		}

		order := model.Order{
			Items:          cr.OrderItems(),
			Subtotal:       totals.Subtotal,
			DiscountAmount: totals.Discount,
			TaxAmount:      totals.Tax,
			Total:          totals.Total,
			Customer:       customer,
			PaymentMethod:  cfg.PaymentMethod,
			IsPaid:         cr.Paid(),
			OrderType:      req.OrderType,
			Status:         enum.OrderStatusAccepted,
			Source:         enum.OrderSourcePOS,
		}
		if totals.Discount.IsPositive() {
			order.DiscountType = cfg.DiscountType
			order.DiscountValue = strings.TrimSpace(cfg.DiscountValue)
		}
		if cfg.PaymentMethod == enum.PaymentMethodCash {
			order.AmountReceived = received.Round(2)
			order.ChangeDue = totals.Change
		}

		var err error
		created, err = s.create(ctx, order)
		return err
	})
	if err != nil {
		return model.Order{}, err
	}

	s.logger.Info().Str("order", created.OrderNumber).Str("total", created.Total.StringFixed(2)).Msg("checkout")
	s.events.Publish(ws.EventOrderCreated, created)
	return created, nil
}

// PlaceCustomerOrder records an order from the public page as pending and
// starts the incoming-order alert.
func (s *OrderService) PlaceCustomerOrder(ctx context.Context, req CustomerOrderRequest) (model.Order, error) {
	// --- Validate request ---
	if len(req.Items) == 0 {
		return model.Order{}, ErrEmptyItems
	}
	if req.OrderType == "" {
		req.OrderType = enum.OrderTypeTakeAway
	}
	if !enum.IsOrderType(req.OrderType) {
		return model.Order{}, ErrInvalidOrderType
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = enum.PaymentMethodCash
	}
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		return model.Order{}, ErrInvalidPaymentMethod
	}
	customer := trimCustomer(req.Customer)
	if req.OrderType == enum.OrderTypeDelivery && customer.Address == "" {
		return model.Order{}, ErrDeliveryAddress
	}

	// --- Price the items from the menu ---
	cr := cart.New()
	for i, it := range req.Items {
		if it.Quantity <= 0 || it.Quantity > maxItemQuantity {
			return model.Order{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		item, err := s.menu.Get(ctx, it.MenuItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return model.Order{}, fmt.Errorf("item[%d]: %w", i, ErrMenuItemUnavailable)
			}
			return model.Order{}, err
		}
		if !item.Available {
			return model.Order{}, fmt.Errorf("item[%d]: %w", i, ErrMenuItemUnavailable)
		}
		line, err := cr.AddCatalogItem(item, it.Portion)
		if err != nil {
			return model.Order{}, fmt.Errorf("item[%d]: %w", i, err)
		}
		if it.Quantity > 1 {
			if line, _, err = cr.UpdateQuantity(line.ID, it.Quantity-1); err != nil {
				return model.Order{}, fmt.Errorf("item[%d]: %w", i, err)
			}
		}
		if line.Quantity > maxItemQuantity {
			return model.Order{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if it.Note != "" {
			if _, err := cr.SetNote(line.ID, it.Note); err != nil {
				return model.Order{}, fmt.Errorf("item[%d]: %w", i, err)
			}
		}
	}

	totals := pricing.Compute(cr.Amounts(), pricing.Config{
		TaxRate:       s.taxRate,
		PaymentMethod: req.PaymentMethod,
	}).Round(req.PaymentMethod, decimal.Zero)

	order := model.Order{
		Items:          cr.OrderItems(),
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		TaxAmount:      totals.Tax,
		Total:          totals.Total,
		Customer:       customer,
		PaymentMethod:  req.PaymentMethod,
		OrderType:      req.OrderType,
		Status:         enum.OrderStatusPending,
		Source:         enum.OrderSourceCustomer,
	}
	created, err := s.create(ctx, order)
	if err != nil {
		return model.Order{}, err
	}

	s.logger.Info().Str("order", created.OrderNumber).Msg("customer order received")
	s.alerts.Notify(created.ID.String())
	s.events.Publish(ws.EventOrderCreated, created)
	return created, nil
}

// UpdateStatus moves an order along its lifecycle. Leaving pending
// acknowledges the incoming-order alert.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (model.Order, error) {
	if !enum.IsOrderStatus(status) {
		return model.Order{}, ErrInvalidOrderStatus
	}
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !canTransition(order.Status, status) {
		return model.Order{}, fmt.Errorf("%s to %s: %w", order.Status, status, ErrStatusTransition)
	}

	previous := order.Status
	order.Status = status
	updated, err := s.store.UpdateOrder(ctx, order)
	if err != nil {
		return model.Order{}, err
	}

	if previous == enum.OrderStatusPending {
		s.alerts.Acknowledge(updated.ID.String())
	}
	s.events.Publish(ws.EventOrderUpdated, updated)
	return updated, nil
}

// SetPaid records whether an order has been paid.
func (s *OrderService) SetPaid(ctx context.Context, id uuid.UUID, paid bool) (model.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if order.IsPaid == paid {
		return order, nil
	}
	order.IsPaid = paid
	updated, err := s.store.UpdateOrder(ctx, order)
	if err != nil {
		return model.Order{}, err
	}
	s.events.Publish(ws.EventOrderUpdated, updated)
	return updated, nil
}

func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.alerts.Acknowledge(id.String())
	s.events.Publish(ws.EventOrderDeleted, map[string]string{"id": id.String()})
	return nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (model.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) List(ctx context.Context, f store.OrderFilter) ([]model.Order, error) {
	return s.store.ListOrders(ctx, f)
}

// SyncAlerts rebuilds the alert set from the pending customer orders in the
// store. Run it at startup so a restart does not silence waiting orders.
func (s *OrderService) SyncAlerts(ctx context.Context) error {
	pending, err := s.store.ListOrders(ctx, store.OrderFilter{
		Status: enum.OrderStatusPending,
		Source: enum.OrderSourceCustomer,
	})
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}
	ids := make([]string, len(pending))
	for i, o := range pending {
		ids[i] = o.ID.String()
	}
	s.alerts.Sync(ids)
	return nil
}

// create numbers and stores the order. Retries up to maxOrderNumberRetries
// times when another writer took the same number first.
func (s *OrderService) create(ctx context.Context, order model.Order) (model.Order, error) {
	returning, err := s.store.HasOrderForPhone(ctx, order.Customer.Phone)
	if err != nil {
		return model.Order{}, err
	}
	order.Customer.Returning = returning

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		seq, err := s.store.NextOrderSequence(ctx)
		if err != nil {
			return model.Order{}, err
		}
		order.ID = uuid.New()
		order.Sequence = seq
		order.OrderNumber = s.orderNumber(seq)
		order.CreatedAt = time.Now()

		created, err := s.store.CreateOrder(ctx, order)
		if err == nil {
			return created, nil
		}
		if errors.Is(err, store.ErrConflict) {
			lastErr = err
			continue
		}
		return model.Order{}, err
	}
	return model.Order{}, lastErr
}

func (s *OrderService) orderNumber(seq int) string {
	return fmt.Sprintf("%s-%03d", s.prefix, seq)
}

func canTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func trimCustomer(c model.Customer) model.Customer {
	return model.Customer{
		Name:       strings.TrimSpace(c.Name),
		Phone:      strings.TrimSpace(c.Phone),
		Address:    strings.TrimSpace(c.Address),
		PostalCode: strings.ToUpper(strings.TrimSpace(c.PostalCode)),
		Notes:      strings.TrimSpace(c.Notes),
	}
}
