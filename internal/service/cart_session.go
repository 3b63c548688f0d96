package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/cart"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/pricing"
	"github.com/momohouse/pos/internal/store"
	"github.com/shopspring/decimal"
)

// Errors returned by cart sessions.
var (
	ErrCartNotFound         = errors.New("cart not found")
	ErrInvalidDiscountType  = errors.New("invalid discount type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// MenuReader looks up catalog items. Satisfied by *MenuService.
type MenuReader interface {
	Get(ctx context.Context, id uuid.UUID) (model.MenuItem, error)
}

// CartConfig is the payment side of a cart: everything the totals depend on
// besides the lines.
type CartConfig struct {
	DiscountType   string `json:"discountType"`
	DiscountValue  string `json:"discountValue"`
	PaymentMethod  string `json:"paymentMethod"`
	AmountReceived string `json:"amountReceived"`
}

// CartSnapshot is a consistent read of one cart with its totals rounded for
// display.
type CartSnapshot struct {
	ID     uuid.UUID      `json:"id"`
	Lines  []cart.Line    `json:"lines"`
	Paid   bool           `json:"isPaid"`
	Config CartConfig     `json:"config"`
	Totals pricing.Totals `json:"totals"`
}

type session struct {
	mu      sync.Mutex
	cart    *cart.Cart
	cfg     CartConfig
	touched time.Time
}

// CartSessions holds one cart per POS session. Each session has its own lock
// so a mutation and the totals computed after it are always consistent.
type CartSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	menu     MenuReader
	taxRate  decimal.Decimal
	now      func() time.Time
}

// NewCartSessions creates an empty session registry. taxRate is a percentage.
func NewCartSessions(menu MenuReader, taxRate decimal.Decimal) *CartSessions {
	return &CartSessions{
		sessions: make(map[uuid.UUID]*session),
		menu:     menu,
		taxRate:  taxRate,
		now:      time.Now,
	}
}

// Create opens a new empty cart with cash as the default payment method.
func (c *CartSessions) Create() CartSnapshot {
	s := &session{
		cart:    cart.New(),
		cfg:     CartConfig{PaymentMethod: enum.PaymentMethodCash},
		touched: c.now(),
	}
	id := uuid.New()

	c.mu.Lock()
	c.sessions[id] = s
	c.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return c.snapshot(id, s)
}

func (c *CartSessions) Get(id uuid.UUID) (CartSnapshot, error) {
	return c.with(id, func(s *session) error { return nil })
}

// Delete drops the session entirely.
func (c *CartSessions) Delete(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[id]; !ok {
		return ErrCartNotFound
	}
	delete(c.sessions, id)
	return nil
}

// AddItem adds one unit of a catalog item in the given portion.
func (c *CartSessions) AddItem(ctx context.Context, id, menuItemID uuid.UUID, portion string) (CartSnapshot, error) {
	item, err := c.menu.Get(ctx, menuItemID)
	if errors.Is(err, store.ErrNotFound) {
		return CartSnapshot{}, ErrMenuItemUnavailable
	}
	if err != nil {
		return CartSnapshot{}, err
	}
	if !item.Available {
		return CartSnapshot{}, ErrMenuItemUnavailable
	}
	return c.with(id, func(s *session) error {
		_, err := s.cart.AddCatalogItem(item, portion)
		return err
	})
}

func (c *CartSessions) AddCustomItem(id uuid.UUID, name string, price decimal.Decimal, quantity int) (CartSnapshot, error) {
	return c.with(id, func(s *session) error {
		_, err := s.cart.AddCustomItem(name, price, quantity)
		return err
	})
}

// UpdateQuantity changes a line's quantity by delta, removing it at zero.
func (c *CartSessions) UpdateQuantity(id, lineID uuid.UUID, delta int) (CartSnapshot, error) {
	return c.with(id, func(s *session) error {
		_, _, err := s.cart.UpdateQuantity(lineID, delta)
		return err
	})
}

func (c *CartSessions) SetNote(id, lineID uuid.UUID, note string) (CartSnapshot, error) {
	return c.with(id, func(s *session) error {
		_, err := s.cart.SetNote(lineID, note)
		return err
	})
}

func (c *CartSessions) RemoveLine(id, lineID uuid.UUID) (CartSnapshot, error) {
	return c.with(id, func(s *session) error {
		return s.cart.RemoveLine(lineID)
	})
}

func (c *CartSessions) Clear(id uuid.UUID) (CartSnapshot, error) {
	return c.with(id, func(s *session) error {
		return s.cart.Clear()
	})
}

// Configure replaces the discount and payment settings. A paid cart keeps
// its settings until it is marked unpaid again.
func (c *CartSessions) Configure(id uuid.UUID, cfg CartConfig) (CartSnapshot, error) {
	if cfg.DiscountType != "" &&
		cfg.DiscountType != enum.DiscountTypePercentage &&
		cfg.DiscountType != enum.DiscountTypeFixed {
		return CartSnapshot{}, ErrInvalidDiscountType
	}
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = enum.PaymentMethodCash
	}
	if !enum.IsPaymentMethod(cfg.PaymentMethod) {
		return CartSnapshot{}, ErrInvalidPaymentMethod
	}
	return c.with(id, func(s *session) error {
		if s.cart.Paid() {
			return cart.ErrCartLocked
		}
		s.cfg = cfg
		return nil
	})
}

// SetPaid locks (or unlocks) the cart against edits.
func (c *CartSessions) SetPaid(id uuid.UUID, paid bool) (CartSnapshot, error) {
	return c.with(id, func(s *session) error {
		s.cart.SetPaid(paid)
		return nil
	})
}

// Len reports the number of open sessions.
func (c *CartSessions) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Prune drops sessions untouched for longer than maxIdle and returns how many
// were removed.
func (c *CartSessions) Prune(maxIdle time.Duration) int {
	cutoff := c.now().Add(-maxIdle)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, s := range c.sessions {
		s.mu.Lock()
		idle := s.touched.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// with runs fn under the session lock and returns the snapshot taken after
// it, even when fn fails, so callers always see the current state.
func (c *CartSessions) with(id uuid.UUID, fn func(s *session) error) (CartSnapshot, error) {
	s, ok := c.lookup(id)
	if !ok {
		return CartSnapshot{}, ErrCartNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s)
	s.touched = c.now()
	return c.snapshot(id, s), err
}

func (c *CartSessions) lookup(id uuid.UUID) (*session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	return s, ok
}

func (c *CartSessions) totals(s *session) pricing.Totals {
	received := pricing.ParseAmount(s.cfg.AmountReceived)
	t := pricing.Compute(s.cart.Amounts(), pricing.Config{
		Discount:       pricing.Discount{Type: s.cfg.DiscountType, Input: s.cfg.DiscountValue},
		TaxRate:        c.taxRate,
		PaymentMethod:  s.cfg.PaymentMethod,
		AmountReceived: received,
	})
	return t.Round(s.cfg.PaymentMethod, received)
}

// snapshot must be called with s.mu held.
func (c *CartSessions) snapshot(id uuid.UUID, s *session) CartSnapshot {
	return CartSnapshot{
		ID:     id,
		Lines:  s.cart.Lines(),
		Paid:   s.cart.Paid(),
		Config: s.cfg,
		Totals: c.totals(s),
	}
}

// checkout hands fn a locked view of the cart. The cart is reset only when
// fn succeeds.
func (c *CartSessions) checkout(id uuid.UUID, fn func(cr *cart.Cart, cfg CartConfig, totals pricing.Totals) error) error {
	s, ok := c.lookup(id)
	if !ok {
		return ErrCartNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.cart, s.cfg, c.totals(s)); err != nil {
		return err
	}
	s.cart.Reset()
	s.cfg = CartConfig{PaymentMethod: enum.PaymentMethodCash}
	s.touched = c.now()
	return nil
}
