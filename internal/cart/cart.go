// Package cart holds the in-progress order lines of a single POS session.
//
// A Cart is not safe for concurrent use; callers serialise access (see
// service.CartSessions).
package cart

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/pricing"
	"github.com/shopspring/decimal"
)

// MaxNoteLength is the longest note kept on a line, in characters.
const MaxNoteLength = 100

var (
	ErrInvalidCustomItem = errors.New("custom item needs a name, a price above zero and a quantity above zero")
	ErrItemUnpriced      = errors.New("menu item has no valid price")
	ErrLineNotFound      = errors.New("cart line not found")
	ErrCartLocked        = errors.New("cart is paid and locked")
)

// Line is one row of the cart. MenuItemID is uuid.Nil for custom lines.
type Line struct {
	ID         uuid.UUID       `json:"id"`
	MenuItemID uuid.UUID       `json:"menuItemId"`
	Name       string          `json:"name"`
	Portion    string          `json:"portion,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	Note       string          `json:"note,omitempty"`
	Custom     bool            `json:"custom"`
}

// Total is unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	lines []Line
	paid  bool
	newID func() uuid.UUID
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{newID: uuid.New}
}

// AddCatalogItem adds one unit of item in the given portion. A line for the
// same item and portion is incremented instead of duplicated.
func (c *Cart) AddCatalogItem(item model.MenuItem, portion string) (Line, error) {
	if c.paid {
		return Line{}, ErrCartLocked
	}

	p, ok := pricing.ResolvePortion(item, portion)
	if !ok {
		return Line{}, fmt.Errorf("%s: %w", item.Name, ErrItemUnpriced)
	}

	for i := range c.lines {
		l := &c.lines[i]
		if !l.Custom && l.MenuItemID == item.ID && l.Portion == p.Label {
			l.Quantity++
			return *l, nil
		}
	}

	line := Line{
		ID:         c.newID(),
		MenuItemID: item.ID,
		Name:       item.Name,
		Portion:    p.Label,
		UnitPrice:  p.Price,
		Quantity:   1,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// AddCustomItem appends an off-menu line. Custom lines never merge.
func (c *Cart) AddCustomItem(name string, price decimal.Decimal, quantity int) (Line, error) {
	if c.paid {
		return Line{}, ErrCartLocked
	}
	name = strings.TrimSpace(name)
	if name == "" || !price.IsPositive() || quantity <= 0 {
		return Line{}, ErrInvalidCustomItem
	}

	line := Line{
		ID:        c.newID(),
		Name:      name,
		UnitPrice: price,
		Quantity:  quantity,
		Custom:    true,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// UpdateQuantity adds delta to the line's quantity and removes the line when
// the result drops to zero or below. removed reports whether that happened.
func (c *Cart) UpdateQuantity(lineID uuid.UUID, delta int) (line Line, removed bool, err error) {
	if c.paid {
		return Line{}, false, ErrCartLocked
	}
	i := c.index(lineID)
	if i < 0 {
		return Line{}, false, ErrLineNotFound
	}

	c.lines[i].Quantity += delta
	if c.lines[i].Quantity <= 0 {
		line = c.lines[i]
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return line, true, nil
	}
	return c.lines[i], false, nil
}

// SetNote stores text on the line, cut to MaxNoteLength characters.
func (c *Cart) SetNote(lineID uuid.UUID, text string) (Line, error) {
	if c.paid {
		return Line{}, ErrCartLocked
	}
	i := c.index(lineID)
	if i < 0 {
		return Line{}, ErrLineNotFound
	}
	c.lines[i].Note = truncate(text, MaxNoteLength)
	return c.lines[i], nil
}

func (c *Cart) RemoveLine(lineID uuid.UUID) error {
	if c.paid {
		return ErrCartLocked
	}
	i := c.index(lineID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

func (c *Cart) Clear() error {
	if c.paid {
		return ErrCartLocked
	}
	c.lines = nil
	return nil
}

// Reset empties the cart and lifts the paid lock. Used once the cart has
// been turned into an order.
func (c *Cart) Reset() {
	c.lines = nil
	c.paid = false
}

// SetPaid toggles the soft lock. While paid, every mutator returns
// ErrCartLocked and leaves the cart as it is.
func (c *Cart) SetPaid(paid bool) {
	c.paid = paid
}

func (c *Cart) Paid() bool { return c.paid }

func (c *Cart) Len() int { return len(c.lines) }

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Amounts returns the priced view of the lines for the totals engine.
func (c *Cart) Amounts() []pricing.Line {
	out := make([]pricing.Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

// OrderItems freezes the lines into order items.
func (c *Cart) OrderItems() []model.OrderItem {
	out := make([]model.OrderItem, len(c.lines))
	for i, l := range c.lines {
		item := model.OrderItem{
			Name:     l.Name,
			Portion:  l.Portion,
			Price:    l.UnitPrice,
			Quantity: l.Quantity,
			Note:     l.Note,
		}
		if !l.Custom {
			id := l.MenuItemID
			item.MenuItemID = &id
		}
		out[i] = item
	}
	return out
}

func (c *Cart) index(lineID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
