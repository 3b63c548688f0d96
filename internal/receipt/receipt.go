// Package receipt renders orders as thermal printer scripts and as printable
// HTML pages.
package receipt

import (
	"fmt"
	"time"

	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/escpos"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/pricing"
	"github.com/shopspring/decimal"
)

// Shop is the header printed on every receipt.
type Shop struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Config controls how receipts are laid out.
type Config struct {
	Width    int
	CodePage escpos.CodePage
	Currency string
	QRSize   int
	Location *time.Location
}

// Formatter turns an order into a receipt. It holds no per-receipt state and
// is safe for concurrent use.
type Formatter struct {
	cfg Config
}

func NewFormatter(cfg Config) *Formatter {
	if cfg.Width <= 0 {
		cfg.Width = escpos.DefaultWidth
	}
	if cfg.CodePage == "" {
		cfg.CodePage = escpos.PC437
	}
	if cfg.Currency == "" {
		cfg.Currency = "£"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Formatter{cfg: cfg}
}

// Format renders order as an ESC/POS script.
func (f *Formatter) Format(order model.Order, shop Shop) ([]byte, error) {
	b := escpos.NewBuilder(escpos.WithWidth(f.cfg.Width), escpos.WithCodePage(f.cfg.CodePage))

	// --- Header ---
	b.Initialize().
		NewLine(1).
		BoldText(shop.Name, escpos.AlignCenter)
	if shop.Address != "" {
		b.Text(shop.Address, escpos.AlignCenter)
	}
	if shop.Phone != "" {
		b.Text(shop.Phone, escpos.AlignCenter)
	}
	b.Separator()

	// --- Order info ---
	b.Text("Order: "+order.OrderNumber, escpos.AlignLeft).
		Text("Date: "+f.timestamp(order.CreatedAt)).
		Text("Type: " + order.OrderType)

	// --- Customer ---
	c := order.Customer
	if c.Name != "" {
		b.Separator().Text("Customer: " + c.Name)
		if c.Phone != "" {
			b.Text("Phone: " + c.Phone)
		}
		if c.Address != "" {
			b.Text("Address: " + c.Address)
		}
		if c.PostalCode != "" {
			b.Text("Postcode: " + c.PostalCode)
		}
	}

	// --- Items ---
	b.Separator()
	for _, item := range order.Items {
		b.Text(ItemLabel(item), escpos.AlignLeft).
			Text(f.money(item.LineTotal()), escpos.AlignRight)
	}

	// --- Totals ---
	b.Separator().
		Text("Subtotal: "+f.money(order.Subtotal), escpos.AlignRight)
	if order.DiscountAmount.IsPositive() {
		b.Text("Discount: -" + f.money(order.DiscountAmount))
	}
	if order.TaxAmount.IsPositive() {
		b.Text("Tax: " + f.money(order.TaxAmount))
	}
	b.BoldText("TOTAL: "+f.money(order.Total), escpos.AlignRight)

	// --- Payment ---
	b.Separator().
		Text(fmt.Sprintf("Payment: %s (%s)", order.PaymentMethod, paidLabel(order.IsPaid)), escpos.AlignLeft).
		Text("Customer: " + customerStatus(c))

	if order.OrderNumber != "" {
		b.NewLine(1).
			Text("Order ID:", escpos.AlignCenter).
			QRCode(order.OrderNumber, f.cfg.QRSize)
	}

	// --- Footer ---
	b.NewLine(2).
		Text("Thank You!", escpos.AlignCenter).
		Text("Visit Again Soon").
		NewLine(1).
		Cut(false).
		NewLine(2)

	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("format receipt %s: %w", order.OrderNumber, err)
	}
	return b.Build(), nil
}

// ItemLabel is the "{qty}x {name} ({Portion})" line of a receipt item.
func ItemLabel(item model.OrderItem) string {
	label := fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	if item.Portion != "" {
		label += " (" + pricing.FormatPortionLabel(item.Portion) + ")"
	}
	return label
}

func (f *Formatter) money(d decimal.Decimal) string {
	return f.cfg.Currency + d.StringFixed(2)
}

func (f *Formatter) timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.cfg.Location).Format("02/01/2006 15:04")
}

func paidLabel(paid bool) string {
	if paid {
		return "PAID"
	}
	return "UNPAID"
}

func customerStatus(c model.Customer) string {
	if c.Returning {
		return "Returning"
	}
	return "New"
}

func isCash(order model.Order) bool {
	return order.PaymentMethod == enum.PaymentMethodCash
}
