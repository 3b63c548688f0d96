package pricing

import (
	"strings"

	"github.com/momohouse/pos/internal/enum"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is the priced part of a cart or order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Discount is an order-level discount. Input is the raw value typed by the
// operator; blank or unparsable input means no discount.
type Discount struct {
	Type  string
	Input string
}

// Config carries everything besides the lines that affects the totals.
type Config struct {
	Discount       Discount
	TaxRate        decimal.Decimal
	PaymentMethod  string
	AmountReceived decimal.Decimal
}

// Totals is the result of Compute. Values are exact; call Round before
// persisting or displaying them.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Change   decimal.Decimal `json:"changeDue"`
}

// Compute derives subtotal, discount, tax, total and cash change. It has no
// side effects and never fails: bad inputs count as zero.
func Compute(lines []Line, cfg Config) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	discount := DiscountAmount(subtotal, cfg.Discount)

	tax := decimal.Zero
	if cfg.TaxRate.IsPositive() {
		tax = subtotal.Sub(discount).Mul(cfg.TaxRate).Div(hundred)
	}

	total := decimal.Max(decimal.Zero, subtotal.Sub(discount).Add(tax))

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    total,
		Change:   ChangeDue(cfg.PaymentMethod, cfg.AmountReceived, total),
	}
}

// DiscountAmount applies d to subtotal. Percentages are clamped to 0..100 and
// a fixed amount never exceeds the subtotal.
func DiscountAmount(subtotal decimal.Decimal, d Discount) decimal.Decimal {
	v := ParseAmount(d.Input)
	if v.IsZero() || !subtotal.IsPositive() {
		return decimal.Zero
	}
	switch d.Type {
	case enum.DiscountTypePercentage:
		pct := decimal.Min(v, hundred)
		return subtotal.Mul(pct).Div(hundred)
	case enum.DiscountTypeFixed:
		return decimal.Min(v, subtotal)
	default:
		return decimal.Zero
	}
}

// ChangeDue is only meaningful for cash; every other method yields zero.
func ChangeDue(method string, received, total decimal.Decimal) decimal.Decimal {
	if method != enum.PaymentMethodCash {
		return decimal.Zero
	}
	return decimal.Max(decimal.Zero, received.Sub(total))
}

// Round returns t rounded to two decimal places. Subtotal, discount and tax
// are rounded first and total and change are derived from them so printed
// lines always add up.
func (t Totals) Round(method string, received decimal.Decimal) Totals {
	r := Totals{
		Subtotal: t.Subtotal.Round(2),
		Discount: t.Discount.Round(2),
		Tax:      t.Tax.Round(2),
	}
	r.Total = decimal.Max(decimal.Zero, r.Subtotal.Sub(r.Discount).Add(r.Tax))
	r.Change = ChangeDue(method, received, r.Total)
	return r
}

// ParseAmount reads an operator-entered amount. Blank, malformed and
// negative input all read as zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil || v.IsNegative() {
		return decimal.Zero
	}
	return v
}
