package pricing

import (
	"unicode"
	"unicode/utf8"

	"github.com/momohouse/pos/internal/model"
	"github.com/shopspring/decimal"
)

// ValidPortions returns the portions of item that carry a price above zero,
// in the order they are defined on the item.
func ValidPortions(item model.MenuItem) []model.Portion {
	var out []model.Portion
	for _, p := range item.Prices {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// ResolvePortion picks the portion a cart line should be priced with: the
// requested one if it is valid, otherwise the first valid portion. ok is
// false when the item has no valid portion at all.
func ResolvePortion(item model.MenuItem, label string) (model.Portion, bool) {
	valid := ValidPortions(item)
	if len(valid) == 0 {
		return model.Portion{Label: label}, false
	}
	if label != "" {
		for _, p := range valid {
			if p.Label == label {
				return p, true
			}
		}
	}
	return valid[0], true
}

// ResolvePrice returns the unit price for label, falling back to the first
// valid portion, or zero when the item has none.
func ResolvePrice(item model.MenuItem, label string) decimal.Decimal {
	p, ok := ResolvePortion(item, label)
	if !ok {
		return decimal.Zero
	}
	return p.Price
}

// FormatPortionLabel upper-cases the first letter of label for display.
func FormatPortionLabel(label string) string {
	r, size := utf8.DecodeRuneInString(label)
	if r == utf8.RuneError {
		return label
	}
	return string(unicode.ToUpper(r)) + label[size:]
}
