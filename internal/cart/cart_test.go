package cart

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/pricing"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func momos() model.MenuItem {
	item := model.MenuItem{ID: uuid.New(), Name: "Chicken Momos", Category: "Momos"}
	item.Prices.Set("large", dec("8.95"))
	item.Prices.Set("small", dec("5.50"))
	return item
}

func TestAddCatalogItem_MergesSamePortion(t *testing.T) {
	c := New()
	item := momos()

	if _, err := c.AddCatalogItem(item, "large"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line, err := c.AddCatalogItem(item, "large")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Len() != 1 {
		t.Fatalf("expected 1 line, got %d", c.Len())
	}
	if line.Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", line.Quantity)
	}
	if !line.UnitPrice.Equal(dec("8.95")) {
		t.Errorf("unit price: got %s, want 8.95", line.UnitPrice)
	}
}

func TestAddCatalogItem_DifferentPortionsAreSeparateLines(t *testing.T) {
	c := New()
	item := momos()

	c.AddCatalogItem(item, "large")
	c.AddCatalogItem(item, "small")

	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Portion != "large" || lines[1].Portion != "small" {
		t.Errorf("insertion order lost: %s, %s", lines[0].Portion, lines[1].Portion)
	}
	if !lines[1].UnitPrice.Equal(dec("5.50")) {
		t.Errorf("small price: got %s", lines[1].UnitPrice)
	}
}

func TestAddCatalogItem_FallsBackToFirstValidPortion(t *testing.T) {
	c := New()
	item := momos()

	line, err := c.AddCatalogItem(item, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Portion != "large" {
		t.Errorf("portion: got %q, want large", line.Portion)
	}

	// Same resolved portion merges with the implicit one.
	c.AddCatalogItem(item, "large")
	if c.Len() != 1 {
		t.Errorf("expected merge into 1 line, got %d", c.Len())
	}
}

func TestAddCatalogItem_Unpriced(t *testing.T) {
	c := New()
	item := model.MenuItem{ID: uuid.New(), Name: "Broken"}

	_, err := c.AddCatalogItem(item, "large")
	if !errors.Is(err, ErrItemUnpriced) {
		t.Fatalf("expected ErrItemUnpriced, got: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("cart changed: %d lines", c.Len())
	}
}

func TestAddCustomItem_Validation(t *testing.T) {
	tests := []struct {
		name  string
		item  string
		price string
		qty   int
	}{
		{"blank name", "", "5", 1},
		{"whitespace name", "   ", "5", 1},
		{"zero price", "Extra sauce", "0", 1},
		{"negative price", "Extra sauce", "-1", 1},
		{"zero quantity", "Extra sauce", "1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			_, err := c.AddCustomItem(tt.item, dec(tt.price), tt.qty)
			if !errors.Is(err, ErrInvalidCustomItem) {
				t.Fatalf("expected ErrInvalidCustomItem, got: %v", err)
			}
			if c.Len() != 0 {
				t.Errorf("cart changed: %d lines", c.Len())
			}
		})
	}
}

func TestAddCustomItem_NeverMerges(t *testing.T) {
	c := New()
	c.AddCustomItem("Extra sauce", dec("0.50"), 1)
	c.AddCustomItem("Extra sauce", dec("0.50"), 1)

	if c.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d", c.Len())
	}
	for _, l := range c.Lines() {
		if !l.Custom || l.MenuItemID != uuid.Nil {
			t.Errorf("custom line carries catalog id: %+v", l)
		}
	}
}

func TestUpdateQuantity(t *testing.T) {
	c := New()
	line, _ := c.AddCatalogItem(momos(), "large")

	got, removed, err := c.UpdateQuantity(line.ID, 2)
	if err != nil || removed {
		t.Fatalf("unexpected result: removed=%v err=%v", removed, err)
	}
	if got.Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", got.Quantity)
	}

	_, removed, err = c.UpdateQuantity(line.ID, -3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Error("expected line to be removed at quantity 0")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cart, got %d lines", c.Len())
	}

	if _, _, err := c.UpdateQuantity(line.ID, 1); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got: %v", err)
	}
}

func TestSetNote_Truncates(t *testing.T) {
	c := New()
	line, _ := c.AddCatalogItem(momos(), "large")

	long := strings.Repeat("é", 150)
	got, err := c.SetNote(line.ID, long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len([]rune(got.Note)); n != MaxNoteLength {
		t.Errorf("note length: got %d, want %d", n, MaxNoteLength)
	}

	got, _ = c.SetNote(line.ID, "<b>no onions</b>")
	if got.Note != "<b>no onions</b>" {
		t.Errorf("note not stored verbatim: %q", got.Note)
	}
}

func TestRemoveLineAndClear(t *testing.T) {
	c := New()
	a, _ := c.AddCatalogItem(momos(), "large")
	c.AddCustomItem("Drink", dec("1.20"), 2)

	if err := c.RemoveLine(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 1 || c.Lines()[0].Name != "Drink" {
		t.Fatalf("unexpected lines after remove: %+v", c.Lines())
	}
	if err := c.RemoveLine(a.ID); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got: %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cart, got %d lines", c.Len())
	}
}

func TestPaidCartIgnoresMutations(t *testing.T) {
	c := New()
	item := momos()
	line, _ := c.AddCatalogItem(item, "large")
	c.SetPaid(true)

	before := c.Lines()

	checks := map[string]error{}
	_, checks["add"] = c.AddCatalogItem(item, "large")
	_, checks["custom"] = c.AddCustomItem("Drink", dec("1"), 1)
	_, _, checks["quantity"] = c.UpdateQuantity(line.ID, 5)
	_, checks["note"] = c.SetNote(line.ID, "hot")
	checks["remove"] = c.RemoveLine(line.ID)
	checks["clear"] = c.Clear()

	for op, err := range checks {
		if !errors.Is(err, ErrCartLocked) {
			t.Errorf("%s: expected ErrCartLocked, got: %v", op, err)
		}
	}

	after := c.Lines()
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("paid cart changed: before %+v after %+v", before, after)
	}

	c.SetPaid(false)
	if _, err := c.AddCatalogItem(item, "large"); err != nil {
		t.Errorf("unlock failed: %v", err)
	}
}

func TestLinesReturnsCopy(t *testing.T) {
	c := New()
	c.AddCatalogItem(momos(), "large")

	lines := c.Lines()
	lines[0].Quantity = 99

	if c.Lines()[0].Quantity != 1 {
		t.Error("mutating returned lines changed the cart")
	}
}

func TestAmountsMatchLineTotals(t *testing.T) {
	c := New()
	item := momos()
	c.AddCatalogItem(item, "large")
	c.AddCatalogItem(item, "large")
	c.AddCustomItem("Drink", dec("1.25"), 3)

	totals := pricing.Compute(c.Amounts(), pricing.Config{})

	sum := decimal.Zero
	for _, l := range c.Lines() {
		sum = sum.Add(l.Total())
	}
	if !totals.Subtotal.Equal(sum) {
		t.Errorf("subtotal %s != sum of lines %s", totals.Subtotal, sum)
	}
	if !sum.Equal(dec("21.65")) {
		t.Errorf("sum: got %s, want 21.65", sum)
	}
}

func TestOrderItems(t *testing.T) {
	c := New()
	item := momos()
	c.AddCatalogItem(item, "small")
	c.AddCustomItem("Drink", dec("1.25"), 1)

	items := c.OrderItems()
	if items[0].MenuItemID == nil || *items[0].MenuItemID != item.ID {
		t.Errorf("catalog line lost its menu item id")
	}
	if items[1].MenuItemID != nil {
		t.Errorf("custom line has a menu item id")
	}
}
