package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/cache"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/handler"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/printer"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/momohouse/pos/internal/service"
	"github.com/momohouse/pos/internal/store"
	"github.com/rs/zerolog"
)

// --- Mock Checkouter ---

type mockCheckouter struct {
	checkoutFn func(ctx context.Context, cartID uuid.UUID, req service.CheckoutRequest) (model.Order, error)
	lastReq    service.CheckoutRequest
}

func (m *mockCheckouter) Checkout(ctx context.Context, cartID uuid.UUID, req service.CheckoutRequest) (model.Order, error) {
	m.lastReq = req
	return m.checkoutFn(ctx, cartID, req)
}

// --- Mock ReceiptPrinter ---

type mockPrinter struct {
	err    error
	orders []string
	copies int
}

func (m *mockPrinter) PrintReceipt(order model.Order, shop receipt.Shop, copies int) ([]printer.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.orders = append(m.orders, order.OrderNumber)
	m.copies = copies
	return make([]printer.Job, copies), nil
}

type cartFixture struct {
	router   http.Handler
	menu     *service.MenuService
	carts    *service.CartSessions
	checkout *mockCheckouter
	printer  *mockPrinter
	ramen    model.MenuItem
}

func setupCartRouter(t *testing.T) *cartFixture {
	t.Helper()
	menu := service.NewMenuService(store.NewMemory(), cache.NewMemory(0), zerolog.Nop())
	ramen, err := menu.Create(context.Background(), model.MenuItem{
		Name: "Ramen", Category: "Noodles", Available: true, Prices: standardPrice("8.95"),
	})
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	carts := service.NewCartSessions(menu, dec("0"))
	f := &cartFixture{
		menu:     menu,
		carts:    carts,
		checkout: &mockCheckouter{},
		printer:  &mockPrinter{},
		ramen:    ramen,
	}
	h := handler.NewCartHandler(carts, f.checkout, f.printer, testShop, 2)
	f.router = authedRouter("/carts", h.RegisterRoutes)
	return f
}

func (f *cartFixture) newCart(t *testing.T) service.CartSnapshot {
	t.Helper()
	rr := doAuthRequest(t, f.router, "POST", "/carts/", nil, enum.RoleStaff)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create cart: got %d", rr.Code)
	}
	var snap service.CartSnapshot
	decodeResponse(t, rr, &snap)
	return snap
}

func TestCartHandler_LineFlow(t *testing.T) {
	f := setupCartRouter(t)
	id := f.newCart(t).ID.String()

	var snap service.CartSnapshot
	rr := doAuthRequest(t, f.router, "POST", "/carts/"+id+"/items", map[string]string{"menuItemId": f.ramen.ID.String()}, enum.RoleStaff)
	if rr.Code != http.StatusOK {
		t.Fatalf("add item: got %d (body %s)", rr.Code, rr.Body.String())
	}
	decodeResponse(t, rr, &snap)
	lineID := snap.Lines[0].ID.String()

	rr = doAuthRequest(t, f.router, "POST", "/carts/"+id+"/custom-items", map[string]interface{}{"name": "Corkage", "price": 3}, enum.RoleStaff)
	if rr.Code != http.StatusOK {
		t.Fatalf("add custom item: got %d (body %s)", rr.Code, rr.Body.String())
	}

	rr = doAuthRequest(t, f.router, "PATCH", "/carts/"+id+"/lines/"+lineID, map[string]interface{}{"delta": 1, "note": "extra chilli"}, enum.RoleStaff)
	if rr.Code != http.StatusOK {
		t.Fatalf("update line: got %d (body %s)", rr.Code, rr.Body.String())
	}
	decodeResponse(t, rr, &snap)
	if snap.Lines[0].Quantity != 2 || snap.Lines[0].Note != "extra chilli" {
		t.Fatalf("line not updated: %+v", snap.Lines[0])
	}
	if !snap.Totals.Subtotal.Equal(dec("20.90")) {
		t.Errorf("subtotal: got %s, want 20.90", snap.Totals.Subtotal)
	}

	rr = doAuthRequest(t, f.router, "PUT", "/carts/"+id+"/config", map[string]string{
		"discountType": enum.DiscountTypePercentage, "discountValue": "10", "paymentMethod": enum.PaymentMethodCash, "amountReceived": "20",
	}, enum.RoleStaff)
	if rr.Code != http.StatusOK {
		t.Fatalf("configure: got %d (body %s)", rr.Code, rr.Body.String())
	}
	decodeResponse(t, rr, &snap)
	if !snap.Totals.Total.Equal(dec("18.81")) {
		t.Errorf("total after 10%% discount: got %s, want 18.81", snap.Totals.Total)
	}
	if !snap.Totals.Change.Equal(dec("1.19")) {
		t.Errorf("change: got %s, want 1.19", snap.Totals.Change)
	}

	rr = doAuthRequest(t, f.router, "DELETE", "/carts/"+id+"/lines/"+lineID, nil, enum.RoleStaff)
	decodeResponse(t, rr, &snap)
	if len(snap.Lines) != 1 || snap.Lines[0].Name != "Corkage" {
		t.Fatalf("remove line: got %+v", snap.Lines)
	}

	rr = doAuthRequest(t, f.router, "DELETE", "/carts/"+id+"/lines/"+lineID, nil, enum.RoleStaff)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("remove missing line: got %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doAuthRequest(t, f.router, "POST", "/carts/"+id+"/clear", nil, enum.RoleStaff)
	decodeResponse(t, rr, &snap)
	if len(snap.Lines) != 0 {
		t.Fatalf("clear: got %+v", snap.Lines)
	}
}

func TestCartHandler_Errors(t *testing.T) {
	f := setupCartRouter(t)
	id := f.newCart(t).ID.String()

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		wantCode int
	}{
		{"unknown cart", "GET", "/carts/" + uuid.NewString(), nil, http.StatusNotFound},
		{"bad cart id", "GET", "/carts/abc", nil, http.StatusBadRequest},
		{"bad menu item id", "POST", "/carts/" + id + "/items", map[string]string{"menuItemId": "x"}, http.StatusBadRequest},
		{"unknown menu item", "POST", "/carts/" + id + "/items", map[string]string{"menuItemId": uuid.NewString()}, http.StatusBadRequest},
		{"custom item without price", "POST", "/carts/" + id + "/custom-items", map[string]interface{}{"name": "Extra"}, http.StatusBadRequest},
		{"empty line update", "PATCH", "/carts/" + id + "/lines/" + uuid.NewString(), map[string]interface{}{}, http.StatusBadRequest},
		{"bad discount type", "PUT", "/carts/" + id + "/config", map[string]string{"discountType": "bogof"}, http.StatusBadRequest},
		{"bad payment method", "PUT", "/carts/" + id + "/config", map[string]string{"paymentMethod": "Cheque"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, f.router, tt.method, tt.path, tt.body, enum.RoleStaff)
			if rr.Code != tt.wantCode {
				t.Fatalf("got %d, want %d (body %s)", rr.Code, tt.wantCode, rr.Body.String())
			}
		})
	}
}

func TestCartHandler_CustomItemQuantity(t *testing.T) {
	f := setupCartRouter(t)
	id := f.newCart(t).ID.String()

	for _, qty := range []int{0, -2} {
		body := map[string]interface{}{"name": "Extra rice", "price": 2.5, "quantity": qty}
		rr := doAuthRequest(t, f.router, "POST", "/carts/"+id+"/custom-items", body, enum.RoleStaff)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("quantity %d: got %d, want 400 (body %s)", qty, rr.Code, rr.Body.String())
		}
	}

	rr := doAuthRequest(t, f.router, "GET", "/carts/"+id, nil, enum.RoleStaff)
	var snap service.CartSnapshot
	decodeResponse(t, rr, &snap)
	if len(snap.Lines) != 0 {
		t.Fatalf("rejected custom items changed the cart: %+v", snap.Lines)
	}

	rr = doAuthRequest(t, f.router, "POST", "/carts/"+id+"/custom-items", map[string]interface{}{"name": "Extra rice", "price": 2.5}, enum.RoleStaff)
	if rr.Code != http.StatusOK {
		t.Fatalf("omitted quantity: got %d (body %s)", rr.Code, rr.Body.String())
	}
	decodeResponse(t, rr, &snap)
	if len(snap.Lines) != 1 || snap.Lines[0].Quantity != 1 {
		t.Errorf("omitted quantity should default to one: %+v", snap.Lines)
	}
}

func TestCartHandler_PaidLock(t *testing.T) {
	f := setupCartRouter(t)
	id := f.newCart(t).ID.String()
	doAuthRequest(t, f.router, "POST", "/carts/"+id+"/items", map[string]string{"menuItemId": f.ramen.ID.String()}, enum.RoleStaff)

	rr := doAuthRequest(t, f.router, "PUT", "/carts/"+id+"/paid", map[string]bool{"paid": true}, enum.RoleStaff)
	if rr.Code != http.StatusOK {
		t.Fatalf("set paid: got %d", rr.Code)
	}

	rr = doAuthRequest(t, f.router, "POST", "/carts/"+id+"/clear", nil, enum.RoleStaff)
	if rr.Code != http.StatusConflict {
		t.Fatalf("clear paid cart: got %d, want %d", rr.Code, http.StatusConflict)
	}

	var snap service.CartSnapshot
	rr = doAuthRequest(t, f.router, "GET", "/carts/"+id, nil, enum.RoleStaff)
	decodeResponse(t, rr, &snap)
	if !snap.Paid || len(snap.Lines) != 1 {
		t.Fatalf("paid cart must keep its lines, got %+v", snap)
	}
}

func TestCartHandler_Checkout(t *testing.T) {
	f := setupCartRouter(t)
	id := f.newCart(t).ID

	order := model.Order{ID: uuid.New(), OrderNumber: "MH-001", Total: dec("8.95")}
	f.checkout.checkoutFn = func(ctx context.Context, cartID uuid.UUID, req service.CheckoutRequest) (model.Order, error) {
		if cartID != id {
			t.Errorf("cart id: got %s, want %s", cartID, id)
		}
		return order, nil
	}

	body := map[string]interface{}{
		"orderType": enum.OrderTypeDelivery,
		"customer":  map[string]string{"name": "Sam", "address": "2 Low St"},
		"print":     true,
	}
	rr := doAuthRequest(t, f.router, "POST", "/carts/"+id.String()+"/checkout", body, enum.RoleStaff)
	if rr.Code != http.StatusCreated {
		t.Fatalf("checkout: got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp struct {
		Order   model.Order `json:"order"`
		Printed int         `json:"printed"`
	}
	decodeResponse(t, rr, &resp)
	if resp.Order.OrderNumber != "MH-001" || resp.Printed != 2 {
		t.Errorf("got order %q printed %d", resp.Order.OrderNumber, resp.Printed)
	}
	if f.checkout.lastReq.OrderType != enum.OrderTypeDelivery || f.checkout.lastReq.Customer.Address != "2 Low St" {
		t.Errorf("request not passed through: %+v", f.checkout.lastReq)
	}
	if len(f.printer.orders) != 1 || f.printer.copies != 2 {
		t.Errorf("expected one print of 2 copies, got %v x%d", f.printer.orders, f.printer.copies)
	}
}

func TestCartHandler_CheckoutErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"empty cart", service.ErrEmptyCart, http.StatusBadRequest},
		{"no address", service.ErrDeliveryAddress, http.StatusBadRequest},
		{"short cash", service.ErrInsufficientCash, http.StatusUnprocessableEntity},
		{"unknown cart", service.ErrCartNotFound, http.StatusNotFound},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupCartRouter(t)
			f.checkout.checkoutFn = func(ctx context.Context, cartID uuid.UUID, req service.CheckoutRequest) (model.Order, error) {
				return model.Order{}, tt.err
			}
			rr := doAuthRequest(t, f.router, "POST", "/carts/"+uuid.NewString()+"/checkout", map[string]interface{}{"orderType": enum.OrderTypeDineIn, "print": true}, enum.RoleStaff)
			if rr.Code != tt.wantCode {
				t.Fatalf("got %d, want %d", rr.Code, tt.wantCode)
			}
			if len(f.printer.orders) != 0 {
				t.Error("failed checkout must not print")
			}
		})
	}
}

func TestCartHandler_CheckoutPrintFailureKeepsOrder(t *testing.T) {
	f := setupCartRouter(t)
	f.printer.err = errors.New("paper out")
	f.checkout.checkoutFn = func(ctx context.Context, cartID uuid.UUID, req service.CheckoutRequest) (model.Order, error) {
		return model.Order{ID: uuid.New(), OrderNumber: "MH-002"}, nil
	}

	rr := doAuthRequest(t, f.router, "POST", "/carts/"+uuid.NewString()+"/checkout", map[string]interface{}{"orderType": enum.OrderTypeDineIn, "print": true}, enum.RoleStaff)
	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusCreated)
	}
	var resp struct {
		Printed int `json:"printed"`
	}
	decodeResponse(t, rr, &resp)
	if resp.Printed != 0 {
		t.Errorf("printed: got %d, want 0", resp.Printed)
	}
}
