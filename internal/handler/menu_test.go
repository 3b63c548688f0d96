package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/cache"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/handler"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/service"
	"github.com/momohouse/pos/internal/store"
	"github.com/rs/zerolog"
)

func setupMenuRouter(t *testing.T) (*service.MenuService, http.Handler) {
	t.Helper()
	svc := service.NewMenuService(store.NewMemory(), cache.NewMemory(0), zerolog.Nop())
	h := handler.NewMenuHandler(svc)
	return svc, authedRouter("/menu", h.RegisterRoutes)
}

func TestMenuHandler_CreateRequiresAdmin(t *testing.T) {
	_, router := setupMenuRouter(t)
	body := map[string]interface{}{
		"name":     "Chicken Momo",
		"category": "Momo",
		"prices":   json.RawMessage(`{"half": 5.5, "full": 9.5}`),
	}

	rr := doAuthRequest(t, router, "POST", "/menu/", body, enum.RoleStaff)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("staff create: got %d, want %d", rr.Code, http.StatusForbidden)
	}

	rr = doAuthRequest(t, router, "POST", "/menu/", body, enum.RoleAdmin)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin create: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var item model.MenuItem
	decodeResponse(t, rr, &item)
	if item.ID == uuid.Nil || !item.Available {
		t.Errorf("expected an id and available by default, got %+v", item)
	}
	if len(item.Prices) != 2 || item.Prices[0].Label != "half" {
		t.Errorf("portion order must be kept, got %+v", item.Prices)
	}

	rr = doAuthRequest(t, router, "GET", "/menu/", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMenuHandler_Validation(t *testing.T) {
	_, router := setupMenuRouter(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"no name", map[string]interface{}{"category": "Momo", "prices": map[string]float64{"full": 9}}},
		{"no category", map[string]interface{}{"name": "Momo", "prices": map[string]float64{"full": 9}}},
		{"no valid price", map[string]interface{}{"name": "Momo", "category": "Momo", "prices": map[string]float64{"full": 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/menu/", tt.body, enum.RoleAdmin)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want %d (body %s)", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
		})
	}
}

func TestMenuHandler_ListAvailabilityAndDelete(t *testing.T) {
	svc, router := setupMenuRouter(t)
	ctx := context.Background()
	momo, _ := svc.Create(ctx, model.MenuItem{Name: "Momo", Category: "Momo", Available: true, Prices: standardPrice("9")})
	svc.Create(ctx, model.MenuItem{Name: "Chai", Category: "Drinks", Available: true, Prices: standardPrice("2.5")})

	rr := doAuthRequest(t, router, "PATCH", "/menu/"+momo.ID.String()+"/availability", map[string]bool{"available": false}, enum.RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("availability: got %d (body %s)", rr.Code, rr.Body.String())
	}

	var items []model.MenuItem
	rr = doAuthRequest(t, router, "GET", "/menu/", nil, enum.RoleStaff)
	decodeResponse(t, rr, &items)
	if len(items) != 2 {
		t.Fatalf("full list: got %d items", len(items))
	}

	rr = doAuthRequest(t, router, "GET", "/menu/?available=true", nil, enum.RoleStaff)
	decodeResponse(t, rr, &items)
	if len(items) != 1 || items[0].Name != "Chai" {
		t.Fatalf("available list: got %+v", items)
	}

	rr = doAuthRequest(t, router, "DELETE", "/menu/"+momo.ID.String(), nil, enum.RoleAdmin)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = doAuthRequest(t, router, "GET", "/menu/"+momo.ID.String(), nil, enum.RoleStaff)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	rr = doAuthRequest(t, router, "GET", "/menu/not-a-uuid", nil, enum.RoleStaff)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
