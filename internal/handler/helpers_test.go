package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/momohouse/pos/internal/auth"
	"github.com/momohouse/pos/internal/middleware"
	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret-for-handlers"

var testShop = receipt.Shop{Name: "Momo House", Address: "1 High St", Phone: "0113 000 0000"}

// authedRouter mounts routes under prefix behind the real Authenticate
// middleware.
func authedRouter(prefix string, register func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route(prefix, register)
	})
	return r
}

// doAuthRequest sends body as JSON with a token for role. An empty role
// sends no token.
func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, role string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if role != "" {
		token, err := auth.GenerateToken(testJWTSecret, "till-1", role, time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	decodeResponse(t, rr, &resp)
	return resp["error"]
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func standardPrice(price string) model.PriceMap {
	return model.PriceMap{{Label: "standard", Price: dec(price)}}
}
