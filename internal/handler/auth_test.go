package handler_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/momohouse/pos/internal/auth"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/handler"
)

// --- Mock passcodes ---

type mockPasscodes struct {
	roles map[string]string
	err   error
}

func (m *mockPasscodes) Match(passcode string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	role, ok := m.roles[passcode]
	if !ok {
		return "", auth.ErrInvalidPasscode
	}
	return role, nil
}

func setupAuthRouter(p handler.PasscodeMatcher) *chi.Mux {
	h := handler.NewAuthHandler(p, testJWTSecret, time.Hour)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

type tokenBody struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	Terminal  string    `json:"terminal"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func TestLogin(t *testing.T) {
	router := setupAuthRouter(&mockPasscodes{roles: map[string]string{
		"1111": enum.RoleStaff,
		"9999": enum.RoleAdmin,
	}})

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
		wantRole string
		wantTerm string
	}{
		{"staff", map[string]string{"passcode": "1111", "terminal": "counter"}, http.StatusOK, enum.RoleStaff, "counter"},
		{"admin default terminal", map[string]string{"passcode": "9999"}, http.StatusOK, enum.RoleAdmin, "pos"},
		{"wrong passcode", map[string]string{"passcode": "0000"}, http.StatusUnauthorized, "", ""},
		{"missing passcode", map[string]string{}, http.StatusBadRequest, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/auth/login", tt.body, "")
			if rr.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d (body %s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp tokenBody
			decodeResponse(t, rr, &resp)
			if resp.Role != tt.wantRole || resp.Terminal != tt.wantTerm {
				t.Errorf("got role %q terminal %q", resp.Role, resp.Terminal)
			}
			claims, err := auth.ValidateToken(testJWTSecret, resp.Token)
			if err != nil {
				t.Fatalf("issued token invalid: %v", err)
			}
			if claims.Role != tt.wantRole {
				t.Errorf("claims role: got %q, want %q", claims.Role, tt.wantRole)
			}
			if time.Until(resp.ExpiresAt) <= 0 {
				t.Errorf("expiresAt in the past: %v", resp.ExpiresAt)
			}
		})
	}
}

func TestLogin_MatcherFailure(t *testing.T) {
	router := setupAuthRouter(&mockPasscodes{err: errors.New("boom")})

	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{"passcode": "1111"}, "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRefresh(t *testing.T) {
	router := setupAuthRouter(&mockPasscodes{})
	token, _ := auth.GenerateToken(testJWTSecret, "counter", enum.RoleStaff, time.Minute)

	rr := doAuthRequest(t, router, "POST", "/auth/refresh", map[string]string{"token": token}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp tokenBody
	decodeResponse(t, rr, &resp)
	if resp.Terminal != "counter" || resp.Role != enum.RoleStaff {
		t.Errorf("refresh must keep terminal and role, got %+v", resp)
	}
	if time.Until(resp.ExpiresAt) < 50*time.Minute {
		t.Errorf("expected a fresh expiry, got %v", resp.ExpiresAt)
	}

	rr = doAuthRequest(t, router, "POST", "/auth/refresh", map[string]string{"token": "garbage"}, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
