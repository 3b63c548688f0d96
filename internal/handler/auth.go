package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/momohouse/pos/internal/auth"
	"github.com/rs/zerolog/log"
)

// PasscodeMatcher resolves a passcode to a role. Satisfied by *auth.Passcodes.
type PasscodeMatcher interface {
	Match(passcode string) (string, error)
}

// AuthHandler exchanges the shared staff/admin passcodes for session tokens.
type AuthHandler struct {
	passcodes PasscodeMatcher
	jwtSecret string
	ttl       time.Duration
}

// NewAuthHandler creates a new AuthHandler. A zero ttl uses auth.DefaultTokenTTL.
func NewAuthHandler(passcodes PasscodeMatcher, jwtSecret string, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	return &AuthHandler{passcodes: passcodes, jwtSecret: jwtSecret, ttl: ttl}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Passcode string `json:"passcode"`
	Terminal string `json:"terminal"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	Terminal  string    `json:"terminal"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// --- Handlers ---

// Login checks the passcode and issues a token carrying the matched role.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Passcode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passcode is required"})
		return
	}

	role, err := h.passcodes.Match(req.Passcode)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPasscode) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid passcode"})
			return
		}
		log.Error().Err(err).Msg("match passcode")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	terminal := strings.TrimSpace(req.Terminal)
	if terminal == "" {
		terminal = "pos"
	}
	h.respondWithToken(w, terminal, role)
}

// Refresh re-issues a still-valid token with a fresh expiry.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims, err := auth.ValidateToken(h.jwtSecret, req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}
	h.respondWithToken(w, claims.Terminal, claims.Role)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, terminal, role string) {
	token, err := auth.GenerateToken(h.jwtSecret, terminal, role, h.ttl)
	if err != nil {
		log.Error().Err(err).Msg("generate token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		Role:      role,
		Terminal:  terminal,
		ExpiresAt: time.Now().Add(h.ttl).UTC().Truncate(time.Second),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}
