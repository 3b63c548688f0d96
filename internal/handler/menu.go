package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/enum"
	"github.com/momohouse/pos/internal/middleware"
	"github.com/momohouse/pos/internal/model"
)

// MenuService defines the catalog operations needed by menu handlers.
// Satisfied by *service.MenuService.
type MenuService interface {
	List(ctx context.Context) ([]model.MenuItem, error)
	ListAvailable(ctx context.Context) ([]model.MenuItem, error)
	Get(ctx context.Context, id uuid.UUID) (model.MenuItem, error)
	Create(ctx context.Context, item model.MenuItem) (model.MenuItem, error)
	Update(ctx context.Context, item model.MenuItem) (model.MenuItem, error)
	SetAvailable(ctx context.Context, id uuid.UUID, available bool) (model.MenuItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MenuHandler serves the catalog to tills and lets admins edit it.
type MenuHandler struct {
	menu MenuService
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(menu MenuService) *MenuHandler {
	return &MenuHandler{menu: menu}
}

// RegisterRoutes registers menu endpoints. Expected to be mounted at /menu
// behind authentication; writes additionally require the admin role.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/availability", h.SetAvailable)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request types ---

type menuItemRequest struct {
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Prices      model.PriceMap `json:"prices"`
	Available   *bool          `json:"available"`
	Description string         `json:"description"`
	Allergens   []string       `json:"allergens"`
	SpiceLevel  int            `json:"spiceLevel"`
}

func (req menuItemRequest) toMenuItem() model.MenuItem {
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	return model.MenuItem{
		Name:        req.Name,
		Category:    req.Category,
		Prices:      req.Prices,
		Available:   available,
		Description: req.Description,
		Allergens:   req.Allergens,
		SpiceLevel:  req.SpiceLevel,
	}
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

// --- Handlers ---

// List returns the whole menu. ?available=true limits it to orderable items.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		items []model.MenuItem
		err   error
	)
	if r.URL.Query().Get("available") == "true" {
		items, err = h.menu.ListAvailable(r.Context())
	} else {
		items, err = h.menu.List(r.Context())
	}
	if err != nil {
		writeServiceError(w, err, "list menu")
		return
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "menu item ID")
	if !ok {
		return
	}
	item, err := h.menu.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get menu item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.menu.Create(r.Context(), req.toMenuItem())
	if err != nil {
		writeServiceError(w, err, "create menu item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "menu item ID")
	if !ok {
		return
	}
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item := req.toMenuItem()
	item.ID = id
	updated, err := h.menu.Update(r.Context(), item)
	if err != nil {
		writeServiceError(w, err, "update menu item")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *MenuHandler) SetAvailable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "menu item ID")
	if !ok {
		return
	}
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.menu.SetAvailable(r.Context(), id, req.Available)
	if err != nil {
		writeServiceError(w, err, "set menu availability")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "menu item ID")
	if !ok {
		return
	}
	if err := h.menu.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete menu item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
