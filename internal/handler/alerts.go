package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AlertQueue is satisfied by *alert.Alerter.
type AlertQueue interface {
	Pending() []string
	Active() bool
	Acknowledge(orderID string)
	AcknowledgeAll()
}

// AlertHandler lets a terminal silence the new-order tone.
type AlertHandler struct {
	alerts AlertQueue
}

func NewAlertHandler(alerts AlertQueue) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// RegisterRoutes registers alert endpoints. Expected to be mounted at /alerts.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{orderId}/ack", h.Acknowledge)
	r.Post("/ack", h.AcknowledgeAll)
}

type alertsResponse struct {
	Active  bool     `json:"active"`
	Pending []string `json:"pending"`
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respond(w)
}

// Acknowledge silences the alert for one order without changing its status.
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "orderId", "order ID")
	if !ok {
		return
	}
	h.alerts.Acknowledge(id.String())
	h.respond(w)
}

func (h *AlertHandler) AcknowledgeAll(w http.ResponseWriter, r *http.Request) {
	h.alerts.AcknowledgeAll()
	h.respond(w)
}

func (h *AlertHandler) respond(w http.ResponseWriter) {
	pending := h.alerts.Pending()
	if pending == nil {
		pending = []string{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{Active: h.alerts.Active(), Pending: pending})
}
