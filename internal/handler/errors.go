package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/momohouse/pos/internal/cart"
	"github.com/momohouse/pos/internal/service"
	"github.com/momohouse/pos/internal/store"
	"github.com/rs/zerolog/log"
)

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyCart) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidOrderStatus) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrInvalidDiscountType) ||
		errors.Is(err, service.ErrDeliveryAddress) ||
		errors.Is(err, service.ErrMenuNameRequired) ||
		errors.Is(err, service.ErrMenuCategoryRequired) ||
		errors.Is(err, service.ErrMenuNoValidPortion) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, cart.ErrInvalidCustomItem) ||
		errors.Is(err, cart.ErrItemUnpriced)
}

// writeServiceError maps a service or store error to a status code. Unknown
// errors are logged with op and reported as 500.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientCash):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFoundMessage(err)})
	case errors.Is(err, cart.ErrCartLocked),
		errors.Is(err, service.ErrStatusTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Error().Err(err).Msg(op)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrCartNotFound):
		return "cart not found"
	case errors.Is(err, cart.ErrLineNotFound):
		return "cart line not found"
	default:
		return "not found"
	}
}

// parseID reads a uuid URL parameter, writing a 400 when it is malformed.
func parseID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + label})
		return uuid.Nil, false
	}
	return id, true
}
