package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/checkout"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error     string     `json:"error"`
	Field     string     `json:"field,omitempty"`
	ProductID *uuid.UUID `json:"productId,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondErr maps service and store errors onto status codes. Internal errors
// are logged with their cause and answered with a generic message.
func respondErr(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var ce *checkout.Error
	if errors.As(err, &ce) {
		body := errorResponse{Error: ce.Message, Field: ce.Field}
		if ce.ProductID != uuid.Nil {
			id := ce.ProductID
			body.ProductID = &id
		}

		switch ce.Kind {
		case checkout.KindValidation:
			respondJSON(w, http.StatusBadRequest, body)
		case checkout.KindNotFound:
			respondJSON(w, http.StatusNotFound, body)
		case checkout.KindConflict:
			respondJSON(w, http.StatusConflict, body)
		default:
			log.WithError(err).Error("request failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	switch {
	case errors.Is(err, database.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, database.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, database.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart not found")
	case errors.Is(err, database.ErrCartItemNotFound):
		respondError(w, http.StatusNotFound, "cart item not found")
	case errors.Is(err, database.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, database.ErrCartClosed):
		respondError(w, http.StatusConflict, "cart is already checked out")
	case errors.Is(err, database.ErrDuplicate):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, database.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient stock")
	default:
		log.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// parseUUID treats an empty string as uuid.Nil so the service can report the
// missing field itself.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
