package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/checkout"
	"github.com/shopspring/decimal"
)

// Pipeline is the order flow the handlers drive: cart to order, address,
// then stock commitment.
type Pipeline interface {
	Checkout(ctx context.Context, cartID uuid.UUID) (*checkout.CheckoutResult, error)
	Confirm(ctx context.Context, in checkout.ConfirmInput) (*checkout.ConfirmResult, error)
	Finalize(ctx context.Context, in checkout.FinalizeInput) (*checkout.FinalizeResult, error)
}

type checkoutRequest struct {
	CartID string `json:"cartId"`
}

type checkoutResponse struct {
	OrderID uuid.UUID       `json:"orderId"`
	Total   decimal.Decimal `json:"total"`
}

// POST /api/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cartID, err := parseUUID(req.CartID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid cartId")
		return
	}

	result, err := h.pipeline.Checkout(r.Context(), cartID)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, checkoutResponse{OrderID: result.OrderID, Total: result.Total})
}

type confirmRequest struct {
	OrderID  string  `json:"orderId"`
	FullName string  `json:"fullName"`
	Phone    string  `json:"phone"`
	City     string  `json:"city"`
	Line1    string  `json:"line1"`
	Postal   string  `json:"postal"`
	UserID   *string `json:"userId"`
}

type confirmResponse struct {
	OK      bool            `json:"ok"`
	OrderID uuid.UUID       `json:"orderId"`
	Status  string          `json:"status"`
	Total   decimal.Decimal `json:"total"`
}

// POST /api/order/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := parseUUID(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid orderId")
		return
	}
	userID, err := parseOptionalUUID(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid userId")
		return
	}

	result, err := h.pipeline.Confirm(r.Context(), checkout.ConfirmInput{
		OrderID:  orderID,
		FullName: req.FullName,
		Phone:    req.Phone,
		City:     req.City,
		Line1:    req.Line1,
		Postal:   req.Postal,
		UserID:   userID,
	})
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, confirmResponse{
		OK:      true,
		OrderID: result.OrderID,
		Status:  result.Status,
		Total:   result.Total,
	})
}

type finalizeRequest struct {
	OrderID string  `json:"orderId"`
	CartID  *string `json:"cartId"`
}

type finalizeResponse struct {
	OK               bool      `json:"ok"`
	AlreadyFinalized bool      `json:"alreadyFinalized"`
	OrderID          uuid.UUID `json:"orderId"`
	Status           string    `json:"status"`
}

// POST /api/order/finalize
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := parseUUID(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid orderId")
		return
	}
	cartID, err := parseOptionalUUID(req.CartID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid cartId")
		return
	}

	result, err := h.pipeline.Finalize(r.Context(), checkout.FinalizeInput{OrderID: orderID, CartID: cartID})
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, finalizeResponse{
		OK:               true,
		AlreadyFinalized: result.AlreadyFinalized,
		OrderID:          result.OrderID,
		Status:           result.Status,
	})
}
