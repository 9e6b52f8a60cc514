package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/models"
	"github.com/safar/cod-checkout/internal/store"
	"github.com/shopspring/decimal"
)

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// GET /api/order/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := store.GetOrder(r.Context(), h.db, id)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

type createUserRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if req.Name == "" || req.Mobile == "" {
		respondError(w, http.StatusBadRequest, "name and mobile are required")
		return
	}

	user, err := store.CreateUser(r.Context(), h.db, req.Name, req.Mobile, models.RoleCustomer)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	user, err := store.GetUser(r.Context(), h.db, id)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// GET /api/users/{id}/orders?cursor=&limit=
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	cursor := r.URL.Query().Get("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		respondError(w, http.StatusBadRequest, "invalid cursor")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	page, err := store.ListOrdersCursor(r.Context(), h.db, id, cursor, limit)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

type createProductRequest struct {
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Slug) == "" || strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "slug and title are required")
		return
	}
	if req.Price.IsNegative() || req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "price and stock must not be negative")
		return
	}

	product, err := store.CreateProduct(r.Context(), h.db, req.Slug, req.Title, req.Description, req.Price, req.Stock)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

// GET /api/products?page=&page_size=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := store.ListProducts(r.Context(), h.db, page, pageSize)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	product, err := store.GetProduct(r.Context(), h.db, id)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

type createCartRequest struct {
	UserID *string `json:"userId"`
}

// POST /api/carts
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := parseOptionalUUID(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid userId")
		return
	}

	cart, err := store.CreateCart(r.Context(), h.db, userID)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, cart)
}

// GET /api/carts/{id}
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	cart, err := store.GetCart(r.Context(), h.db, id)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// POST /api/carts/{id}/items
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid productId")
		return
	}
	if req.Qty < 1 {
		respondError(w, http.StatusBadRequest, "qty must be at least 1")
		return
	}

	item, err := store.AddCartItem(r.Context(), h.db, cartID, productID, req.Qty, nil)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

type updateCartItemRequest struct {
	Qty int `json:"qty"`
}

// PATCH /api/carts/{id}/items/{itemId}
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := urlUUID(w, r, "itemId")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Qty < 1 {
		respondError(w, http.StatusBadRequest, "qty must be at least 1")
		return
	}

	if err := store.UpdateCartItemQty(r.Context(), h.db, cartID, itemID, req.Qty); err != nil {
		respondErr(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DELETE /api/carts/{id}/items/{itemId}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := urlUUID(w, r, "itemId")
	if !ok {
		return
	}

	if err := store.RemoveCartItem(r.Context(), h.db, cartID, itemID); err != nil {
		respondErr(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
