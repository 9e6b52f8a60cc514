package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	RoleCustomer = "CUSTOMER"
	RoleGuest    = "GUEST"
	RoleAdmin    = "ADMIN"
)

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Cart struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"userId"`
	CheckedOut   bool       `json:"checkedOut"`
	CheckedOutAt *time.Time `json:"checkedOutAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Items        []CartItem `json:"items"`
}

// CartItem carries the price seen when the item was added. A nil Price
// falls back to the product's live price at checkout.
type CartItem struct {
	ID        uuid.UUID        `json:"id"`
	CartID    uuid.UUID        `json:"cartId"`
	ProductID uuid.UUID        `json:"productId"`
	Qty       int              `json:"qty"`
	Price     *decimal.Decimal `json:"price"`
	CreatedAt time.Time        `json:"createdAt"`
	Product   *Product         `json:"product,omitempty"`
}

// UnitPrice is the snapshot price, else the live product price, else zero.
func (i CartItem) UnitPrice() decimal.Decimal {
	if i.Price != nil {
		return *i.Price
	}
	if i.Product != nil {
		return i.Product.Price
	}
	return decimal.Zero
}

type Address struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"userId"`
	FullName  string     `json:"fullName"`
	Phone     string     `json:"phone"`
	Province  string     `json:"province"`
	City      string     `json:"city"`
	Line1     string     `json:"line1"`
	Postal    string     `json:"postal"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	UserID      *uuid.UUID      `json:"userId"`
	AddressID   *uuid.UUID      `json:"addressId"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Gateway     string          `json:"gateway"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	FinalizedAt *time.Time      `json:"finalizedAt"`
	Items       []OrderItem     `json:"items,omitempty"`
	Address     *Address        `json:"address,omitempty"`
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"orderId"`
	ProductID uuid.UUID       `json:"productId"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Product   *Product        `json:"product,omitempty"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

const GatewayCOD = "cod"
