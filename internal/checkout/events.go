package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/models"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderFinalized = "order.finalized"
)

type OrderEventItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// OrderEvent is the outbox payload for every order lifecycle event.
type OrderEvent struct {
	OrderID    uuid.UUID          `json:"orderId"`
	UserID     *uuid.UUID         `json:"userId,omitempty"`
	AddressID  *uuid.UUID         `json:"addressId,omitempty"`
	CartID     *uuid.UUID         `json:"cartId,omitempty"`
	Status     models.OrderStatus `json:"status"`
	Total      decimal.Decimal    `json:"total"`
	Gateway    string             `json:"gateway"`
	Items      []OrderEventItem   `json:"items,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

func newOrderEvent(order *models.Order, at time.Time) OrderEvent {
	event := OrderEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		AddressID:  order.AddressID,
		Status:     order.Status,
		Total:      order.Total,
		Gateway:    order.Gateway,
		OccurredAt: at.UTC(),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderEventItem{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Price:     item.Price,
		})
	}
	return event
}
