package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/safar/cod-checkout/internal/models"
	"github.com/safar/cod-checkout/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Checkout snapshots an open cart into a PENDING cash-on-delivery order. Stock
// is not touched and the cart stays open.
func (s *Service) Checkout(ctx context.Context, cartID uuid.UUID) (*CheckoutResult, error) {
	log := s.log.WithField("cart_id", cartID)

	if cartID == uuid.Nil {
		return nil, s.finish("checkout", log, validationError("cartId", "cartId is required"))
	}

	var order *models.Order
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		cart, err := store.GetCart(ctx, tx, cartID)
		if err != nil {
			if errors.Is(err, database.ErrCartNotFound) {
				return notFoundError("cart not found or empty", err)
			}
			return err
		}
		if cart.CheckedOut || len(cart.Items) == 0 {
			return notFoundError("cart not found or empty", nil)
		}

		order = orderFromCart(cart)
		if err := store.InsertOrder(ctx, tx, order); err != nil {
			return err
		}

		_, err = store.InsertOutboxEvent(ctx, tx, order.ID, EventOrderCreated, newOrderEvent(order, order.CreatedAt))
		return err
	})
	if err != nil {
		return nil, s.finish("checkout", log, err)
	}

	s.finish("checkout", log, nil)
	log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.Total.String(),
		"items":    len(order.Items),
	}).Info("order created")

	return &CheckoutResult{OrderID: order.ID, Total: order.Total}, nil
}

// orderFromCart prices each line from its snapshot, falling back to the live
// product price, and sums the total once.
func orderFromCart(cart *models.Cart) *models.Order {
	order := &models.Order{
		UserID:  cart.UserID,
		Status:  models.OrderStatusPending,
		Gateway: models.GatewayCOD,
		Total:   decimal.Zero,
	}

	for _, it := range cart.Items {
		item := models.OrderItem{
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Price:     it.UnitPrice(),
		}
		order.Items = append(order.Items, item)
		order.Total = order.Total.Add(item.Subtotal())
	}

	return order
}

func describeProduct(p *models.Product, id uuid.UUID) string {
	if p != nil && p.Title != "" {
		return p.Title
	}
	return fmt.Sprint(id)
}
