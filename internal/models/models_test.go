package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusFinalized(t *testing.T) {
	assert.False(t, OrderStatusPending.Finalized())

	for _, s := range []OrderStatus{
		OrderStatusAwaitingCOD, OrderStatusPaid, OrderStatusSent,
		OrderStatusDelivered, OrderStatusFailed, OrderStatusCanceled,
		OrderStatus("REFUNDED"),
	} {
		assert.True(t, s.Finalized(), "status %s", s)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransition(OrderStatusAwaitingCOD))
	assert.True(t, OrderStatusAwaitingCOD.CanTransition(OrderStatusSent))
	assert.False(t, OrderStatusAwaitingCOD.CanTransition(OrderStatusPending))
	assert.False(t, OrderStatusCanceled.CanTransition(OrderStatusAwaitingCOD))
}

func TestCartItemUnitPrice(t *testing.T) {
	snapshot := decimal.NewFromInt(900)
	product := &Product{Price: decimal.NewFromInt(1000)}

	assert.True(t, CartItem{Price: &snapshot, Product: product}.UnitPrice().Equal(snapshot))
	assert.True(t, CartItem{Product: product}.UnitPrice().Equal(product.Price))
	assert.True(t, CartItem{}.UnitPrice().IsZero())
}
