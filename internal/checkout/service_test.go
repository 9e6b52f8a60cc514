package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/safar/cod-checkout/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUnitService has no database; only paths that fail validation may run.
func newUnitService() *Service {
	logger, _ := test.NewNullLogger()
	return NewService(nil, Options{}, logger, nil)
}

func TestNewServiceDefaults(t *testing.T) {
	svc := newUnitService()
	assert.Equal(t, 3, svc.opts.MaxAttempts)
	assert.Equal(t, "50ms", svc.opts.RetryBackoff.String())
}

func TestCheckoutRequiresCartID(t *testing.T) {
	_, err := newUnitService().Checkout(context.Background(), uuid.Nil)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, "cartId", e.Field)
}

func TestConfirmValidation(t *testing.T) {
	valid := ConfirmInput{
		OrderID:  uuid.New(),
		FullName: "Sara Ahmadi",
		Phone:    "09121234567",
		Line1:    "12 Valiasr St",
	}

	cases := []struct {
		name  string
		edit  func(*ConfirmInput)
		field string
	}{
		{"missing order", func(in *ConfirmInput) { in.OrderID = uuid.Nil }, "orderId"},
		{"blank name", func(in *ConfirmInput) { in.FullName = "  " }, "fullName"},
		{"blank phone", func(in *ConfirmInput) { in.Phone = "" }, "phone"},
		{"blank line1", func(in *ConfirmInput) { in.Line1 = "\t" }, "line1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.edit(&in)

			_, err := newUnitService().Confirm(context.Background(), in)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, KindValidation, e.Kind)
			assert.Equal(t, tc.field, e.Field)
		})
	}
}

func TestFinalizeRequiresOrderID(t *testing.T) {
	_, err := newUnitService().Finalize(context.Background(), FinalizeInput{})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestFinishLogsInternalErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	svc := NewService(nil, Options{}, logger, nil)

	err := svc.finish("finalize", svc.log, errors.New("connection reset"))

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error: connection reset", err.Error())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestOrderFromCartUsesSnapshotPrices(t *testing.T) {
	snapshot := decimal.NewFromInt(1000)
	live := &models.Product{Price: decimal.NewFromInt(1500)}
	owner := uuid.New()

	cart := &models.Cart{
		UserID: &owner,
		Items: []models.CartItem{
			{ProductID: uuid.New(), Qty: 2, Price: &snapshot, Product: live},
			{ProductID: uuid.New(), Qty: 1, Product: live},
		},
	}

	order := orderFromCart(cart)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.GatewayCOD, order.Gateway)
	assert.Equal(t, &owner, order.UserID)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].Price.Equal(snapshot))
	assert.True(t, order.Items[1].Price.Equal(live.Price))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(3500)), "total %s", order.Total)
}

func TestRequiredStockAggregatesAndSorts(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	required, ids := requiredStock([]models.OrderItem{
		{ProductID: b, Qty: 1},
		{ProductID: a, Qty: 2},
		{ProductID: b, Qty: 3},
	})

	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.Equal(t, 2, required[a])
	assert.Equal(t, 4, required[b])
}

func TestErrorUnwrap(t *testing.T) {
	err := conflictError("insufficient stock: Phone", database.ErrInsufficientStock)

	assert.ErrorIs(t, err, database.ErrInsufficientStock)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
