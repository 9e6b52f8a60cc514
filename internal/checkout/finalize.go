package checkout

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/safar/cod-checkout/internal/models"
	"github.com/safar/cod-checkout/internal/store"
	"github.com/sirupsen/logrus"
)

// Finalize commits a PENDING order: it checks and decrements stock for every
// line, closes the source cart when one is given, and moves the order to
// AWAITING_COD. The whole step runs in one serializable transaction and is
// retried on serialization failures and deadlocks. Calling it again on a
// finalized order succeeds with AlreadyFinalized set and changes nothing.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	log := s.log.WithField("order_id", in.OrderID)
	if in.CartID != nil {
		log = log.WithField("cart_id", *in.CartID)
	}

	if in.OrderID == uuid.Nil {
		return nil, s.finish("finalize", log, validationError("orderId", "orderId is required"))
	}

	opts := database.SerializableTxOptions(s.opts.MaxAttempts, s.opts.RetryBackoff)
	opts.OnRetry = func(attempt int, err error) {
		s.metrics.ObserveRetry("finalize")
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"class":   database.ClassifyError(err).String(),
		}).WithError(err).Warn("finalize transaction conflicted, retrying")
	}

	var result FinalizeResult
	err := database.WithRetry(ctx, s.db, opts, func(tx *sql.Tx) error {
		result = FinalizeResult{OrderID: in.OrderID}
		return s.finalizeTx(ctx, tx, in, &result)
	})
	if err != nil && !isDomainError(err) && errors.Is(err, database.ErrRetriesExhausted) {
		var settled *FinalizeResult
		settled, err = s.settleExhausted(ctx, in, err)
		if err == nil {
			result = *settled
		}
	}
	if err != nil {
		return nil, s.finish("finalize", log, err)
	}

	if result.AlreadyFinalized {
		s.metrics.ObserveStep("finalize", "already_finalized")
		log.WithField("status", result.Status).Info("order already finalized")
		return &result, nil
	}

	s.finish("finalize", log, nil)
	log.WithField("status", result.Status).Info("order finalized")

	return &result, nil
}

func (s *Service) finalizeTx(ctx context.Context, tx *sql.Tx, in FinalizeInput, result *FinalizeResult) error {
	order, err := store.GetOrderForUpdate(ctx, tx, in.OrderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return notFoundError("order not found", err)
		}
		return err
	}
	if len(order.Items) == 0 {
		return validationError("orderId", "order has no items")
	}

	result.Status = order.Status.String()
	if order.Status.Finalized() {
		result.AlreadyFinalized = true
		return nil
	}

	required, productIDs := requiredStock(order.Items)

	products, err := store.LockProducts(ctx, tx, productIDs)
	if err != nil {
		return err
	}

	for _, id := range productIDs {
		product := products[id]
		if product == nil || product.Stock < required[id] {
			return &Error{
				Kind:      KindConflict,
				ProductID: id,
				Message:   "insufficient stock: " + describeProduct(product, id),
				Err:       database.ErrInsufficientStock,
			}
		}
	}

	for _, id := range productIDs {
		if err := store.DecrementStock(ctx, tx, id, required[id]); err != nil {
			if errors.Is(err, database.ErrInsufficientStock) {
				return &Error{
					Kind:      KindConflict,
					ProductID: id,
					Message:   "insufficient stock: " + describeProduct(products[id], id),
					Err:       err,
				}
			}
			return err
		}
	}

	now := s.now()

	if in.CartID != nil {
		if err := store.CloseCart(ctx, tx, *in.CartID, now); err != nil {
			if errors.Is(err, database.ErrCartNotFound) {
				return notFoundError("cart not found", err)
			}
			return err
		}
	}

	next := models.OrderStatusAwaitingCOD
	if err := store.TransitionOrder(ctx, tx, order.ID, order.Status, next, now); err != nil {
		return err
	}
	order.Status = next
	result.Status = next.String()

	event := newOrderEvent(order, now)
	event.CartID = in.CartID
	_, err = store.InsertOutboxEvent(ctx, tx, order.ID, EventOrderFinalized, event)
	return err
}

// settleExhausted decides the outcome of a finalize that lost every retry to
// concurrent writers. Losing usually means another call finalized this order
// or took the stock it needed, so both are re-read outside any transaction.
func (s *Service) settleExhausted(ctx context.Context, in FinalizeInput, cause error) (*FinalizeResult, error) {
	order, err := store.GetOrder(ctx, s.db, in.OrderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return nil, notFoundError("order not found", err)
		}
		return nil, internalError(fmt.Errorf("finalize order %s: %w", in.OrderID, err))
	}

	if order.Status.Finalized() {
		return &FinalizeResult{OrderID: order.ID, AlreadyFinalized: true, Status: order.Status.String()}, nil
	}

	required, productIDs := requiredStock(order.Items)
	for _, id := range productIDs {
		product, err := store.GetProduct(ctx, s.db, id)
		if err != nil && !errors.Is(err, database.ErrProductNotFound) {
			return nil, internalError(fmt.Errorf("finalize order %s: %w", in.OrderID, err))
		}
		if product == nil || product.Stock < required[id] {
			return nil, &Error{
				Kind:      KindConflict,
				ProductID: id,
				Message:   "insufficient stock: " + describeProduct(product, id),
				Err:       database.ErrInsufficientStock,
			}
		}
	}

	return nil, internalError(fmt.Errorf("finalize order %s: %w", in.OrderID, cause))
}

// requiredStock sums quantities per product and returns the product ids in
// ascending order, matching the lock order used by store.LockProducts.
func requiredStock(items []models.OrderItem) (map[uuid.UUID]int, []uuid.UUID) {
	required := make(map[uuid.UUID]int, len(items))
	var ids []uuid.UUID
	for _, item := range items {
		if _, seen := required[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		required[item.ProductID] += item.Qty
	}

	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	return required, ids
}
