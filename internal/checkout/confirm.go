package checkout

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/safar/cod-checkout/internal/models"
	"github.com/safar/cod-checkout/internal/store"
)

func (in *ConfirmInput) normalize() error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.City = strings.TrimSpace(in.City)
	in.Line1 = strings.TrimSpace(in.Line1)
	in.Postal = strings.TrimSpace(in.Postal)

	switch {
	case in.OrderID == uuid.Nil:
		return validationError("orderId", "orderId is required")
	case in.FullName == "":
		return validationError("fullName", "fullName is required")
	case in.Phone == "":
		return validationError("phone", "phone is required")
	case in.Line1 == "":
		return validationError("line1", "line1 is required")
	}
	return nil
}

// Confirm attaches a shipping address to a PENDING order. Input is validated
// before the database is touched, so a rejected call leaves the order as it was.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	log := s.log.WithField("order_id", in.OrderID)

	if err := in.normalize(); err != nil {
		return nil, s.finish("confirm", log, err)
	}

	var updated *models.Order
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := store.GetOrderForUpdate(ctx, tx, in.OrderID)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				return notFoundError("order not found", err)
			}
			return err
		}
		if order.Status.Finalized() {
			return conflictError("order is already finalized", nil)
		}

		userID, err := s.resolveOwner(ctx, tx, order, in)
		if err != nil {
			return err
		}

		addr := &models.Address{
			UserID:   userID,
			FullName: in.FullName,
			Phone:    in.Phone,
			City:     in.City,
			Line1:    in.Line1,
			Postal:   in.Postal,
		}
		if err := store.CreateAddress(ctx, tx, addr); err != nil {
			return err
		}

		updated, err = store.AttachAddress(ctx, tx, order.ID, userID, &addr.ID)
		if err != nil {
			return err
		}
		updated.Items = order.Items

		_, err = store.InsertOutboxEvent(ctx, tx, updated.ID, EventOrderConfirmed, newOrderEvent(updated, s.now()))
		return err
	})
	if err != nil {
		return nil, s.finish("confirm", log, err)
	}

	s.finish("confirm", log, nil)
	log.WithField("address_id", *updated.AddressID).Info("order address confirmed")

	return &ConfirmResult{
		OrderID: updated.ID,
		Status:  updated.Status.String(),
		Total:   updated.Total,
	}, nil
}

// resolveOwner picks the order's user, then the caller-supplied user, then a
// freshly created guest. It returns nil when guests are disabled.
func (s *Service) resolveOwner(ctx context.Context, tx *sql.Tx, order *models.Order, in ConfirmInput) (*uuid.UUID, error) {
	if order.UserID != nil {
		return order.UserID, nil
	}

	if in.UserID != nil {
		user, err := store.GetUser(ctx, tx, *in.UserID)
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				return nil, notFoundError("user not found", err)
			}
			return nil, err
		}
		return &user.ID, nil
	}

	if !s.opts.GuestUsers {
		return nil, nil
	}

	guest, err := store.CreateUser(ctx, tx, in.FullName, in.Phone, models.RoleGuest)
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", guest.ID).Info("guest user created for order")

	return &guest.ID, nil
}
