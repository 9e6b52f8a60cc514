package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/safar/cod-checkout/internal/models"
	"github.com/shopspring/decimal"
)

func CreateCart(ctx context.Context, db DBTX, userID *uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{Items: []models.CartItem{}}
	var owner uuid.NullUUID

	err := db.QueryRowContext(ctx,
		`INSERT INTO carts (id, user_id, checked_out, created_at, updated_at)
		 VALUES ($1, $2, FALSE, NOW(), NOW())
		 RETURNING id, user_id, checked_out, checked_out_at, created_at, updated_at`,
		uuid.New(), nullUUID(userID)).Scan(
		&cart.ID,
		&owner,
		&cart.CheckedOut,
		&cart.CheckedOutAt,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("create cart: %w", err)
	}
	cart.UserID = uuidPtr(owner)

	return cart, nil
}

// GetCart loads the cart with its items and each item's current product row.
func GetCart(ctx context.Context, db DBTX, id uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{}
	var owner uuid.NullUUID

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, checked_out, checked_out_at, created_at, updated_at
		 FROM carts WHERE id = $1`, id).Scan(
		&cart.ID,
		&owner,
		&cart.CheckedOut,
		&cart.CheckedOutAt,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cart.UserID = uuidPtr(owner)

	rows, err := db.QueryContext(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.qty, ci.price, ci.created_at,
		        p.id, p.slug, p.title, p.description, p.price, p.stock, p.created_at, p.updated_at
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.created_at, ci.id`, id)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		var price decimal.NullDecimal
		product := &models.Product{}
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Qty,
			&price,
			&item.CreatedAt,
			&product.ID,
			&product.Slug,
			&product.Title,
			&product.Description,
			&product.Price,
			&product.Stock,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if price.Valid {
			p := price.Decimal
			item.Price = &p
		}
		item.Product = product
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

// lockOpenCart takes the cart row lock for the rest of tx and bumps
// updated_at. CloseCart updates the same row, so an item change and a
// finalize on one cart never interleave.
func lockOpenCart(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error {
	var closed bool
	err := tx.QueryRowContext(ctx,
		`SELECT checked_out FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&closed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrCartNotFound
		}
		return fmt.Errorf("lock cart: %w", err)
	}
	if closed {
		return database.ErrCartClosed
	}

	if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

// AddCartItem appends a line to an open cart. A nil price snapshots the
// product's current price.
func AddCartItem(ctx context.Context, db *sql.DB, cartID, productID uuid.UUID, qty int, price *decimal.Decimal) (*models.CartItem, error) {
	var item *models.CartItem

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}

		product, err := GetProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		unit := product.Price
		if price != nil {
			unit = *price
		}

		item = &models.CartItem{
			ID:        uuid.New(),
			CartID:    cartID,
			ProductID: productID,
			Qty:       qty,
			Price:     &unit,
			Product:   product,
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO cart_items (id, cart_id, product_id, qty, price, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING created_at`,
			item.ID, cartID, productID, qty, unit).Scan(&item.CreatedAt)
		if err != nil {
			return fmt.Errorf("add cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

func UpdateCartItemQty(ctx context.Context, db *sql.DB, cartID, itemID uuid.UUID, qty int) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE cart_items SET qty = $1 WHERE id = $2 AND cart_id = $3`,
			qty, itemID, cartID)
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}

		return expectOneRow(result, database.ErrCartItemNotFound)
	})
}

func RemoveCartItem(ctx context.Context, db *sql.DB, cartID, itemID uuid.UUID) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
		if err != nil {
			return fmt.Errorf("remove cart item: %w", err)
		}

		return expectOneRow(result, database.ErrCartItemNotFound)
	})
}

// CloseCart marks the cart checked out at the given time and deletes its lines
// so it cannot be submitted again.
func CloseCart(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, at time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE carts
		 SET checked_out = TRUE, checked_out_at = $1, updated_at = NOW()
		 WHERE id = $2`, at, cartID)
	if err != nil {
		return fmt.Errorf("close cart: %w", err)
	}
	if err := expectOneRow(result, database.ErrCartNotFound); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	return nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
