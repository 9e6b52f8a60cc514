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
)

const orderColumns = `id, user_id, address_id, status, total, gateway, created_at, updated_at, finalized_at`

func scanOrder(row rowScanner, order *models.Order) error {
	var userID, addressID uuid.NullUUID
	err := row.Scan(
		&order.ID,
		&userID,
		&addressID,
		&order.Status,
		&order.Total,
		&order.Gateway,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.FinalizedAt,
	)
	if err != nil {
		return err
	}
	order.UserID = uuidPtr(userID)
	order.AddressID = uuidPtr(addressID)
	return nil
}

// InsertOrder writes the order header and its items. IDs are assigned here;
// Total is stored as given.
func InsertOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	order.ID = uuid.New()

	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, user_id, address_id, status, total, gateway, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, nullUUID(order.UserID), nullUUID(order.AddressID),
		order.Status, order.Total, order.Gateway,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = uuid.New()
		item.OrderID = order.ID

		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, qty, price)
			 VALUES ($1, $2, $3, $4, $5)`,
			item.ID, order.ID, item.ProductID, item.Qty, item.Price)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	return nil
}

func getOrderHeader(ctx context.Context, db DBTX, id uuid.UUID, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	order := &models.Order{}
	if err := scanOrder(db.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

func getOrderItems(ctx context.Context, db DBTX, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.qty, oi.price,
		        p.id, p.slug, p.title, p.description, p.price, p.stock, p.created_at, p.updated_at
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.product_id, oi.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		product := &models.Product{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Qty,
			&item.Price,
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
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Product = product
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetOrder returns the order with its items, their products, and the
// shipping address when one is attached.
func GetOrder(ctx context.Context, db DBTX, id uuid.UUID) (*models.Order, error) {
	order, err := getOrderHeader(ctx, db, id, false)
	if err != nil {
		return nil, err
	}

	if order.Items, err = getOrderItems(ctx, db, id); err != nil {
		return nil, err
	}

	if order.AddressID != nil {
		if order.Address, err = getAddress(ctx, db, *order.AddressID); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// GetOrderForUpdate locks the order row and loads its items inside tx.
func GetOrderForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Order, error) {
	order, err := getOrderHeader(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	if order.Items, err = getOrderItems(ctx, tx, id); err != nil {
		return nil, err
	}

	return order, nil
}

// AttachAddress sets the order's owner and shipping address while it is still
// PENDING. It reports ErrOrderNotFound when no pending order matched.
func AttachAddress(ctx context.Context, db DBTX, orderID uuid.UUID, userID, addressID *uuid.UUID) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(db.QueryRowContext(ctx,
		`UPDATE orders
		 SET user_id = $1, address_id = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4
		 RETURNING `+orderColumns,
		nullUUID(userID), nullUUID(addressID), orderID, models.OrderStatusPending), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("attach address: %w", err)
	}

	return order, nil
}

// TransitionOrder moves an order from one status to the next. The first
// transition stamps finalized_at.
func TransitionOrder(ctx context.Context, db DBTX, orderID uuid.UUID, from, to models.OrderStatus, at time.Time) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("order status %s -> %s is not allowed", from, to)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1,
		     finalized_at = COALESCE(finalized_at, $2),
		     updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		to, at, orderID, from)
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}

	return expectOneRow(result, database.ErrOrderNotFound)
}

func ListOrdersCursor(ctx context.Context, db DBTX, userID uuid.UUID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
