package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/models"
)

// CreateAddress inserts addr and fills in its ID and CreatedAt.
func CreateAddress(ctx context.Context, db DBTX, addr *models.Address) error {
	addr.ID = uuid.New()

	err := db.QueryRowContext(ctx,
		`INSERT INTO addresses (id, user_id, full_name, phone, province, city, line1, postal, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 RETURNING created_at`,
		addr.ID, nullUUID(addr.UserID), addr.FullName, addr.Phone,
		addr.Province, addr.City, addr.Line1, addr.Postal,
	).Scan(&addr.CreatedAt)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}

	return nil
}

func getAddress(ctx context.Context, db DBTX, id uuid.UUID) (*models.Address, error) {
	addr := &models.Address{}
	var userID uuid.NullUUID

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, full_name, phone, province, city, line1, postal, created_at
		 FROM addresses WHERE id = $1`, id).Scan(
		&addr.ID,
		&userID,
		&addr.FullName,
		&addr.Phone,
		&addr.Province,
		&addr.City,
		&addr.Line1,
		&addr.Postal,
		&addr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	addr.UserID = uuidPtr(userID)

	return addr, nil
}
