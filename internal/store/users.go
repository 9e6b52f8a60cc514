package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/safar/cod-checkout/internal/models"
)

func CreateUser(ctx context.Context, db DBTX, name, mobile, role string) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (id, name, mobile, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, name, mobile, role, created_at, updated_at`

	err := db.QueryRowContext(ctx, query, uuid.New(), name, mobile, role).Scan(
		&user.ID,
		&user.Name,
		&user.Mobile,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db DBTX, id uuid.UUID) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, name, mobile, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Mobile,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}
