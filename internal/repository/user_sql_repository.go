package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commdesk-io/commdesk/internal/database"
	"github.com/commdesk-io/commdesk/internal/models"
)

// UserSQLRepository handles database operations for users
type UserSQLRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserSQLRepository {
	return &UserSQLRepository{db: db}
}

// GetUser retrieves a user by ID
func (r *UserSQLRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, login, email, display_name
		FROM users
		WHERE id = $1`)

	return r.scanUser(r.db.QueryRowContext(ctx, query, id), fmt.Sprintf("user %d", id))
}

// GetUserByEmail retrieves a user by email
func (r *UserSQLRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, login, email, display_name
		FROM users
		WHERE LOWER(email) = LOWER($1)`)

	return r.scanUser(r.db.QueryRowContext(ctx, query, email), fmt.Sprintf("user with email %s", email))
}

func (r *UserSQLRepository) scanUser(row *sql.Row, desc string) (*models.User, error) {
	var user models.User
	var displayName sql.NullString
	err := row.Scan(&user.ID, &user.Login, &user.Email, &displayName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s not found", desc)
	}
	if err != nil {
		return nil, err
	}
	if displayName.Valid {
		user.DisplayName = displayName.String
	}
	return &user, nil
}
