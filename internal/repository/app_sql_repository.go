package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commdesk-io/commdesk/internal/database"
	"github.com/commdesk-io/commdesk/internal/models"
)

// AppSQLRepository handles database operations for apps and authorship
type AppSQLRepository struct {
	db *sql.DB
}

// NewAppRepository creates a new app repository
func NewAppRepository(db *sql.DB) *AppSQLRepository {
	return &AppSQLRepository{db: db}
}

// GetApp retrieves an app by ID
func (r *AppSQLRepository) GetApp(ctx context.Context, id uint) (*models.App, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, name, slug, mozilla_contact, create_time
		FROM apps
		WHERE id = $1`)

	var app models.App
	var contact sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.Name, &app.Slug, &contact, &app.CreateTime,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("app %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if contact.Valid {
		app.MozillaContact = contact.String
	}
	return &app, nil
}

// Authors returns the app's listed authors ordered by join order
func (r *AppSQLRepository) Authors(ctx context.Context, appID uint) ([]models.User, error) {
	query := database.ConvertPlaceholders(`
		SELECT u.id, u.login, u.email, u.display_name
		FROM users u
		JOIN app_user au ON u.id = au.user_id
		WHERE au.app_id = $1
		ORDER BY u.id`)

	rows, err := r.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list app authors: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// IsAuthor reports whether the user is a listed author of the app
func (r *AppSQLRepository) IsAuthor(ctx context.Context, appID, userID uint) (bool, error) {
	query := database.ConvertPlaceholders(`
		SELECT EXISTS(SELECT 1 FROM app_user WHERE app_id = $1 AND user_id = $2)`)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, appID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check app authorship: %w", err)
	}
	return exists, nil
}
