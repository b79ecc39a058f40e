package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commdesk-io/commdesk/internal/database"
	"github.com/commdesk-io/commdesk/internal/models"
)

// GroupSQLRepository handles database operations for role groups
type GroupSQLRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sql.DB) *GroupSQLRepository {
	return &GroupSQLRepository{db: db}
}

// IsMember reports whether the user belongs to the named group
func (r *GroupSQLRepository) IsMember(ctx context.Context, groupName string, userID uint) (bool, error) {
	query := database.ConvertPlaceholders(`
		SELECT EXISTS(
			SELECT 1
			FROM group_user gu
			JOIN groups g ON g.id = gu.group_id
			WHERE g.name = $1 AND gu.user_id = $2)`)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, groupName, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership in %s: %w", groupName, err)
	}
	return exists, nil
}

// MembersOf returns the group's users ordered by login
func (r *GroupSQLRepository) MembersOf(ctx context.Context, groupName string) ([]models.User, error) {
	query := database.ConvertPlaceholders(`
		SELECT u.id, u.login, u.email, u.display_name
		FROM users u
		JOIN group_user gu ON u.id = gu.user_id
		JOIN groups g ON g.id = gu.group_id
		WHERE g.name = $1
		ORDER BY u.login`)

	rows, err := r.db.QueryContext(ctx, query, groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", groupName, err)
	}
	defer rows.Close()

	return scanUsers(rows)
}
