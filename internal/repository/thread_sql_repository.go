package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commdesk-io/commdesk/internal/database"
	"github.com/commdesk-io/commdesk/internal/models"
)

// ThreadSQLRepository handles database operations for threads and CC lists
type ThreadSQLRepository struct {
	db *sql.DB
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *sql.DB) *ThreadSQLRepository {
	return &ThreadSQLRepository{db: db}
}

// CreateThread stores a new thread
func (r *ThreadSQLRepository) CreateThread(ctx context.Context, thread *models.Thread) error {
	query := `
		INSERT INTO comm_thread (
			app_id, version, read_public, read_developer, read_reviewer,
			read_senior_reviewer, read_mozilla_contact, read_staff
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, create_time`
	query, useLastInsert := database.ConvertReturning(query)
	query = database.ConvertPlaceholders(query)

	p := thread.Permissions
	args := []interface{}{
		thread.AppID, thread.Version, p.Public, p.Developer, p.Reviewer,
		p.SeniorReviewer, p.MozillaContact, p.Staff,
	}

	if useLastInsert {
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to create thread: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		thread.ID = uint(id)
		return nil
	}

	err := r.db.QueryRowContext(ctx, query, args...).Scan(&thread.ID, &thread.CreateTime)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

// GetThread retrieves a thread by ID
func (r *ThreadSQLRepository) GetThread(ctx context.Context, id uint) (*models.Thread, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, app_id, version, read_public, read_developer, read_reviewer,
		       read_senior_reviewer, read_mozilla_contact, read_staff, create_time
		FROM comm_thread
		WHERE id = $1`)

	var thread models.Thread
	p := &thread.Permissions
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&thread.ID,
		&thread.AppID,
		&thread.Version,
		&p.Public,
		&p.Developer,
		&p.Reviewer,
		&p.SeniorReviewer,
		&p.MozillaContact,
		&p.Staff,
		&thread.CreateTime,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("thread %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// UpdatePermissions replaces a thread's visibility flags
func (r *ThreadSQLRepository) UpdatePermissions(ctx context.Context, id uint, perms models.ReadPermissions) error {
	query := database.ConvertPlaceholders(`
		UPDATE comm_thread
		SET read_public = $1, read_developer = $2, read_reviewer = $3,
		    read_senior_reviewer = $4, read_mozilla_contact = $5, read_staff = $6
		WHERE id = $7`)

	result, err := r.db.ExecContext(ctx, query,
		perms.Public, perms.Developer, perms.Reviewer,
		perms.SeniorReviewer, perms.MozillaContact, perms.Staff, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update thread permissions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("thread %d not found", id)
	}
	return nil
}

// AddCC grants a user explicit read access to a thread
func (r *ThreadSQLRepository) AddCC(ctx context.Context, threadID, userID uint) error {
	query := database.ConvertPlaceholders(`
		INSERT INTO comm_thread_cc (thread_id, user_id)
		VALUES ($1, $2)`)

	_, err := r.db.ExecContext(ctx, query, threadID, userID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil // Already on the CC list
		}
		return fmt.Errorf("failed to add CC: %w", err)
	}
	return nil
}

// IsCC reports whether the user appears on the thread's CC list
func (r *ThreadSQLRepository) IsCC(ctx context.Context, threadID, userID uint) (bool, error) {
	query := database.ConvertPlaceholders(`
		SELECT EXISTS(SELECT 1 FROM comm_thread_cc WHERE thread_id = $1 AND user_id = $2)`)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, threadID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check CC list: %w", err)
	}
	return exists, nil
}

// ListCC returns the thread's CC'd users in the order they were added
func (r *ThreadSQLRepository) ListCC(ctx context.Context, threadID uint) ([]models.User, error) {
	query := database.ConvertPlaceholders(`
		SELECT u.id, u.login, u.email, u.display_name
		FROM users u
		JOIN comm_thread_cc cc ON u.id = cc.user_id
		WHERE cc.thread_id = $1
		ORDER BY cc.id`)

	rows, err := r.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list CC users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		var user models.User
		var displayName sql.NullString
		if err := rows.Scan(&user.ID, &user.Login, &user.Email, &displayName); err != nil {
			return nil, err
		}
		if displayName.Valid {
			user.DisplayName = displayName.String
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
