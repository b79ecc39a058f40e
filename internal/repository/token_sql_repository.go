package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commdesk-io/commdesk/internal/database"
	"github.com/commdesk-io/commdesk/internal/models"
)

// TokenSQLRepository handles database operations for reply tokens.
// The (thread_id, user_id) unique constraint makes get-or-create safe under
// concurrency: losers of the insert race re-read the winning row.
type TokenSQLRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *sql.DB) *TokenSQLRepository {
	return &TokenSQLRepository{db: db}
}

// GetOrCreate returns the live token for the (thread, user) pair, creating
// one with the supplied uuid when none exists. An existing token gets its
// use count reset to zero instead of being duplicated.
func (r *TokenSQLRepository) GetOrCreate(ctx context.Context, threadID, userID uint, uuid string) (*models.ReplyToken, bool, error) {
	if tok, err := r.getByPair(ctx, threadID, userID); err == nil {
		if err := r.resetUseCount(ctx, tok.ID); err != nil {
			return nil, false, err
		}
		tok.UseCount = 0
		return tok, false, nil
	} else if err != ErrTokenNotFound {
		return nil, false, err
	}

	tok, err := r.insert(ctx, threadID, userID, uuid)
	if err == nil {
		return tok, true, nil
	}
	if err != ErrConflict {
		return nil, false, err
	}

	// Lost the creation race; the winner's row is authoritative.
	tok, err = r.getByPair(ctx, threadID, userID)
	if err != nil {
		return nil, false, err
	}
	if err := r.resetUseCount(ctx, tok.ID); err != nil {
		return nil, false, err
	}
	tok.UseCount = 0
	return tok, false, nil
}

func (r *TokenSQLRepository) insert(ctx context.Context, threadID, userID uint, uuid string) (*models.ReplyToken, error) {
	query := `
		INSERT INTO comm_thread_token (thread_id, user_id, uuid, use_count)
		VALUES ($1, $2, $3, 0)
		RETURNING id, create_time`
	query, useLastInsert := database.ConvertReturning(query)
	query = database.ConvertPlaceholders(query)

	tok := &models.ReplyToken{ThreadID: threadID, UserID: userID, UUID: uuid}

	if useLastInsert {
		result, err := r.db.ExecContext(ctx, query, threadID, userID, uuid)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return nil, ErrConflict
			}
			return nil, fmt.Errorf("failed to create reply token: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}
		tok.ID = uint(id)
		return tok, nil
	}

	err := r.db.QueryRowContext(ctx, query, threadID, userID, uuid).Scan(&tok.ID, &tok.CreateTime)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create reply token: %w", err)
	}
	return tok, nil
}

func (r *TokenSQLRepository) getByPair(ctx context.Context, threadID, userID uint) (*models.ReplyToken, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, thread_id, user_id, uuid, use_count, create_time
		FROM comm_thread_token
		WHERE thread_id = $1 AND user_id = $2`)

	return r.scanToken(r.db.QueryRowContext(ctx, query, threadID, userID))
}

// GetByUUID returns the token with the exact identifier
func (r *TokenSQLRepository) GetByUUID(ctx context.Context, uuid string) (*models.ReplyToken, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, thread_id, user_id, uuid, use_count, create_time
		FROM comm_thread_token
		WHERE uuid = $1`)

	return r.scanToken(r.db.QueryRowContext(ctx, query, uuid))
}

// IncrementUse bumps the token's use counter
func (r *TokenSQLRepository) IncrementUse(ctx context.Context, id uint) error {
	query := database.ConvertPlaceholders(`
		UPDATE comm_thread_token SET use_count = use_count + 1 WHERE id = $1`)
	return r.exec(ctx, query, id)
}

func (r *TokenSQLRepository) resetUseCount(ctx context.Context, id uint) error {
	query := database.ConvertPlaceholders(`
		UPDATE comm_thread_token SET use_count = 0 WHERE id = $1`)
	return r.exec(ctx, query, id)
}

// Delete permanently removes the token
func (r *TokenSQLRepository) Delete(ctx context.Context, id uint) error {
	query := database.ConvertPlaceholders(`
		DELETE FROM comm_thread_token WHERE id = $1`)
	return r.exec(ctx, query, id)
}

func (r *TokenSQLRepository) exec(ctx context.Context, query string, id uint) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update reply token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *TokenSQLRepository) scanToken(row *sql.Row) (*models.ReplyToken, error) {
	var tok models.ReplyToken
	err := row.Scan(&tok.ID, &tok.ThreadID, &tok.UserID, &tok.UUID, &tok.UseCount, &tok.CreateTime)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
