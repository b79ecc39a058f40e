package repository

import (
	"context"
	"sync"
	"time"

	"github.com/commdesk-io/commdesk/internal/models"
)

// MemoryTokenRepository is an in-memory implementation of TokenRepository.
// The single mutex serializes get-or-create, which gives the same guarantee
// the SQL implementation gets from its unique constraint.
type MemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[uint]*models.ReplyToken
	nextID uint
}

// NewMemoryTokenRepository creates a new in-memory token repository
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{
		tokens: make(map[uint]*models.ReplyToken),
		nextID: 1,
	}
}

// GetOrCreate returns the live token for the (thread, user) pair, creating
// one with the supplied uuid when none exists. Existing tokens get their
// use count reset instead of being duplicated.
func (r *MemoryTokenRepository) GetOrCreate(ctx context.Context, threadID, userID uint, uuid string) (*models.ReplyToken, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tok := range r.tokens {
		if tok.ThreadID == threadID && tok.UserID == userID {
			tok.UseCount = 0
			copied := *tok
			return &copied, false, nil
		}
	}

	tok := &models.ReplyToken{
		ID:         r.nextID,
		ThreadID:   threadID,
		UserID:     userID,
		UUID:       uuid,
		UseCount:   0,
		CreateTime: time.Now(),
	}
	r.nextID++
	r.tokens[tok.ID] = tok

	copied := *tok
	return &copied, true, nil
}

// GetByUUID returns the token with the exact identifier
func (r *MemoryTokenRepository) GetByUUID(ctx context.Context, uuid string) (*models.ReplyToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tok := range r.tokens {
		if tok.UUID == uuid {
			copied := *tok
			return &copied, nil
		}
	}
	return nil, ErrTokenNotFound
}

// IncrementUse bumps the token's use counter
func (r *MemoryTokenRepository) IncrementUse(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, exists := r.tokens[id]
	if !exists {
		return ErrTokenNotFound
	}
	tok.UseCount++
	return nil
}

// Delete permanently removes the token
func (r *MemoryTokenRepository) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[id]; !exists {
		return ErrTokenNotFound
	}
	delete(r.tokens, id)
	return nil
}
