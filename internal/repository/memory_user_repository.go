package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/commdesk-io/commdesk/internal/models"
)

// MemoryUserRepository is an in-memory implementation of UserRepository
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[uint]*models.User
	nextID uint
}

// NewMemoryUserRepository creates a new in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[uint]*models.User),
		nextID: 1,
	}
}

// CreateUser stores a new user. Test and demo seeding helper.
func (r *MemoryUserRepository) CreateUser(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	} else if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}
	stored := *user
	r.users[user.ID] = &stored
}

// GetUser retrieves a user by ID
func (r *MemoryUserRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, fmt.Errorf("user %d not found", id)
	}
	copied := *user
	return &copied, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user with email %s not found", email)
}
