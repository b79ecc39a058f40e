package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/commdesk-io/commdesk/internal/models"
)

// MemoryThreadRepository is an in-memory implementation of ThreadRepository
type MemoryThreadRepository struct {
	mu       sync.RWMutex
	threads  map[uint]*models.Thread
	ccs      map[uint]*models.ThreadCC
	users    *MemoryUserRepository
	nextID   uint
	nextCCID uint
}

// NewMemoryThreadRepository creates a new in-memory thread repository.
// CC listings resolve user records through the supplied user repository.
func NewMemoryThreadRepository(users *MemoryUserRepository) *MemoryThreadRepository {
	return &MemoryThreadRepository{
		threads:  make(map[uint]*models.Thread),
		ccs:      make(map[uint]*models.ThreadCC),
		users:    users,
		nextID:   1,
		nextCCID: 1,
	}
}

// CreateThread stores a new thread
func (r *MemoryThreadRepository) CreateThread(ctx context.Context, thread *models.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread.ID = r.nextID
	r.nextID++
	if thread.CreateTime.IsZero() {
		thread.CreateTime = time.Now()
	}

	stored := *thread
	r.threads[thread.ID] = &stored
	return nil
}

// GetThread retrieves a thread by ID
func (r *MemoryThreadRepository) GetThread(ctx context.Context, id uint) (*models.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	thread, exists := r.threads[id]
	if !exists {
		return nil, fmt.Errorf("thread %d not found", id)
	}
	copied := *thread
	return &copied, nil
}

// UpdatePermissions replaces a thread's visibility flags
func (r *MemoryThreadRepository) UpdatePermissions(ctx context.Context, id uint, perms models.ReadPermissions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread, exists := r.threads[id]
	if !exists {
		return fmt.Errorf("thread %d not found", id)
	}
	thread.Permissions = perms
	return nil
}

// AddCC grants a user explicit read access to a thread
func (r *MemoryThreadRepository) AddCC(ctx context.Context, threadID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cc := range r.ccs {
		if cc.ThreadID == threadID && cc.UserID == userID {
			return nil
		}
	}

	cc := &models.ThreadCC{
		ID:         r.nextCCID,
		ThreadID:   threadID,
		UserID:     userID,
		CreateTime: time.Now(),
	}
	r.nextCCID++
	r.ccs[cc.ID] = cc
	return nil
}

// IsCC reports whether the user appears on the thread's CC list
func (r *MemoryThreadRepository) IsCC(ctx context.Context, threadID, userID uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cc := range r.ccs {
		if cc.ThreadID == threadID && cc.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ListCC returns the thread's CC'd users in the order they were added
func (r *MemoryThreadRepository) ListCC(ctx context.Context, threadID uint) ([]models.User, error) {
	r.mu.RLock()
	var entries []*models.ThreadCC
	for _, cc := range r.ccs {
		if cc.ThreadID == threadID {
			entries = append(entries, cc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	users := make([]models.User, 0, len(entries))
	for _, cc := range entries {
		user, err := r.users.GetUser(ctx, cc.UserID)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}
