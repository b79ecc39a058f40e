package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/commdesk-io/commdesk/internal/models"
)

// MemoryGroupRepository is an in-memory implementation of GroupRepository
type MemoryGroupRepository struct {
	mu      sync.RWMutex
	members map[string][]models.User
}

// NewMemoryGroupRepository creates a new in-memory group repository
func NewMemoryGroupRepository() *MemoryGroupRepository {
	return &MemoryGroupRepository{
		members: make(map[string][]models.User),
	}
}

// AddMember places a user in a named group. Test and demo seeding helper.
func (r *MemoryGroupRepository) AddMember(groupName string, user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.members[groupName] {
		if existing.ID == user.ID {
			return
		}
	}
	r.members[groupName] = append(r.members[groupName], user)
}

// IsMember reports whether the user belongs to the named group
func (r *MemoryGroupRepository) IsMember(ctx context.Context, groupName string, userID uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.members[groupName] {
		if user.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// MembersOf returns the group's users ordered by ID
func (r *MemoryGroupRepository) MembersOf(ctx context.Context, groupName string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, len(r.members[groupName]))
	copy(users, r.members[groupName])
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
