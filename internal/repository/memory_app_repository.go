package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/commdesk-io/commdesk/internal/models"
)

// MemoryAppRepository is an in-memory implementation of AppRepository
type MemoryAppRepository struct {
	mu      sync.RWMutex
	apps    map[uint]*models.App
	authors map[uint][]models.User
	nextID  uint
}

// NewMemoryAppRepository creates a new in-memory app repository
func NewMemoryAppRepository() *MemoryAppRepository {
	return &MemoryAppRepository{
		apps:    make(map[uint]*models.App),
		authors: make(map[uint][]models.User),
		nextID:  1,
	}
}

// CreateApp stores a new app. Test and demo seeding helper.
func (r *MemoryAppRepository) CreateApp(app *models.App) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if app.ID == 0 {
		app.ID = r.nextID
		r.nextID++
	} else if app.ID >= r.nextID {
		r.nextID = app.ID + 1
	}
	stored := *app
	r.apps[app.ID] = &stored
}

// AddAuthor lists a user as an author of the app. Seeding helper.
func (r *MemoryAppRepository) AddAuthor(appID uint, user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.authors[appID] {
		if existing.ID == user.ID {
			return
		}
	}
	r.authors[appID] = append(r.authors[appID], user)
}

// GetApp retrieves an app by ID
func (r *MemoryAppRepository) GetApp(ctx context.Context, id uint) (*models.App, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, exists := r.apps[id]
	if !exists {
		return nil, fmt.Errorf("app %d not found", id)
	}
	copied := *app
	return &copied, nil
}

// Authors returns the app's listed authors ordered by ID
func (r *MemoryAppRepository) Authors(ctx context.Context, appID uint) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, len(r.authors[appID]))
	copy(users, r.authors[appID])
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// IsAuthor reports whether the user is a listed author of the app
func (r *MemoryAppRepository) IsAuthor(ctx context.Context, appID, userID uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.authors[appID] {
		if user.ID == userID {
			return true, nil
		}
	}
	return false, nil
}
