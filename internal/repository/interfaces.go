package repository

import (
	"context"

	"github.com/commdesk-io/commdesk/internal/models"
)

// ThreadRepository persists communication threads and their CC lists.
type ThreadRepository interface {
	CreateThread(ctx context.Context, thread *models.Thread) error
	GetThread(ctx context.Context, id uint) (*models.Thread, error)
	UpdatePermissions(ctx context.Context, id uint, perms models.ReadPermissions) error
	AddCC(ctx context.Context, threadID, userID uint) error
	IsCC(ctx context.Context, threadID, userID uint) (bool, error)
	// ListCC returns the CC'd users in the order they were added.
	ListCC(ctx context.Context, threadID uint) ([]models.User, error)
}

// NoteRepository persists notes. Notes are immutable once created.
type NoteRepository interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id uint) (*models.Note, error)
	// ListNotes returns a thread's notes in insertion order.
	ListNotes(ctx context.Context, threadID uint) ([]models.Note, error)
	// HasAuthored reports whether the user has ever posted to the thread.
	HasAuthored(ctx context.Context, threadID, userID uint) (bool, error)
	// LatestNote returns the newest note on a thread, or nil.
	LatestNote(ctx context.Context, threadID uint) (*models.Note, error)
}

// TokenRepository persists reply tokens. At most one live token exists per
// (thread, user) pair, enforced by a storage-level unique constraint.
type TokenRepository interface {
	// GetOrCreate returns the live token for the pair, creating one with
	// the supplied uuid if none exists. When an existing token is found
	// its use count is reset to zero and created is false. Implementations
	// must resolve concurrent creation races internally.
	GetOrCreate(ctx context.Context, threadID, userID uint, uuid string) (token *models.ReplyToken, created bool, err error)
	// GetByUUID returns the token with the exact identifier or
	// ErrTokenNotFound.
	GetByUUID(ctx context.Context, uuid string) (*models.ReplyToken, error)
	IncrementUse(ctx context.Context, id uint) error
	// Delete permanently removes the token; later GetByUUID calls for its
	// identifier report ErrTokenNotFound.
	Delete(ctx context.Context, id uint) error
}

// GroupRepository answers role-group membership questions.
type GroupRepository interface {
	IsMember(ctx context.Context, groupName string, userID uint) (bool, error)
	// MembersOf returns the group's users in a deterministic order.
	MembersOf(ctx context.Context, groupName string) ([]models.User, error)
}

// AppRepository resolves the reviewable artifact and its author relation.
type AppRepository interface {
	GetApp(ctx context.Context, id uint) (*models.App, error)
	// Authors returns the app's listed authors in a deterministic order.
	Authors(ctx context.Context, appID uint) ([]models.User, error)
	IsAuthor(ctx context.Context, appID, userID uint) (bool, error)
}

// UserRepository resolves user identities.
type UserRepository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
