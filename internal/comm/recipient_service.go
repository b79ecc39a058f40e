package comm

import (
	"context"
	"fmt"
	"log"

	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// Recipient pairs a notification target with the reply token that
// authenticates their inbound replies.
type Recipient struct {
	User  models.User
	Token *models.ReplyToken
}

// Email returns the recipient's contact address.
func (r Recipient) Email() string {
	return r.User.Email
}

// RecipientService computes the notification recipient set for a new note
// and mints or refreshes a reply token per recipient. It never sends mail
// itself; delivery belongs to the outbound notifier.
type RecipientService struct {
	threads repository.ThreadRepository
	apps    repository.AppRepository
	groups  repository.GroupRepository
	users   repository.UserRepository
	tokens  *TokenService
	logger  *log.Logger
}

// NewRecipientService creates a new recipient service
func NewRecipientService(
	threads repository.ThreadRepository,
	apps repository.AppRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	tokens *TokenService,
	logger *log.Logger,
) *RecipientService {
	if logger == nil {
		logger = log.Default()
	}
	return &RecipientService{
		threads: threads,
		apps:    apps,
		groups:  groups,
		users:   users,
		tokens:  tokens,
		logger:  logger,
	}
}

// ResolveRecipients computes who gets notified about the note, in
// first-seen order: the thread's CC list, then app authors when the
// developer flag is set, then members of each role group the thread's
// flags select, then the app's designated contact. The note's author is
// excluded from the result but still has their own token refreshed.
func (s *RecipientService) ResolveRecipients(ctx context.Context, note *models.Note) ([]Recipient, error) {
	thread, err := s.threads.GetThread(ctx, note.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	candidates, err := s.threads.ListCC(ctx, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	if thread.Permissions.Developer {
		authors, err := s.apps.Authors(ctx, thread.AppID)
		if err != nil {
			return nil, fmt.Errorf("resolve recipients: %w", err)
		}
		candidates = append(candidates, authors...)
	}

	for _, role := range s.flaggedRoles(thread.Permissions) {
		members, err := s.groups.MembersOf(ctx, role.GroupName())
		if err != nil {
			return nil, fmt.Errorf("resolve recipients: %w", err)
		}
		candidates = append(candidates, members...)
	}

	if thread.Permissions.MozillaContact {
		contact, err := s.designatedContact(ctx, thread.AppID)
		if err != nil {
			return nil, fmt.Errorf("resolve recipients: %w", err)
		}
		if contact != nil {
			candidates = append(candidates, *contact)
		}
	}

	// Dedup on first-seen order so the result is deterministic.
	seen := make(map[uint]struct{}, len(candidates))
	users := make([]models.User, 0, len(candidates))
	authorIncluded := false
	for _, user := range candidates {
		if _, ok := seen[user.ID]; ok {
			continue
		}
		seen[user.ID] = struct{}{}
		if user.ID == note.AuthorID {
			authorIncluded = true
			continue
		}
		users = append(users, user)
	}

	// The author never gets notified about their own note, but their token
	// is still refreshed so their existing reply address stays live.
	if authorIncluded {
		if _, _, err := s.tokens.GetOrCreateToken(ctx, thread.ID, note.AuthorID); err != nil {
			return nil, err
		}
	}

	recipients := make([]Recipient, 0, len(users))
	for _, user := range users {
		tok, _, err := s.tokens.GetOrCreateToken(ctx, thread.ID, user.ID)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, Recipient{User: user, Token: tok})
	}
	return recipients, nil
}

func (s *RecipientService) flaggedRoles(perms models.ReadPermissions) []models.Role {
	var roles []models.Role
	if perms.Reviewer {
		roles = append(roles, models.RoleReviewer)
	}
	if perms.SeniorReviewer {
		roles = append(roles, models.RoleSeniorReviewer)
	}
	if perms.Staff {
		roles = append(roles, models.RoleStaff)
	}
	return roles
}

// designatedContact resolves the app's mozilla contact to a user record.
// A contact address without a matching account is logged and skipped
// rather than failing the whole notification fan-out.
func (s *RecipientService) designatedContact(ctx context.Context, appID uint) (*models.User, error) {
	app, err := s.apps.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.MozillaContact == "" {
		return nil, nil
	}
	user, err := s.users.GetUserByEmail(ctx, app.MozillaContact)
	if err != nil {
		s.logger.Printf("mozilla contact %s has no account, skipping: %v", app.MozillaContact, err)
		return nil, nil
	}
	return user, nil
}
