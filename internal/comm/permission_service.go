package comm

import (
	"context"
	"fmt"
	"strings"

	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// PermissionService decides thread read access from the thread's visibility
// flags, the CC list, note authorship, app authorship, and role groups.
type PermissionService struct {
	threads repository.ThreadRepository
	notes   repository.NoteRepository
	apps    repository.AppRepository
	groups  repository.GroupRepository
}

// NewPermissionService creates a new permission service
func NewPermissionService(
	threads repository.ThreadRepository,
	notes repository.NoteRepository,
	apps repository.AppRepository,
	groups repository.GroupRepository,
) *PermissionService {
	return &PermissionService{
		threads: threads,
		notes:   notes,
		apps:    apps,
		groups:  groups,
	}
}

// CanRead reports whether the user may read the thread. Rules are evaluated
// in a fixed order and the first match wins:
//
//  1. public threads are readable by everyone, including anonymous callers
//  2. thread participants: note authors and CC'd users
//  3. developer flag: listed authors of the thread's app
//  4. reviewer flag: members of the App Reviewers group
//  5. senior-reviewer flag: members of the Senior App Reviewers group
//  6. mozilla-contact flag: the app's designated contact identity
//  7. staff flag: members of the Admins group
func (s *PermissionService) CanRead(ctx context.Context, thread *models.Thread, user *models.User) (bool, error) {
	if thread == nil {
		return false, fmt.Errorf("thread is required")
	}

	if thread.Permissions.Public {
		return true, nil
	}
	if user.Anonymous() {
		// Only the public rule can apply without an identity.
		return false, nil
	}

	authored, err := s.notes.HasAuthored(ctx, thread.ID, user.ID)
	if err != nil {
		return false, err
	}
	if authored {
		return true, nil
	}

	cc, err := s.threads.IsCC(ctx, thread.ID, user.ID)
	if err != nil {
		return false, err
	}
	if cc {
		return true, nil
	}

	if thread.Permissions.Developer {
		isAuthor, err := s.apps.IsAuthor(ctx, thread.AppID, user.ID)
		if err != nil {
			return false, err
		}
		if isAuthor {
			return true, nil
		}
	}

	if thread.Permissions.Reviewer {
		ok, err := s.checkRole(ctx, models.RoleReviewer, thread, user)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	if thread.Permissions.SeniorReviewer {
		ok, err := s.checkRole(ctx, models.RoleSeniorReviewer, thread, user)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	if thread.Permissions.MozillaContact {
		ok, err := s.checkRole(ctx, models.RoleMozillaContact, thread, user)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	if thread.Permissions.Staff {
		ok, err := s.checkRole(ctx, models.RoleStaff, thread, user)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// checkRole answers a single role-based access question. The mozilla
// contact is an identity comparison against the app; every other role maps
// to a named membership group. Role.GroupName panics on a role without a
// group, which is a bug in the caller, not user input.
func (s *PermissionService) checkRole(ctx context.Context, role models.Role, thread *models.Thread, user *models.User) (bool, error) {
	if role == models.RoleMozillaContact {
		app, err := s.apps.GetApp(ctx, thread.AppID)
		if err != nil {
			return false, err
		}
		if app.MozillaContact == "" {
			return false, nil
		}
		return strings.EqualFold(user.Email, app.MozillaContact), nil
	}
	return s.groups.IsMember(ctx, role.GroupName(), user.ID)
}
