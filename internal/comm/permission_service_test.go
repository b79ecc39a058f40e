package comm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

type permFixture struct {
	users   *repository.MemoryUserRepository
	notes   *repository.MemoryNoteRepository
	apps    *repository.MemoryAppRepository
	groups  *repository.MemoryGroupRepository
	threads *repository.MemoryThreadRepository
	svc     *PermissionService
}

func newPermFixture() *permFixture {
	users := repository.NewMemoryUserRepository()
	notes := repository.NewMemoryNoteRepository()
	apps := repository.NewMemoryAppRepository()
	groups := repository.NewMemoryGroupRepository()
	threads := repository.NewMemoryThreadRepository(users)
	return &permFixture{
		users:   users,
		notes:   notes,
		apps:    apps,
		groups:  groups,
		threads: threads,
		svc:     NewPermissionService(threads, notes, apps, groups),
	}
}

func (f *permFixture) user(login string) *models.User {
	u := models.User{Login: login, Email: login + "@example.com"}
	f.users.CreateUser(&u)
	return &u
}

func (f *permFixture) thread(t *testing.T, app *models.App, perms models.ReadPermissions) *models.Thread {
	t.Helper()
	thread := models.Thread{AppID: app.ID, Permissions: perms}
	require.NoError(t, f.threads.CreateThread(context.Background(), &thread))
	return &thread
}

func (f *permFixture) app(name string) *models.App {
	a := models.App{Name: name}
	f.apps.CreateApp(&a)
	return &a
}

func TestCanRead(t *testing.T) {
	ctx := context.Background()

	t.Run("public thread readable by anyone", func(t *testing.T) {
		f := newPermFixture()
		thread := f.thread(t, f.app("A"), models.ReadPermissions{Public: true})

		ok, err := f.svc.CanRead(ctx, thread, nil)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.svc.CanRead(ctx, thread, f.user("stranger"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("anonymous denied on non-public threads", func(t *testing.T) {
		f := newPermFixture()
		thread := f.thread(t, f.app("A"), models.ReadPermissions{Developer: true, Staff: true})

		ok, err := f.svc.CanRead(ctx, thread, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("note authors stay participants", func(t *testing.T) {
		f := newPermFixture()
		thread := f.thread(t, f.app("A"), models.ReadPermissions{})
		author := f.user("author")
		require.NoError(t, f.notes.CreateNote(ctx, &models.Note{
			ThreadID: thread.ID, AuthorID: author.ID, Body: "hi",
		}))

		ok, err := f.svc.CanRead(ctx, thread, author)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("cc list grants access without any flag", func(t *testing.T) {
		f := newPermFixture()
		thread := f.thread(t, f.app("A"), models.ReadPermissions{})
		cc := f.user("watcher")
		require.NoError(t, f.threads.AddCC(ctx, thread.ID, cc.ID))

		ok, err := f.svc.CanRead(ctx, thread, cc)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("developer flag admits app authors only", func(t *testing.T) {
		f := newPermFixture()
		app := f.app("A")
		dev := f.user("dev")
		f.apps.AddAuthor(app.ID, *dev)
		thread := f.thread(t, app, models.ReadPermissions{Developer: true})

		ok, err := f.svc.CanRead(ctx, thread, dev)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.svc.CanRead(ctx, thread, f.user("outsider"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("app author denied when developer flag is off", func(t *testing.T) {
		f := newPermFixture()
		app := f.app("A")
		dev := f.user("dev")
		f.apps.AddAuthor(app.ID, *dev)
		thread := f.thread(t, app, models.ReadPermissions{Reviewer: true})

		ok, err := f.svc.CanRead(ctx, thread, dev)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("reviewer flag admits group members", func(t *testing.T) {
		f := newPermFixture()
		rev := f.user("rev")
		f.groups.AddMember(models.GroupAppReviewers, *rev)
		thread := f.thread(t, f.app("A"), models.ReadPermissions{Reviewer: true})

		ok, err := f.svc.CanRead(ctx, thread, rev)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("senior reviewer group is distinct from reviewers", func(t *testing.T) {
		f := newPermFixture()
		senior := f.user("senior")
		f.groups.AddMember(models.GroupSeniorAppReviewers, *senior)
		thread := f.thread(t, f.app("A"), models.ReadPermissions{SeniorReviewer: true})

		ok, err := f.svc.CanRead(ctx, thread, senior)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.svc.CanRead(ctx, &models.Thread{
			ID: thread.ID, AppID: thread.AppID,
			Permissions: models.ReadPermissions{Reviewer: true},
		}, senior)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("mozilla contact matches by email, case-insensitively", func(t *testing.T) {
		f := newPermFixture()
		contact := f.user("contact")
		app := models.App{Name: "A", MozillaContact: "Contact@Example.com"}
		f.apps.CreateApp(&app)
		thread := f.thread(t, &app, models.ReadPermissions{MozillaContact: true})

		ok, err := f.svc.CanRead(ctx, thread, contact)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.svc.CanRead(ctx, thread, f.user("imposter"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("mozilla contact flag without a contact denies", func(t *testing.T) {
		f := newPermFixture()
		thread := f.thread(t, f.app("A"), models.ReadPermissions{MozillaContact: true})

		ok, err := f.svc.CanRead(ctx, thread, f.user("anyone"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("staff flag admits admins", func(t *testing.T) {
		f := newPermFixture()
		admin := f.user("admin")
		f.groups.AddMember(models.GroupAdmins, *admin)
		thread := f.thread(t, f.app("A"), models.ReadPermissions{Staff: true})

		ok, err := f.svc.CanRead(ctx, thread, admin)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("nil thread is an error", func(t *testing.T) {
		f := newPermFixture()
		_, err := f.svc.CanRead(ctx, nil, f.user("u"))
		assert.Error(t, err)
	})
}
