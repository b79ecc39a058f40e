package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commdesk-io/commdesk/internal/comm"
	"github.com/commdesk-io/commdesk/internal/config"
	"github.com/commdesk-io/commdesk/internal/email/inbound"
	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

func newScanPipeline(t *testing.T) (*inbound.Pipeline, *repository.MemoryNoteRepository, string) {
	t.Helper()
	ctx := context.Background()

	users := repository.NewMemoryUserRepository()
	notes := repository.NewMemoryNoteRepository()
	apps := repository.NewMemoryAppRepository()
	groups := repository.NewMemoryGroupRepository()
	tokenRepo := repository.NewMemoryTokenRepository()
	threads := repository.NewMemoryThreadRepository(users)

	user := models.User{Login: "dev", Email: "dev@example.com"}
	users.CreateUser(&user)
	app := models.App{Name: "Demo App", Slug: "demo-app"}
	apps.CreateApp(&app)
	apps.AddAuthor(app.ID, user)
	thread := models.Thread{AppID: app.ID, Permissions: models.ReadPermissions{Developer: true}}
	require.NoError(t, threads.CreateThread(ctx, &thread))

	tokens := comm.NewTokenService(tokenRepo)
	tok, _, err := tokens.GetOrCreateToken(ctx, thread.ID, user.ID)
	require.NoError(t, err)

	perms := comm.NewPermissionService(threads, notes, apps, groups)
	pipeline := inbound.NewPipeline(
		tokens, perms, threads, users, notes,
		inbound.WithPipelineRegisterer(prometheus.NewRegistry()),
	)
	return pipeline, notes, tok.UUID
}

func writeMessage(t *testing.T, dir, name, uuid, body string) string {
	t.Helper()
	raw := fmt.Sprintf("From: dev@example.com\r\n"+
		"To: Marketplace <reply+%s@comm.example.com>\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n"+
		"%s\r\n", uuid, body)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	return path
}

func TestMaildirScanTask(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests and removes dropped files", func(t *testing.T) {
		pipeline, notes, uuid := newScanPipeline(t)
		dir := t.TempDir()
		path := writeMessage(t, dir, "msg-1.eml", uuid, "Dropped reply.")

		task := NewMaildirScanTask(&config.MailboxConfig{MaildirPath: dir}, pipeline)
		require.NoError(t, task.Run(ctx))

		listed, err := notes.ListNotes(ctx, 1)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Dropped reply.", listed[0].Body)
		assert.NoFileExists(t, path)
	})

	t.Run("removes permanently rejected files", func(t *testing.T) {
		pipeline, notes, _ := newScanPipeline(t)
		dir := t.TempDir()
		path := writeMessage(t, dir, "bad.eml", "nosuchtoken", "orphan reply")

		task := NewMaildirScanTask(&config.MailboxConfig{MaildirPath: dir}, pipeline)
		require.NoError(t, task.Run(ctx))

		listed, err := notes.ListNotes(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, listed)
		assert.NoFileExists(t, path)
	})

	t.Run("no configured path is a no-op", func(t *testing.T) {
		pipeline, _, _ := newScanPipeline(t)
		task := NewMaildirScanTask(&config.MailboxConfig{}, pipeline)
		require.NoError(t, task.Run(ctx))
	})
}
