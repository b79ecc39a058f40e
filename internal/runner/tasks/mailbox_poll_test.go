package tasks

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commdesk-io/commdesk/internal/comm"
	"github.com/commdesk-io/commdesk/internal/config"
	"github.com/commdesk-io/commdesk/internal/email/inbound"
	"github.com/commdesk-io/commdesk/internal/email/inbound/connector"
	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// fakeFetcher hands its canned messages to the handler and records which
// ones were reported handled, the way the real connectors decide what to
// delete or expunge.
type fakeFetcher struct {
	messages []*connector.FetchedMessage
	handled  []string
	kept     []string
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context, mailbox connector.Mailbox, handler connector.Handler) error {
	for _, msg := range f.messages {
		if err := handler.Handle(ctx, msg); err != nil {
			f.kept = append(f.kept, msg.UID)
			continue
		}
		f.handled = append(f.handled, msg.UID)
	}
	return nil
}

type pollFixture struct {
	pipeline *inbound.Pipeline
	notes    *repository.MemoryNoteRepository
	tokens   *comm.TokenService
	thread   *models.Thread
	user     *models.User
	uuid     string
}

func newPollFixture(t *testing.T) *pollFixture {
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
	return &pollFixture{
		pipeline: pipeline,
		notes:    notes,
		tokens:   tokens,
		thread:   &thread,
		user:     &user,
		uuid:     tok.UUID,
	}
}

func fetchedReply(uid, uuid, body string) *connector.FetchedMessage {
	raw := fmt.Sprintf("From: dev@example.com\r\n"+
		"To: Marketplace <reply+%s@comm.example.com>\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n"+
		"%s\r\n", uuid, body)
	return &connector.FetchedMessage{Connector: "fake", UID: uid, Raw: []byte(raw)}
}

func pollTask(f *pollFixture, fetcher connector.Fetcher) *MailboxPollTask {
	cfg := &config.MailboxConfig{Enabled: true, Type: "imaps", Host: "mail.example.com"}
	factory := connector.NewFactory(connector.WithFetcher(fetcher, "imaps"))
	return NewMailboxPollTask(cfg, factory, f.pipeline).(*MailboxPollTask)
}

func TestMailboxPollTask(t *testing.T) {
	ctx := context.Background()

	t.Run("ingested messages are handled", func(t *testing.T) {
		f := newPollFixture(t)
		fetcher := &fakeFetcher{messages: []*connector.FetchedMessage{
			fetchedReply("1", f.uuid, "Looks fine to me."),
		}}

		require.NoError(t, pollTask(f, fetcher).Run(ctx))

		assert.Equal(t, []string{"1"}, fetcher.handled)
		listed, err := f.notes.ListNotes(ctx, f.thread.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Looks fine to me.", listed[0].Body)
	})

	t.Run("permanently rejected messages are handled, not kept", func(t *testing.T) {
		f := newPollFixture(t)
		fetcher := &fakeFetcher{messages: []*connector.FetchedMessage{
			fetchedReply("1", "nosuchtoken", "orphan reply"),
			fetchedReply("2", f.uuid, "real reply"),
		}}

		require.NoError(t, pollTask(f, fetcher).Run(ctx))

		// The bad token can never become valid; leaving the message on the
		// server would refetch and refail it every tick.
		assert.Equal(t, []string{"1", "2"}, fetcher.handled)
		assert.Empty(t, fetcher.kept)

		listed, err := f.notes.ListNotes(ctx, f.thread.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "real reply", listed[0].Body)
	})

	t.Run("transient failures leave the message for the next poll", func(t *testing.T) {
		f := newPollFixture(t)
		// A token pointing at a thread the store cannot load fails with a
		// plain lookup error, not a permanent rejection.
		orphan, _, err := f.tokens.GetOrCreateToken(ctx, 999, f.user.ID)
		require.NoError(t, err)

		fetcher := &fakeFetcher{messages: []*connector.FetchedMessage{
			fetchedReply("1", orphan.UUID, "reply into the void"),
		}}

		require.NoError(t, pollTask(f, fetcher).Run(ctx))

		assert.Empty(t, fetcher.handled)
		assert.Equal(t, []string{"1"}, fetcher.kept)
	})

	t.Run("disabled mailbox is a no-op", func(t *testing.T) {
		f := newPollFixture(t)
		fetcher := &fakeFetcher{}
		task := NewMailboxPollTask(&config.MailboxConfig{}, connector.NewFactory(
			connector.WithFetcher(fetcher, "imaps"),
		), f.pipeline)

		require.NoError(t, task.Run(ctx))
		assert.Empty(t, fetcher.handled)
		assert.Empty(t, fetcher.kept)
	})
}
