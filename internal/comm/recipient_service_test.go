package comm

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

type recipientFixture struct {
	*permFixture
	tokens *TokenService
	svc    *RecipientService
}

func newRecipientFixture() *recipientFixture {
	f := newPermFixture()
	tokens := NewTokenService(repository.NewMemoryTokenRepository(),
		WithTokenLogger(log.New(io.Discard, "", 0)))
	return &recipientFixture{
		permFixture: f,
		tokens:      tokens,
		svc: NewRecipientService(f.threads, f.apps, f.groups, f.users, tokens,
			log.New(io.Discard, "", 0)),
	}
}

func emails(recipients []Recipient) []string {
	out := make([]string, len(recipients))
	for i, r := range recipients {
		out[i] = r.Email()
	}
	return out
}

func TestResolveRecipients(t *testing.T) {
	ctx := context.Background()

	t.Run("cc then authors then role groups then contact", func(t *testing.T) {
		f := newRecipientFixture()
		cc := f.user("cc")
		dev := f.user("dev")
		rev := f.user("rev")
		contact := f.user("contact")

		app := models.App{Name: "A", MozillaContact: contact.Email}
		f.apps.CreateApp(&app)
		f.apps.AddAuthor(app.ID, *dev)
		f.groups.AddMember(models.GroupAppReviewers, *rev)

		thread := f.thread(t, &app, models.ReadPermissions{
			Developer: true, Reviewer: true, MozillaContact: true,
		})
		require.NoError(t, f.threads.AddCC(ctx, thread.ID, cc.ID))

		author := f.user("author")
		recipients, err := f.svc.ResolveRecipients(ctx, &models.Note{
			ThreadID: thread.ID, AuthorID: author.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{
			cc.Email, dev.Email, rev.Email, contact.Email,
		}, emails(recipients))
	})

	t.Run("each recipient carries a usable token", func(t *testing.T) {
		f := newRecipientFixture()
		dev := f.user("dev")
		app := f.app("A")
		f.apps.AddAuthor(app.ID, *dev)
		thread := f.thread(t, app, models.ReadPermissions{Developer: true})

		recipients, err := f.svc.ResolveRecipients(ctx, &models.Note{
			ThreadID: thread.ID, AuthorID: f.user("author").ID,
		})
		require.NoError(t, err)
		require.Len(t, recipients, 1)
		require.NotNil(t, recipients[0].Token)

		found, err := f.tokens.LookupByIdentifier(ctx, recipients[0].Token.UUID)
		require.NoError(t, err)
		assert.Equal(t, thread.ID, found.ThreadID)
		assert.Equal(t, dev.ID, found.UserID)
	})

	t.Run("duplicates collapse to first appearance", func(t *testing.T) {
		f := newRecipientFixture()
		both := f.user("both")
		app := f.app("A")
		f.apps.AddAuthor(app.ID, *both)
		f.groups.AddMember(models.GroupAppReviewers, *both)
		thread := f.thread(t, app, models.ReadPermissions{Developer: true, Reviewer: true})

		recipients, err := f.svc.ResolveRecipients(ctx, &models.Note{
			ThreadID: thread.ID, AuthorID: f.user("author").ID,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{both.Email}, emails(recipients))
	})

	t.Run("author excluded but token refreshed", func(t *testing.T) {
		f := newRecipientFixture()
		dev := f.user("dev")
		other := f.user("other")
		app := f.app("A")
		f.apps.AddAuthor(app.ID, *dev)
		f.apps.AddAuthor(app.ID, *other)
		thread := f.thread(t, app, models.ReadPermissions{Developer: true})

		recipients, err := f.svc.ResolveRecipients(ctx, &models.Note{
			ThreadID: thread.ID, AuthorID: dev.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{other.Email}, emails(recipients))

		// The token already exists, so resolving again reports created=false.
		_, created, err := f.tokens.GetOrCreateToken(ctx, thread.ID, dev.ID)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("contact without an account is skipped", func(t *testing.T) {
		f := newRecipientFixture()
		app := models.App{Name: "A", MozillaContact: "nobody@example.com"}
		f.apps.CreateApp(&app)
		thread := f.thread(t, &app, models.ReadPermissions{MozillaContact: true})

		recipients, err := f.svc.ResolveRecipients(ctx, &models.Note{
			ThreadID: thread.ID, AuthorID: f.user("author").ID,
		})
		require.NoError(t, err)
		assert.Empty(t, recipients)
	})

	t.Run("no flags and no cc yields nobody", func(t *testing.T) {
		f := newRecipientFixture()
		thread := f.thread(t, f.app("A"), models.ReadPermissions{})

		recipients, err := f.svc.ResolveRecipients(ctx, &models.Note{
			ThreadID: thread.ID, AuthorID: f.user("author").ID,
		})
		require.NoError(t, err)
		assert.Empty(t, recipients)
	})
}
