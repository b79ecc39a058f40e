package outbound

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/xeonx/timeago"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/commdesk-io/commdesk/internal/comm"
	"github.com/commdesk-io/commdesk/internal/mailqueue"
	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// Queue is the slice of the mail queue the notifier needs.
type Queue interface {
	Insert(ctx context.Context, item *mailqueue.Item) error
}

// Notifier fans new notes out over email. Each recipient gets a message
// whose Reply-To address carries their personal reply token. Delivery is
// fire-and-forget: tokens are persisted before any message is enqueued,
// and per-recipient enqueue failures are logged, not returned.
type Notifier struct {
	recipients *comm.RecipientService
	threads    repository.ThreadRepository
	apps       repository.AppRepository
	users      repository.UserRepository
	queue      Queue
	fromAddr   string
	domain     string
	logger     *log.Logger
	now        func() time.Time
	markdown   goldmark.Markdown
}

// NotifierOption customizes Notifier.
type NotifierOption func(*Notifier)

// NewNotifier creates a new outbound note notifier.
func NewNotifier(
	recipients *comm.RecipientService,
	threads repository.ThreadRepository,
	apps repository.AppRepository,
	users repository.UserRepository,
	queue Queue,
	fromAddr string,
	domain string,
	opts ...NotifierOption,
) *Notifier {
	n := &Notifier{
		recipients: recipients,
		threads:    threads,
		apps:       apps,
		users:      users,
		queue:      queue,
		fromAddr:   fromAddr,
		domain:     domain,
		logger:     log.Default(),
		now:        func() time.Time { return time.Now().UTC() },
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// WithNotifierLogger overrides the logger used for diagnostics.
func WithNotifierLogger(logger *log.Logger) NotifierOption {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithNotifierClock overrides the wall clock, primarily for tests.
func WithNotifierClock(now func() time.Time) NotifierOption {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// NotifyNote resolves the note's recipients, mints their reply tokens, and
// enqueues one message per recipient.
func (n *Notifier) NotifyNote(ctx context.Context, note *models.Note) error {
	recipients, err := n.recipients.ResolveRecipients(ctx, note)
	if err != nil {
		return fmt.Errorf("notify note %d: %w", note.ID, err)
	}
	if len(recipients) == 0 {
		return nil
	}

	thread, err := n.threads.GetThread(ctx, note.ThreadID)
	if err != nil {
		return fmt.Errorf("notify note %d: %w", note.ID, err)
	}
	app, err := n.apps.GetApp(ctx, thread.AppID)
	if err != nil {
		return fmt.Errorf("notify note %d: %w", note.ID, err)
	}
	author, err := n.users.GetUser(ctx, note.AuthorID)
	if err != nil {
		return fmt.Errorf("notify note %d: %w", note.ID, err)
	}

	subject := fmt.Sprintf("New %s note on %s", note.Type, app.Name)
	body := n.renderBody(app, author, note)

	for _, recipient := range recipients {
		if err := n.enqueue(ctx, note, recipient, subject, body); err != nil {
			n.logger.Printf("queue notification for %s about note %d: %v", recipient.Email(), note.ID, err)
		}
	}
	return nil
}

// ReplyAddress formats the tokenized reply address for a token identifier.
func (n *Notifier) ReplyAddress(uuid string) string {
	return fmt.Sprintf("reply+%s@%s", uuid, n.domain)
}

func (n *Notifier) enqueue(ctx context.Context, note *models.Note, recipient comm.Recipient, subject, body string) error {
	replyTo := n.ReplyAddress(recipient.Token.UUID)
	raw := mailqueue.BuildMessageWithHeaders(
		n.fromAddr,
		recipient.Email(),
		subject,
		body,
		"text/html; charset=UTF-8",
		map[string]string{
			"Reply-To":   replyTo,
			"Message-ID": mailqueue.GenerateMessageID(n.domain),
		},
	)

	noteID := int64(note.ID)
	fingerprint := notificationFingerprint(note.ID, recipient.User.ID)
	sender := n.fromAddr
	return n.queue.Insert(ctx, &mailqueue.Item{
		InsertFingerprint: &fingerprint,
		NoteID:            &noteID,
		Sender:            &sender,
		Recipient:         recipient.Email(),
		RawMessage:        raw,
	})
}

// renderBody produces the HTML notification body: who wrote what, and how
// long ago, with the note text rendered from markdown.
func (n *Notifier) renderBody(app *models.App, author *models.User, note *models.Note) string {
	name := author.DisplayName
	if name == "" {
		name = author.Login
	}
	posted := note.CreateTime
	if posted.IsZero() {
		posted = n.now()
	}

	var rendered bytes.Buffer
	if err := n.markdown.Convert([]byte(note.Body), &rendered); err != nil {
		n.logger.Printf("render note %d body: %v", note.ID, err)
		rendered.Reset()
		rendered.WriteString(note.Body)
	}

	var sb bytes.Buffer
	fmt.Fprintf(&sb, "<p>%s commented on <b>%s</b> %s.</p>\n",
		name, app.Name, timeago.English.FormatReference(posted, n.now()))
	sb.Write(rendered.Bytes())
	sb.WriteString("\n<p>Reply to this email to respond on the thread.</p>\n")
	return sb.String()
}

// notificationFingerprint makes enqueueing idempotent per (note, recipient).
func notificationFingerprint(noteID, userID uint) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("note:%d:user:%d", noteID, userID)))
	return hex.EncodeToString(sum[:])
}
