package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/commdesk-io/commdesk/internal/config"
	"github.com/commdesk-io/commdesk/internal/email/inbound"
	"github.com/commdesk-io/commdesk/internal/email/inbound/connector"
	"github.com/commdesk-io/commdesk/internal/runner"
)

// MailboxPollTask drains the reply mailbox on schedule and feeds each
// fetched message to the ingestion pipeline. One bad message never stops
// the batch; the connector logs it and keeps going.
type MailboxPollTask struct {
	cfg      *config.MailboxConfig
	factory  connector.Factory
	pipeline *inbound.Pipeline
	logger   *log.Logger
}

// NewMailboxPollTask creates a new mailbox poll task
func NewMailboxPollTask(cfg *config.MailboxConfig, factory connector.Factory, pipeline *inbound.Pipeline) runner.Task {
	if factory == nil {
		factory = connector.DefaultFactory()
	}
	return &MailboxPollTask{
		cfg:      cfg,
		factory:  factory,
		pipeline: pipeline,
		logger:   log.New(log.Writer(), "[MAILBOX-POLL] ", log.LstdFlags),
	}
}

// Name returns the task name
func (t *MailboxPollTask) Name() string {
	return "mailbox-poll"
}

// Schedule returns the cron schedule (every minute)
func (t *MailboxPollTask) Schedule() string {
	return "0 * * * * *"
}

// Timeout returns the task timeout (2 minutes)
func (t *MailboxPollTask) Timeout() time.Duration {
	return 2 * time.Minute
}

// Run fetches the configured mailbox and ingests every message.
func (t *MailboxPollTask) Run(ctx context.Context) error {
	if !t.cfg.Enabled || t.cfg.Host == "" {
		return nil
	}

	mailbox := connector.Mailbox{
		Type:         t.cfg.Type,
		Host:         t.cfg.Host,
		Port:         t.cfg.Port,
		Username:     t.cfg.User,
		Password:     []byte(t.cfg.Password),
		IMAPFolder:   t.cfg.IMAPFolder,
		PollInterval: t.cfg.PollInterval,
	}

	fetcher, err := t.factory.FetcherFor(mailbox)
	if err != nil {
		return fmt.Errorf("mailbox poll: %w", err)
	}

	handler := connector.HandlerFunc(func(ctx context.Context, msg *connector.FetchedMessage) error {
		note, err := t.pipeline.IngestMessage(ctx, msg.Raw)
		switch {
		case err == nil:
			t.logger.Printf("Message %s ingested as note %d", msg.UID, note.ID)
			return nil
		case permanentIngestFailure(err):
			// Report handled so the fetcher removes the message;
			// refetching it next tick can never succeed.
			t.logger.Printf("Message %s rejected: %v", msg.UID, err)
			return nil
		default:
			return err
		}
	})

	if err := fetcher.Fetch(ctx, mailbox, handler); err != nil {
		return fmt.Errorf("mailbox poll via %s: %w", fetcher.Name(), err)
	}
	return nil
}
