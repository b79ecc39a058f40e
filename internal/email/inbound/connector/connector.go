package connector

import (
	"context"
	"time"
)

// Mailbox carries the fields a connector needs to open the reply mailbox.
type Mailbox struct {
	Type         string // pop3, pop3s, imap, imaps
	Host         string
	Port         int
	Username     string
	Password     []byte
	IMAPFolder   string
	PollInterval time.Duration
}

// FetchedMessage wraps one on-wire RFC 822 payload plus fetch metadata.
type FetchedMessage struct {
	Connector  string
	UID        string
	RemoteID   string
	ReceivedAt time.Time
	SizeBytes  int64
	Raw        []byte
}

// Handler receives fetched messages, typically the reply ingestion
// pipeline. A handler error marks that one message as failed; the fetch
// continues with the rest of the mailbox.
type Handler interface {
	Handle(ctx context.Context, msg *FetchedMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *FetchedMessage) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg *FetchedMessage) error {
	return f(ctx, msg)
}

// Fetcher implementations (POP3, IMAP) stream mailbox messages to a handler.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, mailbox Mailbox, handler Handler) error
}

// Factory resolves the connector implementation for a mailbox type.
type Factory interface {
	FetcherFor(mailbox Mailbox) (Fetcher, error)
}
