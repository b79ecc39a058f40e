package tasks

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/commdesk-io/commdesk/internal/config"
	"github.com/commdesk-io/commdesk/internal/mailqueue"
	"github.com/commdesk-io/commdesk/internal/runner"
)

const (
	// MaxRetries is the maximum number of retry attempts for failed emails
	MaxRetries = 5
	// RetryDelayBase is the base delay for exponential backoff (in minutes)
	RetryDelayBase = 5
)

// EmailQueueTask drains the outbound mail queue over SMTP.
type EmailQueueTask struct {
	repo   *mailqueue.Repository
	cfg    *config.EmailConfig
	logger *log.Logger
}

type sendError struct {
	code *int
	err  error
}

func (e *sendError) Error() string {
	return e.err.Error()
}

func (e *sendError) Unwrap() error {
	return e.err
}

// NewEmailQueueTask creates a new email queue task
func NewEmailQueueTask(db *sql.DB, cfg *config.EmailConfig) runner.Task {
	return &EmailQueueTask{
		repo:   mailqueue.NewRepository(db),
		cfg:    cfg,
		logger: log.New(log.Writer(), "[EMAIL-QUEUE] ", log.LstdFlags),
	}
}

// Name returns the task name
func (t *EmailQueueTask) Name() string {
	return "email-queue-processor"
}

// Schedule returns the cron schedule (every 30 seconds)
func (t *EmailQueueTask) Schedule() string {
	return "*/30 * * * * *"
}

// Timeout returns the task timeout (5 minutes)
func (t *EmailQueueTask) Timeout() time.Duration {
	return 5 * time.Minute
}

// Run processes pending emails from the queue
func (t *EmailQueueTask) Run(ctx context.Context) error {
	if !t.cfg.Enabled {
		return nil
	}

	// Small batch per run so one slow SMTP server cannot starve the cron slot.
	pending, err := t.repo.GetPending(ctx, 10)
	if err != nil {
		return fmt.Errorf("failed to get pending emails: %w", err)
	}
	if len(pending) == 0 {
		return t.cleanupFailedEmails(ctx)
	}

	successCount := 0
	failureCount := 0
	var firstErr error

	for _, email := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.processEmail(ctx, email); err != nil {
			failureCount++
			t.logger.Printf("Failed to process email ID %d: %v", email.ID, err)
			var se *sendError
			if errors.As(err, &se) && se.code == nil && strings.Contains(se.Error(), "connection refused") {
				// Treat an unreachable relay as transient background noise.
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
		} else {
			successCount++
		}
	}

	t.logger.Printf("Email queue processing complete: %d sent, %d failed", successCount, failureCount)

	if err := t.cleanupFailedEmails(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// processEmail attempts to send a single email
func (t *EmailQueueTask) processEmail(ctx context.Context, email *mailqueue.Item) error {
	smtpCode, smtpMessage, err := t.sendEmail(email)
	if err != nil {
		nextDueTime := t.calculateNextRetryTime(email.Attempts + 1)
		if updateErr := t.repo.UpdateAttempts(ctx, email.ID, smtpCode, smtpMessage, nextDueTime); updateErr != nil {
			return fmt.Errorf("failed to update attempts after send failure: %w", updateErr)
		}
		return &sendError{code: smtpCode, err: fmt.Errorf("failed to send email: %w", err)}
	}
	return t.repo.Delete(ctx, email.ID)
}

// sendEmail sends one queued message over SMTP.
func (t *EmailQueueTask) sendEmail(email *mailqueue.Item) (*int, *string, error) {
	client, err := dialSMTPClient(t.cfg)
	if err != nil {
		code, msg := smtpStatus(err)
		return code, stringPtr(msg), err
	}
	defer client.Close()

	var auth smtp.Auth
	if t.cfg.SMTP.User != "" && t.cfg.SMTP.Password != "" {
		switch t.cfg.SMTP.AuthType {
		case "login":
			auth = &loginAuth{username: t.cfg.SMTP.User, password: t.cfg.SMTP.Password}
		default:
			auth = smtp.PlainAuth("", t.cfg.SMTP.User, t.cfg.SMTP.Password, t.cfg.SMTP.Host)
		}
	}
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			code, msg := smtpStatus(err)
			return code, stringPtr(msg), err
		}
	}

	sender := t.cfg.From
	if email.Sender != nil && *email.Sender != "" {
		sender = *email.Sender
	}
	if err = client.Mail(sender); err != nil {
		code, msg := smtpStatus(err)
		return code, stringPtr(msg), err
	}
	if err = client.Rcpt(email.Recipient); err != nil {
		code, msg := smtpStatus(err)
		return code, stringPtr(msg), err
	}

	w, err := client.Data()
	if err != nil {
		code, msg := smtpStatus(err)
		return code, stringPtr(msg), err
	}
	if _, err = w.Write(email.RawMessage); err != nil {
		code, msg := smtpStatus(err)
		return code, stringPtr(msg), err
	}
	if err = w.Close(); err != nil {
		code, msg := smtpStatus(err)
		return code, stringPtr(msg), err
	}

	if err = client.Quit(); err != nil {
		code, msg := smtpStatus(err)
		return code, stringPtr(msg), err
	}
	return nil, nil, nil
}

// calculateNextRetryTime calculates the next retry time using exponential backoff
func (t *EmailQueueTask) calculateNextRetryTime(attempts int) *time.Time {
	if attempts >= MaxRetries {
		return nil
	}

	// 5min, 25min, 125min, 625min, 3125min
	delay := time.Duration(RetryDelayBase) * time.Minute
	for i := 1; i < attempts; i++ {
		delay *= 5
	}

	nextTime := time.Now().Add(delay)
	return &nextTime
}

// cleanupFailedEmails removes week-old messages that ran out of retries.
func (t *EmailQueueTask) cleanupFailedEmails(ctx context.Context) error {
	failed, err := t.repo.GetFailed(ctx, MaxRetries, 100)
	if err != nil {
		return fmt.Errorf("failed to get failed emails: %w", err)
	}
	for _, email := range failed {
		if time.Since(email.CreateTime) > 7*24*time.Hour {
			if err := t.repo.Delete(ctx, email.ID); err != nil {
				t.logger.Printf("Failed to delete old failed email ID %d: %v", email.ID, err)
			}
		}
	}
	return nil
}

func stringPtr(s string) *string {
	return &s
}

func smtpStatus(err error) (*int, string) {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return &protoErr.Code, fmt.Sprintf("%d %s", protoErr.Code, protoErr.Msg)
	}
	if errors.Is(err, io.EOF) {
		code := 421
		return &code, fmt.Sprintf("%d unexpected EOF", code)
	}
	return nil, err.Error()
}

func dialSMTPClient(cfg *config.EmailConfig) (*smtp.Client, error) {
	addr := cfg.SMTP.Host + ":" + strconv.Itoa(cfg.SMTP.Port)
	tlsConfig := &tls.Config{
		ServerName:         cfg.SMTP.Host,
		InsecureSkipVerify: cfg.SMTP.SkipVerify,
	}

	switch cfg.EffectiveTLSMode() {
	case "smtps":
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, cfg.SMTP.Host)
	default:
		client, err := smtp.Dial(addr)
		if err != nil {
			return nil, err
		}
		if cfg.EffectiveTLSMode() == "starttls" {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, err
			}
		}
		return client, nil
	}
}

// loginAuth implements SMTP LOGIN authentication
type loginAuth struct {
	username, password string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		switch string(fromServer) {
		case "Username:":
			return []byte(a.username), nil
		case "Password:":
			return []byte(a.password), nil
		default:
			return nil, fmt.Errorf("unexpected server challenge: %s", fromServer)
		}
	}
	return nil, nil
}
