package mailqueue

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/commdesk-io/commdesk/internal/database"
)

// Item represents one outbound email waiting for SMTP delivery.
type Item struct {
	ID                int64
	InsertFingerprint *string
	NoteID            *int64
	Attempts          int
	Sender            *string
	Recipient         string
	RawMessage        []byte
	DueTime           *time.Time
	LastSMTPCode      *int
	LastSMTPMessage   *string
	CreateTime        time.Time
}

// Repository handles database operations for the mail queue.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new mail queue repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert adds a new email to the queue. A duplicate fingerprint means the
// same notification was already queued and is reported as an error.
func (r *Repository) Insert(ctx context.Context, item *Item) error {
	query := database.ConvertPlaceholders(`
		INSERT INTO mail_queue (
			insert_fingerprint, note_id, attempts, sender, recipient,
			raw_message, due_time, create_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)`)

	_, err := r.db.ExecContext(ctx, query,
		item.InsertFingerprint,
		item.NoteID,
		item.Attempts,
		item.Sender,
		item.Recipient,
		item.RawMessage,
		item.DueTime,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("email already queued: %w", err)
		}
		return fmt.Errorf("failed to insert mail queue item: %w", err)
	}
	return nil
}

// GetPending retrieves emails that are ready to be sent (due_time is null or past).
func (r *Repository) GetPending(ctx context.Context, limit int) ([]*Item, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, insert_fingerprint, note_id, attempts, sender, recipient,
		       raw_message, due_time, last_smtp_code, last_smtp_message, create_time
		FROM mail_queue
		WHERE (due_time IS NULL OR due_time <= CURRENT_TIMESTAMP)
		ORDER BY create_time ASC
		LIMIT $1`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending emails: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// UpdateAttempts increments the attempt count and sets the next due time.
func (r *Repository) UpdateAttempts(ctx context.Context, id int64, smtpCode *int, smtpMessage *string, nextDueTime *time.Time) error {
	query := database.ConvertPlaceholders(`
		UPDATE mail_queue
		SET attempts = attempts + 1,
		    last_smtp_code = $1,
		    last_smtp_message = $2,
		    due_time = $3
		WHERE id = $4`)

	_, err := r.db.ExecContext(ctx, query, smtpCode, smtpMessage, nextDueTime, id)
	if err != nil {
		return fmt.Errorf("failed to update mail queue attempts: %w", err)
	}
	return nil
}

// Delete removes a successfully sent email from the queue.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	query := database.ConvertPlaceholders(`DELETE FROM mail_queue WHERE id = $1`)

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete mail queue item: %w", err)
	}
	return nil
}

// GetFailed retrieves emails that have exceeded max attempts.
func (r *Repository) GetFailed(ctx context.Context, maxAttempts int, limit int) ([]*Item, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, insert_fingerprint, note_id, attempts, sender, recipient,
		       raw_message, due_time, last_smtp_code, last_smtp_message, create_time
		FROM mail_queue
		WHERE attempts >= $1
		ORDER BY create_time ASC
		LIMIT $2`)

	rows, err := r.db.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed emails: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.InsertFingerprint,
			&item.NoteID,
			&item.Attempts,
			&item.Sender,
			&item.Recipient,
			&item.RawMessage,
			&item.DueTime,
			&item.LastSMTPCode,
			&item.LastSMTPMessage,
			&item.CreateTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mail queue item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// BuildMessageWithHeaders builds a raw RFC 822 message with extra headers.
func BuildMessageWithHeaders(from, to, subject, body, contentType string, headers map[string]string) []byte {
	var headerLines []string
	headerLines = append(headerLines, fmt.Sprintf("From: %s", from))
	headerLines = append(headerLines, fmt.Sprintf("To: %s", to))
	headerLines = append(headerLines, fmt.Sprintf("Subject: %s", subject))
	for key, value := range headers {
		headerLines = append(headerLines, fmt.Sprintf("%s: %s", key, value))
	}
	if contentType == "" {
		contentType = "text/plain; charset=UTF-8"
	}
	headerLines = append(headerLines, fmt.Sprintf("Content-Type: %s", contentType))

	return []byte(strings.Join(headerLines, "\r\n") + "\r\n\r\n" + body)
}

// GenerateMessageID creates a unique Message-ID header value.
func GenerateMessageID(domain string) string {
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)
	return fmt.Sprintf("<%d.%s@%s>", time.Now().Unix(), hex.EncodeToString(randomBytes), domain)
}
