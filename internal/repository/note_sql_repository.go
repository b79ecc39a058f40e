package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commdesk-io/commdesk/internal/database"
	"github.com/commdesk-io/commdesk/internal/models"
)

// NoteSQLRepository handles database operations for notes
type NoteSQLRepository struct {
	db *sql.DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *sql.DB) *NoteSQLRepository {
	return &NoteSQLRepository{db: db}
}

// CreateNote stores a new note
func (r *NoteSQLRepository) CreateNote(ctx context.Context, note *models.Note) error {
	if !note.Type.Valid() {
		return fmt.Errorf("invalid note type %d", int(note.Type))
	}

	query := `
		INSERT INTO comm_note (thread_id, author_id, note_type, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, create_time`
	query, useLastInsert := database.ConvertReturning(query)
	query = database.ConvertPlaceholders(query)

	if useLastInsert {
		result, err := r.db.ExecContext(ctx, query, note.ThreadID, note.AuthorID, int(note.Type), note.Body)
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		note.ID = uint(id)
		return nil
	}

	err := r.db.QueryRowContext(ctx, query, note.ThreadID, note.AuthorID, int(note.Type), note.Body).
		Scan(&note.ID, &note.CreateTime)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// GetNote retrieves a note by ID
func (r *NoteSQLRepository) GetNote(ctx context.Context, id uint) (*models.Note, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, thread_id, author_id, note_type, body, create_time
		FROM comm_note
		WHERE id = $1`)

	note, err := r.scanNote(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note %d not found", id)
	}
	return note, err
}

// ListNotes returns a thread's notes in insertion order
func (r *NoteSQLRepository) ListNotes(ctx context.Context, threadID uint) ([]models.Note, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, thread_id, author_id, note_type, body, create_time
		FROM comm_note
		WHERE thread_id = $1
		ORDER BY id`)

	rows, err := r.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var note models.Note
		var noteType int
		err := rows.Scan(&note.ID, &note.ThreadID, &note.AuthorID, &noteType, &note.Body, &note.CreateTime)
		if err != nil {
			return nil, err
		}
		note.Type = models.NoteType(noteType)
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// HasAuthored reports whether the user has ever posted to the thread
func (r *NoteSQLRepository) HasAuthored(ctx context.Context, threadID, userID uint) (bool, error) {
	query := database.ConvertPlaceholders(`
		SELECT EXISTS(SELECT 1 FROM comm_note WHERE thread_id = $1 AND author_id = $2)`)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, threadID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check note authorship: %w", err)
	}
	return exists, nil
}

// LatestNote returns the newest note on a thread, or nil
func (r *NoteSQLRepository) LatestNote(ctx context.Context, threadID uint) (*models.Note, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, thread_id, author_id, note_type, body, create_time
		FROM comm_note
		WHERE thread_id = $1
		ORDER BY id DESC
		LIMIT 1`)

	note, err := r.scanNote(r.db.QueryRowContext(ctx, query, threadID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return note, err
}

func (r *NoteSQLRepository) scanNote(row *sql.Row) (*models.Note, error) {
	var note models.Note
	var noteType int
	err := row.Scan(&note.ID, &note.ThreadID, &note.AuthorID, &noteType, &note.Body, &note.CreateTime)
	if err != nil {
		return nil, err
	}
	note.Type = models.NoteType(noteType)
	return &note, nil
}
