package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/commdesk-io/commdesk/internal/models"
)

// MemoryNoteRepository is an in-memory implementation of NoteRepository
type MemoryNoteRepository struct {
	mu     sync.RWMutex
	notes  map[uint]*models.Note
	nextID uint
}

// NewMemoryNoteRepository creates a new in-memory note repository
func NewMemoryNoteRepository() *MemoryNoteRepository {
	return &MemoryNoteRepository{
		notes:  make(map[uint]*models.Note),
		nextID: 1,
	}
}

// CreateNote stores a new note
func (r *MemoryNoteRepository) CreateNote(ctx context.Context, note *models.Note) error {
	if !note.Type.Valid() {
		return fmt.Errorf("invalid note type %d", int(note.Type))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	note.ID = r.nextID
	r.nextID++
	if note.CreateTime.IsZero() {
		note.CreateTime = time.Now()
	}

	stored := *note
	r.notes[note.ID] = &stored
	return nil
}

// GetNote retrieves a note by ID
func (r *MemoryNoteRepository) GetNote(ctx context.Context, id uint) (*models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, exists := r.notes[id]
	if !exists {
		return nil, fmt.Errorf("note %d not found", id)
	}
	copied := *note
	return &copied, nil
}

// ListNotes returns a thread's notes in insertion order
func (r *MemoryNoteRepository) ListNotes(ctx context.Context, threadID uint) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var notes []models.Note
	for _, note := range r.notes {
		if note.ThreadID == threadID {
			notes = append(notes, *note)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes, nil
}

// HasAuthored reports whether the user has ever posted to the thread
func (r *MemoryNoteRepository) HasAuthored(ctx context.Context, threadID, userID uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, note := range r.notes {
		if note.ThreadID == threadID && note.AuthorID == userID {
			return true, nil
		}
	}
	return false, nil
}

// LatestNote returns the newest note on a thread, or nil
func (r *MemoryNoteRepository) LatestNote(ctx context.Context, threadID uint) (*models.Note, error) {
	notes, err := r.ListNotes(ctx, threadID)
	if err != nil || len(notes) == 0 {
		return nil, err
	}
	latest := notes[len(notes)-1]
	return &latest, nil
}
