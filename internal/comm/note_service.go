package comm

import (
	"context"
	"fmt"
	"log"

	"github.com/commdesk-io/commdesk/internal/models"
	"github.com/commdesk-io/commdesk/internal/repository"
)

// Notifier fans a freshly created note out to its recipients. Implemented
// by the outbound email notifier; delivery failures belong to it, not to
// note creation.
type Notifier interface {
	NotifyNote(ctx context.Context, note *models.Note) error
}

// NoteService handles reviewer workflow actions that post notes to a
// thread: approvals, rejections, escalations, comments.
type NoteService struct {
	threads  repository.ThreadRepository
	notes    repository.NoteRepository
	perms    *PermissionService
	notifier Notifier
	logger   *log.Logger
}

// NewNoteService creates a new note service. The notifier may be nil when
// outbound notification is disabled.
func NewNoteService(
	threads repository.ThreadRepository,
	notes repository.NoteRepository,
	perms *PermissionService,
	notifier Notifier,
	logger *log.Logger,
) *NoteService {
	if logger == nil {
		logger = log.Default()
	}
	return &NoteService{
		threads:  threads,
		notes:    notes,
		perms:    perms,
		notifier: notifier,
		logger:   logger,
	}
}

// PostNote appends a note to the thread on behalf of the author and fans
// out notifications. The author must currently be permitted to read the
// thread.
func (s *NoteService) PostNote(ctx context.Context, threadID uint, author *models.User, noteType models.NoteType, body string) (*models.Note, error) {
	if !noteType.Valid() {
		return nil, fmt.Errorf("invalid note type %d", int(noteType))
	}
	if author.Anonymous() {
		return nil, fmt.Errorf("posting a note requires an authenticated author")
	}

	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.perms.CanRead(ctx, thread, author)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("user %d may not post to thread %d", author.ID, threadID)
	}

	note := &models.Note{
		ThreadID: thread.ID,
		AuthorID: author.ID,
		Type:     noteType,
		Body:     body,
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		return nil, err
	}

	s.notify(ctx, note)
	return note, nil
}

// notify fans the note out. Failures are logged and never fail the post:
// tokens are already persisted by the time delivery can go wrong.
func (s *NoteService) notify(ctx context.Context, note *models.Note) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyNote(ctx, note); err != nil {
		s.logger.Printf("notify recipients for note %d: %v", note.ID, err)
	}
}
