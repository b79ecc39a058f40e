package models

import (
	"fmt"
	"time"
)

// NoteType tags a note with the reviewer action that produced it.
// The integer values are wire-stable.
type NoteType int

const (
	NoteNoAction        NoteType = 0
	NoteApproval        NoteType = 1
	NoteRejection       NoteType = 2
	NoteDisabled        NoteType = 3
	NoteMoreInfo        NoteType = 4
	NoteEscalation      NoteType = 5
	NoteReviewerComment NoteType = 6
	NoteResubmission    NoteType = 7
)

var noteTypeNames = map[NoteType]string{
	NoteNoAction:        "no-action",
	NoteApproval:        "approval",
	NoteRejection:       "rejection",
	NoteDisabled:        "disabled",
	NoteMoreInfo:        "more-info",
	NoteEscalation:      "escalation",
	NoteReviewerComment: "reviewer-comment",
	NoteResubmission:    "resubmission",
}

// Valid reports whether t is a member of the fixed enumeration.
func (t NoteType) Valid() bool {
	_, ok := noteTypeNames[t]
	return ok
}

func (t NoteType) String() string {
	if name, ok := noteTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("note-type(%d)", int(t))
}

// ParseNoteType resolves a note type from its name.
func ParseNoteType(name string) (NoteType, error) {
	for t, n := range noteTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown note type %q", name)
}

// Note is an immutable message in a thread. Created either by a reviewer
// action or by the inbound reply pipeline; never mutated afterwards.
type Note struct {
	ID         uint      `json:"id"`
	ThreadID   uint      `json:"thread_id"`
	AuthorID   uint      `json:"author_id"`
	Type       NoteType  `json:"note_type"`
	Body       string    `json:"body"`
	CreateTime time.Time `json:"create_time"`
}
