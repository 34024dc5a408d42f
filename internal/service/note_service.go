package service

import (
	"context"
	"strings"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-ticket-service/pkg/util/errorutil"
)

// NoteService appends entries to a ticket's timeline. Notes are never updated
// or deleted. Callers pass the Store of their transaction so the note commits
// or rolls back with the change it records.
type NoteService struct{}

// NewNoteService constructs the recorder.
func NewNoteService() *NoteService {
	return &NoteService{}
}

// CreateUserNote records a free-text comment.
func (s *NoteService) CreateUserNote(ctx context.Context, store repository.Store, ticketID int64, text string, authorID int64) (*domain.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note must not be empty", map[string]any{"field": "note"})
	}
	note := &domain.Note{
		TicketID: ticketID,
		AuthorID: authorID,
		Note:     &text,
	}
	return s.persist(ctx, store, note)
}

// CreateSystemEvent records a typed event with structured details.
func (s *NoteService) CreateSystemEvent(ctx context.Context, store repository.Store, ticketID, authorID int64, eventType domain.TicketEventType, details map[string]any) (*domain.Note, error) {
	note := &domain.Note{
		TicketID:     ticketID,
		AuthorID:     authorID,
		System:       true,
		EventType:    &eventType,
		EventDetails: details,
	}
	return s.persist(ctx, store, note)
}

func (s *NoteService) persist(ctx context.Context, store repository.Store, note *domain.Note) (*domain.Note, error) {
	if err := store.Notes.Create(ctx, note); err != nil {
		return nil, err
	}
	loaded, err := store.Notes.GetByID(ctx, note.ID)
	if err != nil {
		return nil, err
	}
	return loaded, nil
}
