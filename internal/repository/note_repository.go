package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// NoteRepository stores the append-only ticket timeline.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	GetByID(ctx context.Context, id int64) (*domain.Note, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Note, error)
}

type noteRepository struct {
	db DBTX
}

// NewNoteRepository builds repository.
func NewNoteRepository(db DBTX) NoteRepository {
	return &noteRepository{db: db}
}

const noteColumns = `id, ticket_id, author_id, note, system, event_type, event_details, created_at`

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	const query = `
        INSERT INTO ticket_notes (ticket_id, author_id, note, system, event_type, event_details)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		note.TicketID,
		note.AuthorID,
		note.Note,
		note.System,
		note.EventType,
		note.EventDetails,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *noteRepository) GetByID(ctx context.Context, id int64) (*domain.Note, error) {
	note, err := scanNote(r.db.QueryRow(ctx, `SELECT `+noteColumns+` FROM ticket_notes WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	attachments, err := r.attachments(ctx, []int64{note.ID})
	if err != nil {
		return nil, err
	}
	note.Attachments = attachments[note.ID]
	return note, nil
}

func (r *noteRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM ticket_notes WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Note
	var ids []int64
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *note)
		ids = append(ids, note.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	attachments, err := r.attachments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Attachments = attachments[result[i].ID]
	}
	return result, nil
}

func (r *noteRepository) attachments(ctx context.Context, noteIDs []int64) (map[int64][]domain.Attachment, error) {
	out := make(map[int64][]domain.Attachment)
	if len(noteIDs) == 0 {
		return out, nil
	}
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE note_id = ANY($1) ORDER BY id`
	rows, err := r.db.Query(ctx, query, noteIDs)
	if err != nil {
		return nil, err
	}
	list, err := scanAttachments(rows)
	if err != nil {
		return nil, err
	}
	for _, attachment := range list {
		out[*attachment.NoteID] = append(out[*attachment.NoteID], attachment)
	}
	return out, nil
}

func scanNote(row pgx.Row) (*domain.Note, error) {
	var note domain.Note
	if err := row.Scan(
		&note.ID,
		&note.TicketID,
		&note.AuthorID,
		&note.Note,
		&note.System,
		&note.EventType,
		&note.EventDetails,
		&note.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &note, nil
}
