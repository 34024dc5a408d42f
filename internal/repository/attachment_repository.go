package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// AttachmentRepository persists attachment metadata. File contents live in
// object storage under StorageKey.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	AttachToNote(ctx context.Context, attachmentID, noteID int64) error
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Attachment, error)
	SoftDelete(ctx context.Context, id int64) error
}

type attachmentRepository struct {
	db DBTX
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepository{db: db}
}

const attachmentColumns = `id, ticket_id, note_id, storage_key, file_name, mime_type, size_bytes, uploaded_by,
               created_at, deleted_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, note_id, storage_key, file_name, mime_type, size_bytes, uploaded_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.NoteID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.UploadedBy,
	).Scan(&attachment.ID, &attachment.CreatedAt)
	return mapWriteError(err)
}

func (r *attachmentRepository) AttachToNote(ctx context.Context, attachmentID, noteID int64) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE attachments SET note_id=$1 WHERE id=$2`, noteID, attachmentID))
}

func (r *attachmentRepository) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id=$1 AND deleted_at IS NULL`
	attachment, err := scanAttachment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE ticket_id=$1 AND deleted_at IS NULL ORDER BY id`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	return scanAttachments(rows)
}

func (r *attachmentRepository) SoftDelete(ctx context.Context, id int64) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE attachments SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id))
}

func scanAttachment(row pgx.Row) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := row.Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.NoteID,
		&attachment.StorageKey,
		&attachment.FileName,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.UploadedBy,
		&attachment.CreatedAt,
		&attachment.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func scanAttachments(rows pgx.Rows) ([]domain.Attachment, error) {
	defer rows.Close()
	var result []domain.Attachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *attachment)
	}
	return result, rows.Err()
}
