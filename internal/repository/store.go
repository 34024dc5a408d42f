package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no live row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles repositories bound to the same connection or transaction.
type Store struct {
	Tickets           TicketRepository
	Approvals         ApprovalRepository
	Templates         ApprovalTemplateRepository
	Notes             NoteRepository
	Labels            LabelRepository
	Categories        CategoryRepository
	Attachments       AttachmentRepository
	ViewPermissions   ViewPermissionRepository
	NotificationRules NotificationRuleRepository
}

// NewStore builds the Postgres-backed repositories for db.
func NewStore(db DBTX) Store {
	return Store{
		Tickets:           NewTicketRepository(db),
		Approvals:         NewApprovalRepository(db),
		Templates:         NewApprovalTemplateRepository(db),
		Notes:             NewNoteRepository(db),
		Labels:            NewLabelRepository(db),
		Categories:        NewCategoryRepository(db),
		Attachments:       NewAttachmentRepository(db),
		ViewPermissions:   NewViewPermissionRepository(db),
		NotificationRules: NewNotificationRuleRepository(db),
	}
}

// UnitOfWork scopes a request's writes to one transaction.
type UnitOfWork interface {
	// Store returns repositories outside of any transaction, for reads.
	Store() Store
	// WithinTx runs fn in a transaction, committing only when fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
