package repository

import (
	"context"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// ViewPermissionRepository stores explicit viewer grants on restricted tickets.
type ViewPermissionRepository interface {
	// Grant is idempotent; re-granting an existing viewer keeps the first row.
	Grant(ctx context.Context, permission *domain.TicketViewPermission) error
	HasPermission(ctx context.Context, ticketID, userID int64) (bool, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketViewPermission, error)
}

type viewPermissionRepository struct {
	db DBTX
}

// NewViewPermissionRepository constructs repository.
func NewViewPermissionRepository(db DBTX) ViewPermissionRepository {
	return &viewPermissionRepository{db: db}
}

func (r *viewPermissionRepository) Grant(ctx context.Context, permission *domain.TicketViewPermission) error {
	const query = `
        INSERT INTO ticket_view_permissions (ticket_id, user_id, created_by)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id, user_id) DO UPDATE SET ticket_id=EXCLUDED.ticket_id
        RETURNING id, created_by, created_at`
	return r.db.QueryRow(ctx, query, permission.TicketID, permission.UserID, permission.CreatedBy).
		Scan(&permission.ID, &permission.CreatedBy, &permission.CreatedAt)
}

func (r *viewPermissionRepository) HasPermission(ctx context.Context, ticketID, userID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ticket_view_permissions WHERE ticket_id=$1 AND user_id=$2)`
	var ok bool
	err := r.db.QueryRow(ctx, query, ticketID, userID).Scan(&ok)
	return ok, err
}

func (r *viewPermissionRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketViewPermission, error) {
	const query = `
        SELECT id, ticket_id, user_id, created_by, created_at
        FROM ticket_view_permissions WHERE ticket_id=$1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketViewPermission
	for rows.Next() {
		var permission domain.TicketViewPermission
		if err := rows.Scan(
			&permission.ID,
			&permission.TicketID,
			&permission.UserID,
			&permission.CreatedBy,
			&permission.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, permission)
	}
	return result, rows.Err()
}
