package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// TicketFilter captures search parameters. ViewerID scopes results to tickets
// the viewer may read.
type TicketFilter struct {
	ViewerID    int64
	Title       *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Visibility  *domain.TicketVisibility
	AssignedTo  *int64
	CreatedBy   *int64
	CategoryIDs []int64
	LabelIDs    []int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	DueFrom     *time.Time
	DueTo       *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByTicketNo(ctx context.Context, ticketNo string) (*domain.Ticket, error)
	Search(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	SoftDelete(ctx context.Context, id, deletedBy int64) error
	SetLabels(ctx context.Context, ticketID int64, labelIDs []int64) error
	SetCategories(ctx context.Context, ticketID int64, categoryIDs []int64) error
	LoadRelations(ctx context.Context, ticket *domain.Ticket) error
	Stats(ctx context.Context, viewerID int64) (*TicketStats, error)
}

// TicketStats counts the tickets a viewer may read.
type TicketStats struct {
	Total      int
	ByStatus   map[domain.TicketStatus]int
	ByPriority map[domain.TicketPriority]int
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `t.id, t.ticket_no, t.title, t.description, t.status, t.priority, t.visibility,
               t.assigned_to, t.created_by, t.updated_by, t.ticket_template_id, t.approval_template_id,
               t.custom_fields, t.due_date, t.created_at, t.updated_at, t.deleted_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_no, title, description, status, priority, visibility, assigned_to, created_by,
                             updated_by, ticket_template_id, approval_template_id, custom_fields, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.TicketNo,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Visibility,
		ticket.AssignedTo,
		ticket.CreatedBy,
		ticket.TicketTemplateID,
		ticket.ApprovalTemplateID,
		ticket.CustomFields,
		ticket.DueDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapWriteError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, visibility=$5, assigned_to=$6,
            updated_by=$7, custom_fields=$8, due_date=$9, updated_at=NOW()
        WHERE id=$10 AND deleted_at IS NULL`
	return requireAffected(r.db.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Visibility,
		ticket.AssignedTo,
		ticket.UpdatedBy,
		ticket.CustomFields,
		ticket.DueDate,
		ticket.ID,
	))
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1 AND t.deleted_at IS NULL`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1 AND t.deleted_at IS NULL FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByTicketNo(ctx context.Context, ticketNo string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.ticket_no=$1 AND t.deleted_at IS NULL`
	return r.fetchSingle(ctx, query, ticketNo)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes a search term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func (r *ticketRepository) Search(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"t.deleted_at IS NULL"}
	args := []any{}

	args = append(args, filter.ViewerID)
	clauses = append(clauses, visibleToClause(fmt.Sprintf("$%d", len(args))))

	if filter.Title != nil && strings.TrimSpace(*filter.Title) != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(strings.TrimSpace(*filter.Title)))+"%")
		clauses = append(clauses, fmt.Sprintf(`LOWER(t.title) LIKE $%d ESCAPE '\'`, len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Visibility != nil {
		args = append(args, *filter.Visibility)
		clauses = append(clauses, fmt.Sprintf("t.visibility=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if len(filter.CategoryIDs) > 0 {
		args = append(args, filter.CategoryIDs)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ticket_categories tc WHERE tc.ticket_id=t.id AND tc.category_id = ANY($%d))", len(args)))
	}
	if len(filter.LabelIDs) > 0 {
		args = append(args, filter.LabelIDs)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ticket_labels tl WHERE tl.ticket_id=t.id AND tl.label_id = ANY($%d))", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if filter.DueFrom != nil {
		args = append(args, *filter.DueFrom)
		clauses = append(clauses, fmt.Sprintf("t.due_date >= $%d", len(args)))
	}
	if filter.DueTo != nil {
		args = append(args, *filter.DueTo)
		clauses = append(clauses, fmt.Sprintf("t.due_date <= $%d", len(args)))
	}

	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s ORDER BY t.created_at DESC, t.id DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id, deletedBy int64) error {
	const query = `UPDATE tickets SET deleted_at=NOW(), deleted_by=$1 WHERE id=$2 AND deleted_at IS NULL`
	return requireAffected(r.db.Exec(ctx, query, deletedBy, id))
}

func (r *ticketRepository) SetLabels(ctx context.Context, ticketID int64, labelIDs []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ticket_labels WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	if len(labelIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO ticket_labels (ticket_id, label_id) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`
	_, err := r.db.Exec(ctx, query, ticketID, labelIDs)
	return err
}

func (r *ticketRepository) SetCategories(ctx context.Context, ticketID int64, categoryIDs []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ticket_categories WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO ticket_categories (ticket_id, category_id) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`
	_, err := r.db.Exec(ctx, query, ticketID, categoryIDs)
	return err
}

func (r *ticketRepository) LoadRelations(ctx context.Context, ticket *domain.Ticket) error {
	const labelQuery = `
        SELECT l.id, l.name, l.color, l.description, l.created_by, l.created_at, l.updated_at, l.deleted_at
        FROM labels l JOIN ticket_labels tl ON tl.label_id=l.id
        WHERE tl.ticket_id=$1 AND l.deleted_at IS NULL ORDER BY l.id`
	rows, err := r.db.Query(ctx, labelQuery, ticket.ID)
	if err != nil {
		return err
	}
	labels, err := scanLabels(rows)
	if err != nil {
		return err
	}
	ticket.Labels = labels

	const categoryQuery = `
        SELECT c.id, c.name, c.description, c.created_by, c.created_at, c.updated_at, c.deleted_at
        FROM categories c JOIN ticket_categories tc ON tc.category_id=c.id
        WHERE tc.ticket_id=$1 AND c.deleted_at IS NULL ORDER BY c.id`
	rows, err = r.db.Query(ctx, categoryQuery, ticket.ID)
	if err != nil {
		return err
	}
	categories, err := scanCategories(rows)
	if err != nil {
		return err
	}
	ticket.Categories = categories
	return nil
}

func (r *ticketRepository) Stats(ctx context.Context, viewerID int64) (*TicketStats, error) {
	query := `SELECT t.status, t.priority, COUNT(*) FROM tickets t
        WHERE t.deleted_at IS NULL AND ` + visibleToClause("$1") + `
        GROUP BY t.status, t.priority`
	rows, err := r.db.Query(ctx, query, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}
	for rows.Next() {
		var (
			status   domain.TicketStatus
			priority domain.TicketPriority
			count    int
		)
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
	}
	return stats, rows.Err()
}

// visibleToClause restricts tickets to those the viewer bound at placeholder
// may read.
func visibleToClause(viewer string) string {
	return fmt.Sprintf(`(t.visibility='internal' OR t.created_by=%[1]s OR t.assigned_to=%[1]s
        OR EXISTS (SELECT 1 FROM ticket_view_permissions vp WHERE vp.ticket_id=t.id AND vp.user_id=%[1]s)
        OR EXISTS (SELECT 1 FROM approval_process_steps s JOIN approval_processes p ON p.id=s.approval_process_id
                   WHERE p.ticket_id=t.id AND (s.approver_id=%[1]s OR s.proxy_id=%[1]s)))`, viewer)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNo,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Visibility,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.UpdatedBy,
		&ticket.TicketTemplateID,
		&ticket.ApprovalTemplateID,
		&ticket.CustomFields,
		&ticket.DueDate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
