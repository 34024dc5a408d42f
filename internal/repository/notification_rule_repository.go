package repository

import (
	"context"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// NotificationRuleRepository reads and writes recipient rules.
type NotificationRuleRepository interface {
	Create(ctx context.Context, rule *domain.NotificationRule) error
	// ListForTicket returns rules bound to the ticket, falling back to rules of
	// its ticket template when none exist.
	ListForTicket(ctx context.Context, event domain.NotificationEvent, ticketID int64, ticketTemplateID *int64) ([]domain.NotificationRule, error)
}

type notificationRuleRepository struct {
	db DBTX
}

// NewNotificationRuleRepository constructs repository.
func NewNotificationRuleRepository(db DBTX) NotificationRuleRepository {
	return &notificationRuleRepository{db: db}
}

func (r *notificationRuleRepository) Create(ctx context.Context, rule *domain.NotificationRule) error {
	const query = `
        INSERT INTO notification_rules (notify_on_event, ticket_id, ticket_template_id, user_ids, role_ids, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		rule.NotifyOnEvent,
		rule.TicketID,
		rule.TicketTemplateID,
		nonNil(rule.UserIDs),
		nonNil(rule.RoleIDs),
		rule.CreatedBy,
	).Scan(&rule.ID, &rule.CreatedAt)
}

func (r *notificationRuleRepository) ListForTicket(ctx context.Context, event domain.NotificationEvent, ticketID int64, ticketTemplateID *int64) ([]domain.NotificationRule, error) {
	rules, err := r.list(ctx, `ticket_id=$2`, event, ticketID)
	if err != nil || len(rules) > 0 || ticketTemplateID == nil {
		return rules, err
	}
	return r.list(ctx, `ticket_template_id=$2`, event, *ticketTemplateID)
}

func (r *notificationRuleRepository) list(ctx context.Context, scope string, event domain.NotificationEvent, id int64) ([]domain.NotificationRule, error) {
	query := `
        SELECT id, notify_on_event, ticket_id, ticket_template_id, user_ids, role_ids, created_by, created_at
        FROM notification_rules WHERE notify_on_event=$1 AND ` + scope + ` ORDER BY id`
	rows, err := r.db.Query(ctx, query, event, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationRule
	for rows.Next() {
		var rule domain.NotificationRule
		if err := rows.Scan(
			&rule.ID,
			&rule.NotifyOnEvent,
			&rule.TicketID,
			&rule.TicketTemplateID,
			&rule.UserIDs,
			&rule.RoleIDs,
			&rule.CreatedBy,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
