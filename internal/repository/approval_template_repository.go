package repository

import (
	"context"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// ApprovalTemplateRepository persists reusable approval templates.
type ApprovalTemplateRepository interface {
	Create(ctx context.Context, template *domain.ApprovalTemplate) error
	// GetWithSteps returns the template with steps ordered by step_order.
	GetWithSteps(ctx context.Context, id int64) (*domain.ApprovalTemplate, error)
	List(ctx context.Context) ([]domain.ApprovalTemplate, error)
	SoftDelete(ctx context.Context, id int64) error
}

type approvalTemplateRepository struct {
	db DBTX
}

// NewApprovalTemplateRepository constructs repository.
func NewApprovalTemplateRepository(db DBTX) ApprovalTemplateRepository {
	return &approvalTemplateRepository{db: db}
}

func (r *approvalTemplateRepository) Create(ctx context.Context, template *domain.ApprovalTemplate) error {
	const query = `
        INSERT INTO approval_templates (name, created_by)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, query, template.Name, template.CreatedBy).
		Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt); err != nil {
		return mapWriteError(err)
	}

	const stepQuery = `
        INSERT INTO approval_template_steps (approval_template_id, step_order, user_id, role_id, proxy_user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	for i := range template.Steps {
		step := &template.Steps[i]
		step.ApprovalTemplateID = template.ID
		if err := r.db.QueryRow(ctx, stepQuery,
			step.ApprovalTemplateID,
			step.StepOrder,
			step.UserID,
			step.RoleID,
			step.ProxyUserID,
		).Scan(&step.ID); err != nil {
			return mapWriteError(err)
		}
	}
	return nil
}

func (r *approvalTemplateRepository) GetWithSteps(ctx context.Context, id int64) (*domain.ApprovalTemplate, error) {
	const query = `
        SELECT id, name, created_by, created_at, updated_at, deleted_at
        FROM approval_templates WHERE id=$1 AND deleted_at IS NULL`
	var template domain.ApprovalTemplate
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&template.ID,
		&template.Name,
		&template.CreatedBy,
		&template.CreatedAt,
		&template.UpdatedAt,
		&template.DeletedAt,
	); err != nil {
		return nil, notFound(err)
	}

	const stepQuery = `
        SELECT id, approval_template_id, step_order, user_id, role_id, proxy_user_id
        FROM approval_template_steps WHERE approval_template_id=$1 ORDER BY step_order`
	rows, err := r.db.Query(ctx, stepQuery, template.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var step domain.ApprovalTemplateStep
		if err := rows.Scan(
			&step.ID,
			&step.ApprovalTemplateID,
			&step.StepOrder,
			&step.UserID,
			&step.RoleID,
			&step.ProxyUserID,
		); err != nil {
			return nil, err
		}
		template.Steps = append(template.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *approvalTemplateRepository) List(ctx context.Context) ([]domain.ApprovalTemplate, error) {
	const query = `
        SELECT id, name, created_by, created_at, updated_at, deleted_at
        FROM approval_templates WHERE deleted_at IS NULL ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalTemplate
	for rows.Next() {
		var template domain.ApprovalTemplate
		if err := rows.Scan(
			&template.ID,
			&template.Name,
			&template.CreatedBy,
			&template.CreatedAt,
			&template.UpdatedAt,
			&template.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, template)
	}
	return result, rows.Err()
}

func (r *approvalTemplateRepository) SoftDelete(ctx context.Context, id int64) error {
	return requireAffected(r.db.Exec(ctx,
		`UPDATE approval_templates SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id))
}
