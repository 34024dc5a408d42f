package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// ApprovalRepository persists approval processes and their steps.
type ApprovalRepository interface {
	// CreateProcess inserts the process and every step, assigning ids.
	CreateProcess(ctx context.Context, process *domain.ApprovalProcess) error
	UpdateProcess(ctx context.Context, process *domain.ApprovalProcess) error
	UpdateStep(ctx context.Context, step *domain.ApprovalProcessStep) error
	GetProcess(ctx context.Context, id int64) (*domain.ApprovalProcess, error)
	GetProcessForUpdate(ctx context.Context, id int64) (*domain.ApprovalProcess, error)
	GetProcessByTicket(ctx context.Context, ticketID int64) (*domain.ApprovalProcess, error)
	// GetStep reads a step without locking it. Callers that act on the step
	// lock its ticket and process first.
	GetStep(ctx context.Context, stepID int64) (*domain.ApprovalProcessStep, error)
}

type approvalRepository struct {
	db DBTX
}

// NewApprovalRepository constructs repository.
func NewApprovalRepository(db DBTX) ApprovalRepository {
	return &approvalRepository{db: db}
}

const (
	processColumns = `id, ticket_id, approval_template_id, status, current_step, created_by, created_at, updated_at`
	stepColumns    = `id, approval_process_id, step_order, approver_id, proxy_id, status, acted_by, action_at, comment,
               created_at, updated_at`
)

func (r *approvalRepository) CreateProcess(ctx context.Context, process *domain.ApprovalProcess) error {
	const processQuery = `
        INSERT INTO approval_processes (ticket_id, approval_template_id, status, current_step, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, processQuery,
		process.TicketID,
		process.ApprovalTemplateID,
		process.Status,
		process.CurrentStep,
		process.CreatedBy,
	).Scan(&process.ID, &process.CreatedAt, &process.UpdatedAt); err != nil {
		return mapWriteError(err)
	}

	const stepQuery = `
        INSERT INTO approval_process_steps (approval_process_id, step_order, approver_id, proxy_id, status, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	for i := range process.Steps {
		step := &process.Steps[i]
		step.ApprovalProcessID = process.ID
		if err := r.db.QueryRow(ctx, stepQuery,
			step.ApprovalProcessID,
			step.StepOrder,
			step.ApproverID,
			step.ProxyID,
			step.Status,
			process.CreatedBy,
		).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt); err != nil {
			return mapWriteError(err)
		}
	}
	return nil
}

func (r *approvalRepository) UpdateProcess(ctx context.Context, process *domain.ApprovalProcess) error {
	const query = `UPDATE approval_processes SET status=$1, current_step=$2, updated_at=NOW() WHERE id=$3`
	return requireAffected(r.db.Exec(ctx, query, process.Status, process.CurrentStep, process.ID))
}

func (r *approvalRepository) UpdateStep(ctx context.Context, step *domain.ApprovalProcessStep) error {
	const query = `
        UPDATE approval_process_steps SET status=$1, acted_by=$2, action_at=$3, comment=$4, updated_at=NOW()
        WHERE id=$5`
	return requireAffected(r.db.Exec(ctx, query, step.Status, step.ActedBy, step.ActionAt, step.Comment, step.ID))
}

func (r *approvalRepository) GetProcess(ctx context.Context, id int64) (*domain.ApprovalProcess, error) {
	return r.fetchProcess(ctx, `SELECT `+processColumns+` FROM approval_processes WHERE id=$1`, id)
}

func (r *approvalRepository) GetProcessForUpdate(ctx context.Context, id int64) (*domain.ApprovalProcess, error) {
	return r.fetchProcess(ctx, `SELECT `+processColumns+` FROM approval_processes WHERE id=$1 FOR UPDATE`, id)
}

func (r *approvalRepository) GetProcessByTicket(ctx context.Context, ticketID int64) (*domain.ApprovalProcess, error) {
	return r.fetchProcess(ctx, `SELECT `+processColumns+` FROM approval_processes WHERE ticket_id=$1`, ticketID)
}

func (r *approvalRepository) GetStep(ctx context.Context, stepID int64) (*domain.ApprovalProcessStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_process_steps WHERE id=$1`
	step, err := scanStep(r.db.QueryRow(ctx, query, stepID))
	if err != nil {
		return nil, notFound(err)
	}
	return step, nil
}

func (r *approvalRepository) fetchProcess(ctx context.Context, query string, arg any) (*domain.ApprovalProcess, error) {
	var process domain.ApprovalProcess
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&process.ID,
		&process.TicketID,
		&process.ApprovalTemplateID,
		&process.Status,
		&process.CurrentStep,
		&process.CreatedBy,
		&process.CreatedAt,
		&process.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+stepColumns+` FROM approval_process_steps WHERE approval_process_id=$1 ORDER BY step_order`, process.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		process.Steps = append(process.Steps, *step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &process, nil
}

func scanStep(row pgx.Row) (*domain.ApprovalProcessStep, error) {
	var step domain.ApprovalProcessStep
	if err := row.Scan(
		&step.ID,
		&step.ApprovalProcessID,
		&step.StepOrder,
		&step.ApproverID,
		&step.ProxyID,
		&step.Status,
		&step.ActedBy,
		&step.ActionAt,
		&step.Comment,
		&step.CreatedAt,
		&step.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &step, nil
}
