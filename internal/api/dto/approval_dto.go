package dto

import (
	"time"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// ApprovalActionRequest carries the approver's optional comment.
type ApprovalActionRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// CreateTemplateRequest payload.
type CreateTemplateRequest struct {
	Name  string                `json:"name" validate:"required,max=255"`
	Steps []TemplateStepRequest `json:"steps" validate:"required,min=1,dive"`
}

// TemplateStepRequest names one approver. Exactly one of user_id and role_id
// must be given.
type TemplateStepRequest struct {
	StepOrder   int    `json:"step_order" validate:"required,gt=0"`
	UserID      *int64 `json:"user_id" validate:"omitempty,gt=0"`
	RoleID      *int64 `json:"role_id" validate:"omitempty,gt=0"`
	ProxyUserID *int64 `json:"proxy_user_id" validate:"omitempty,gt=0"`
}

// TemplateResponse renders an approval template.
type TemplateResponse struct {
	ID        int64                  `json:"id"`
	Name      string                 `json:"name"`
	CreatedBy int64                  `json:"created_by"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Steps     []TemplateStepResponse `json:"steps,omitempty"`
}

// TemplateStepResponse renders one template step.
type TemplateStepResponse struct {
	ID          int64  `json:"id"`
	StepOrder   int    `json:"step_order"`
	UserID      *int64 `json:"user_id"`
	RoleID      *int64 `json:"role_id"`
	ProxyUserID *int64 `json:"proxy_user_id"`
}

// ApprovalProcessResponse renders live approval state.
type ApprovalProcessResponse struct {
	ID                 int64                        `json:"id"`
	TicketID           int64                        `json:"ticket_id"`
	ApprovalTemplateID *int64                       `json:"approval_template_id"`
	Status             domain.ApprovalProcessStatus `json:"status"`
	CurrentStep        int                          `json:"current_step"`
	CreatedBy          int64                        `json:"created_by"`
	CreatedAt          time.Time                    `json:"created_at"`
	UpdatedAt          time.Time                    `json:"updated_at"`
	Steps              []ApprovalStepResponse       `json:"steps"`
}

// ApprovalStepResponse renders one process step.
type ApprovalStepResponse struct {
	ID         int64                     `json:"id"`
	StepOrder  int                       `json:"step_order"`
	ApproverID int64                     `json:"approver_id"`
	ProxyID    *int64                    `json:"proxy_id"`
	Status     domain.ApprovalStepStatus `json:"status"`
	ActedBy    *int64                    `json:"acted_by"`
	ActionAt   *time.Time                `json:"action_at"`
	Comment    *string                   `json:"comment"`
}
