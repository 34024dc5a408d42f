package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsm-ticket-service/internal/api/dto"
	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/service"
)

// ApprovalsHandler serves approval step actions and template management.
type ApprovalsHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvals *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{approvals: approvals}
}

// ApproveStep POST /approvals/process-steps/:step_id/approve.
func (h *ApprovalsHandler) ApproveStep(c *fiber.Ctx) error {
	return h.act(c, h.approvals.ApproveStep)
}

// RejectStep POST /approvals/process-steps/:step_id/reject.
func (h *ApprovalsHandler) RejectStep(c *fiber.Ctx) error {
	return h.act(c, h.approvals.RejectStep)
}

type stepAction = func(ctx context.Context, stepID int64, comment string, actorID int64) (*domain.ApprovalProcess, error)

func (h *ApprovalsHandler) act(c *fiber.Ctx, action stepAction) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	stepID, err := pathID(c, "step_id")
	if err != nil {
		return err
	}
	var req dto.ApprovalActionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		return err
	}
	process, err := action(c.UserContext(), stepID, req.Comment, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": processResponse(process)})
}

// CreateTemplate POST /approval-templates.
func (h *ApprovalsHandler) CreateTemplate(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.CreateTemplateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	steps := make([]service.TemplateStepInput, 0, len(req.Steps))
	for _, step := range req.Steps {
		steps = append(steps, service.TemplateStepInput{
			StepOrder:   step.StepOrder,
			UserID:      step.UserID,
			RoleID:      step.RoleID,
			ProxyUserID: step.ProxyUserID,
		})
	}
	template, err := h.approvals.CreateTemplate(c.UserContext(), userID, req.Name, steps)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": templateResponse(template)})
}

// ListTemplates GET /approval-templates.
func (h *ApprovalsHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.approvals.ListTemplates(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, templateResponse(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTemplate GET /approval-templates/:id.
func (h *ApprovalsHandler) GetTemplate(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	template, err := h.approvals.GetTemplate(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(template)})
}

// DeleteTemplate DELETE /approval-templates/:id.
func (h *ApprovalsHandler) DeleteTemplate(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.approvals.DeleteTemplate(c.UserContext(), userID, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
