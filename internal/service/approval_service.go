package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/events"
	"github.com/spec-kit/itsm-ticket-service/internal/observability"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-ticket-service/pkg/util/errorutil"
)

// ApproverResolver turns a template step into the user who must act on it.
type ApproverResolver interface {
	ResolveApprover(ctx context.Context, step domain.ApprovalTemplateStep) (approverID int64, proxyID *int64, err error)
}

// DirectApproverResolver accepts steps that name a user. Role based steps are
// refused until role membership lookup exists.
type DirectApproverResolver struct{}

// ResolveApprover implements ApproverResolver.
func (DirectApproverResolver) ResolveApprover(_ context.Context, step domain.ApprovalTemplateStep) (int64, *int64, error) {
	if step.UserID != nil {
		return *step.UserID, step.ProxyUserID, nil
	}
	if step.RoleID != nil {
		return 0, nil, apperrors.NewUnimplemented("role based approver resolution is not supported")
	}
	return 0, nil, apperrors.NewValidationError("approval step has no approver", map[string]any{"step": step.StepOrder})
}

// ApprovalService runs sequential approval processes and manages templates.
type ApprovalService struct {
	uow       repository.UnitOfWork
	notes     *NoteService
	resolver  ApproverResolver
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	UnitOfWork repository.UnitOfWork
	Notes      *NoteService
	Resolver   ApproverResolver
	Publisher  events.Publisher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// TemplateStepInput describes one step of a new template.
type TemplateStepInput struct {
	StepOrder   int
	UserID      *int64
	RoleID      *int64
	ProxyUserID *int64
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	s := &ApprovalService{
		uow:       deps.UnitOfWork,
		notes:     deps.Notes,
		resolver:  deps.Resolver,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if s.notes == nil {
		s.notes = NewNoteService()
	}
	if s.resolver == nil {
		s.resolver = DirectApproverResolver{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// StartApprovalProcess instantiates the ticket's approval template. It runs on
// the caller's transaction and writes nothing when any step fails to resolve.
func (s *ApprovalService) StartApprovalProcess(ctx context.Context, store repository.Store, ticket *domain.Ticket, initiatorID int64) (*domain.ApprovalProcess, error) {
	if ticket.ApprovalTemplateID == nil {
		return nil, apperrors.NewNotFound("approval template", map[string]any{"ticket_id": ticket.ID})
	}
	template, err := store.Templates.GetWithSteps(ctx, *ticket.ApprovalTemplateID)
	if err != nil {
		return nil, mapRepoError("approval template", err)
	}
	if len(template.Steps) == 0 {
		return nil, apperrors.NewNotFound("approval template steps", map[string]any{"approval_template_id": template.ID})
	}

	process := &domain.ApprovalProcess{
		TicketID:           ticket.ID,
		ApprovalTemplateID: &template.ID,
		Status:             domain.ApprovalProcessPending,
		CurrentStep:        1,
		CreatedBy:          initiatorID,
		Steps:              make([]domain.ApprovalProcessStep, 0, len(template.Steps)),
	}
	for i, templateStep := range template.Steps {
		approverID, proxyID, err := s.resolver.ResolveApprover(ctx, templateStep)
		if err != nil {
			return nil, err
		}
		process.Steps = append(process.Steps, domain.ApprovalProcessStep{
			StepOrder:  i + 1,
			ApproverID: approverID,
			ProxyID:    proxyID,
			Status:     domain.ApprovalStepPending,
		})
	}

	if err := store.Approvals.CreateProcess(ctx, process); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("approval process already exists", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, err
	}

	if _, err := s.notes.CreateSystemEvent(ctx, store, ticket.ID, initiatorID, domain.EventApprovalSubmitted,
		map[string]any{"template_name": template.Name}); err != nil {
		return nil, err
	}
	s.metrics.RecordApprovalAction("submitted")
	return process, nil
}

// ApproveStep records an approval on the current step.
func (s *ApprovalService) ApproveStep(ctx context.Context, stepID int64, comment string, actorID int64) (*domain.ApprovalProcess, error) {
	return s.actionOnStep(ctx, stepID, comment, actorID, true)
}

// RejectStep rejects the process at the current step.
func (s *ApprovalService) RejectStep(ctx context.Context, stepID int64, comment string, actorID int64) (*domain.ApprovalProcess, error) {
	return s.actionOnStep(ctx, stepID, comment, actorID, false)
}

// stepDecision is one approver's verdict on a step.
type stepDecision struct {
	actorID int64
	comment string
	approve bool
}

func (d stepDecision) action() string {
	if d.approve {
		return "approved"
	}
	return "rejected"
}

// actionOnStep locks the ticket before the process, the same order
// ChangeStatus uses.
func (s *ApprovalService) actionOnStep(ctx context.Context, stepID int64, comment string, actorID int64, approve bool) (*domain.ApprovalProcess, error) {
	var (
		processID  int64
		ticket     *domain.Ticket
		fromStatus domain.TicketStatus
	)
	decision := stepDecision{actorID: actorID, comment: comment, approve: approve}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		step, err := store.Approvals.GetStep(ctx, stepID)
		if err != nil {
			return mapRepoError("approval step", err)
		}
		unlocked, err := store.Approvals.GetProcess(ctx, step.ApprovalProcessID)
		if err != nil {
			return mapRepoError("approval process", err)
		}
		locked, err := store.Tickets.GetByIDForUpdate(ctx, unlocked.TicketID)
		if err != nil {
			return mapRepoError("ticket", err)
		}
		process, err := store.Approvals.GetProcessForUpdate(ctx, unlocked.ID)
		if err != nil {
			return mapRepoError("approval process", err)
		}
		step = process.Step(stepID)
		if step == nil {
			return apperrors.NewNotFound("approval step", map[string]any{"step_id": stepID})
		}

		fromStatus = locked.Status
		if err := s.applyDecision(ctx, store, locked, process, step, decision); err != nil {
			return err
		}
		processID = process.ID
		ticket = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordApprovalAction(decision.action())

	process, err := s.uow.Store().Approvals.GetProcess(ctx, processID)
	if err != nil {
		return nil, mapRepoError("approval process", err)
	}

	if ticket.Status != fromStatus {
		s.metrics.RecordTransition(string(fromStatus), string(ticket.Status))
		eventType := events.EventTicketStatusChanged
		if ticket.Status.IsTerminal() {
			eventType = events.EventTicketClosed
		}
		s.publish(ctx, events.NewEvent(eventType, ticket, actorID, events.StatusChangedPayload{
			From: fromStatus,
			To:   ticket.Status,
		}))
	}
	return process, nil
}

// DecideCurrentStep approves or rejects the current step of the ticket's
// pending process on the caller's transaction. The ticket must already be
// locked. Approving is only allowed on the final step.
func (s *ApprovalService) DecideCurrentStep(ctx context.Context, store repository.Store, ticket *domain.Ticket, actorID int64, comment string, approve bool) error {
	found, err := store.Approvals.GetProcessByTicket(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewStepConflict("ticket has no approval process", map[string]any{"ticket_id": ticket.ID})
		}
		return err
	}
	process, err := store.Approvals.GetProcessForUpdate(ctx, found.ID)
	if err != nil {
		return mapRepoError("approval process", err)
	}
	step := process.CurrentStepEntry()
	if process.Status != domain.ApprovalProcessPending || step == nil {
		return apperrors.NewStepConflict("approval process is not pending", map[string]any{"process_status": string(process.Status)})
	}
	if !step.CanAct(actorID) {
		return apperrors.NewPermissionDenied("only the " + domain.ActorCurrentApprover.String() + " may make this transition")
	}
	if approve && !process.IsLastStep(step.StepOrder) {
		return apperrors.NewStepConflict("later approval steps are still pending", map[string]any{
			"current_step": process.CurrentStep,
			"steps":        len(process.Steps),
		})
	}
	return s.applyDecision(ctx, store, ticket, process, step, stepDecision{actorID: actorID, comment: comment, approve: approve})
}

// applyDecision records the decision on step and cascades it to the process
// and ticket. A reject closes every step still pending so a terminal process
// never has one left.
func (s *ApprovalService) applyDecision(ctx context.Context, store repository.Store, ticket *domain.Ticket, process *domain.ApprovalProcess, step *domain.ApprovalProcessStep, d stepDecision) error {
	if !step.CanAct(d.actorID) {
		return apperrors.NewPermissionDenied("user is not the approver for this step")
	}
	details := map[string]any{"step_id": step.ID, "step_status": string(step.Status), "current_step": process.CurrentStep}
	if ticket.Status != domain.TicketStatusWaitingApproval {
		details["ticket_status"] = string(ticket.Status)
		return apperrors.NewStepConflict("ticket is not awaiting approval", details)
	}
	if step.Status != domain.ApprovalStepPending || process.Status != domain.ApprovalProcessPending {
		return apperrors.NewStepConflict("approval step has already been actioned", details)
	}
	if step.StepOrder != process.CurrentStep {
		return apperrors.NewStepConflict("approval step is not the current step", details)
	}

	now := s.now()
	step.ActedBy = &d.actorID
	step.ActionAt = &now
	if text := strings.TrimSpace(d.comment); text != "" {
		step.Comment = &text
	}

	fromStatus := ticket.Status
	noteType := domain.EventApprovalApproved
	if d.approve {
		step.Status = domain.ApprovalStepApproved
		if process.IsLastStep(step.StepOrder) {
			process.Status = domain.ApprovalProcessApproved
			ticket.Status = domain.TicketStatusOpen
		} else {
			process.CurrentStep++
		}
	} else {
		step.Status = domain.ApprovalStepRejected
		process.Status = domain.ApprovalProcessRejected
		ticket.Status = domain.TicketStatusRejected
		noteType = domain.EventApprovalRejected
	}

	if err := store.Approvals.UpdateStep(ctx, step); err != nil {
		return err
	}
	if !d.approve {
		for i := range process.Steps {
			later := &process.Steps[i]
			if later.ID == step.ID || later.Status != domain.ApprovalStepPending {
				continue
			}
			later.Status = domain.ApprovalStepRejected
			if err := store.Approvals.UpdateStep(ctx, later); err != nil {
				return err
			}
		}
	}
	if err := store.Approvals.UpdateProcess(ctx, process); err != nil {
		return err
	}
	if ticket.Status != fromStatus {
		ticket.UpdatedBy = &d.actorID
		if err := store.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
	}

	var noteComment any
	if step.Comment != nil {
		noteComment = *step.Comment
	}
	_, err := s.notes.CreateSystemEvent(ctx, store, ticket.ID, d.actorID, noteType, map[string]any{
		"step":        step.StepOrder,
		"approver_id": d.actorID,
		"comment":     noteComment,
	})
	return err
}

// GetProcessForTicket returns the ticket's approval process if the caller may
// read the ticket.
func (s *ApprovalService) GetProcessForTicket(ctx context.Context, callerID, ticketID int64) (*domain.ApprovalProcess, error) {
	store := s.uow.Store()
	if _, err := loadTicket(ctx, store, ticketID, callerID, false); err != nil {
		return nil, err
	}
	process, err := store.Approvals.GetProcessByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError("approval process", err)
	}
	return process, nil
}

// CreateTemplate stores a template. Each step names exactly one of a user or a
// role, and step orders are unique positive integers.
func (s *ApprovalService) CreateTemplate(ctx context.Context, creatorID int64, name string, steps []TemplateStepInput) (*domain.ApprovalTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("template name is required", map[string]any{"field": "name"})
	}
	if len(steps) == 0 {
		return nil, apperrors.NewValidationError("template needs at least one step", map[string]any{"field": "steps"})
	}

	seen := make(map[int]struct{}, len(steps))
	template := &domain.ApprovalTemplate{Name: name, CreatedBy: creatorID}
	for _, step := range steps {
		if step.StepOrder <= 0 {
			return nil, apperrors.NewValidationError("step order must be positive", map[string]any{"step_order": step.StepOrder})
		}
		if _, dup := seen[step.StepOrder]; dup {
			return nil, apperrors.NewValidationError("step order must be unique", map[string]any{"step_order": step.StepOrder})
		}
		seen[step.StepOrder] = struct{}{}
		if (step.UserID == nil) == (step.RoleID == nil) {
			return nil, apperrors.NewValidationError("step must name exactly one of user_id or role_id", map[string]any{"step_order": step.StepOrder})
		}
		template.Steps = append(template.Steps, domain.ApprovalTemplateStep{
			StepOrder:   step.StepOrder,
			UserID:      step.UserID,
			RoleID:      step.RoleID,
			ProxyUserID: step.ProxyUserID,
		})
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		return store.Templates.Create(ctx, template)
	})
	if err != nil {
		return nil, mapRepoError("approval template", err)
	}
	return s.GetTemplate(ctx, template.ID)
}

// GetTemplate returns a template with its ordered steps.
func (s *ApprovalService) GetTemplate(ctx context.Context, id int64) (*domain.ApprovalTemplate, error) {
	template, err := s.uow.Store().Templates.GetWithSteps(ctx, id)
	if err != nil {
		return nil, mapRepoError("approval template", err)
	}
	return template, nil
}

// ListTemplates returns every live template.
func (s *ApprovalService) ListTemplates(ctx context.Context) ([]domain.ApprovalTemplate, error) {
	return s.uow.Store().Templates.List(ctx)
}

// DeleteTemplate soft deletes a template. Only its creator may do so.
func (s *ApprovalService) DeleteTemplate(ctx context.Context, callerID, id int64) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		template, err := store.Templates.GetWithSteps(ctx, id)
		if err != nil {
			return mapRepoError("approval template", err)
		}
		if template.CreatedBy != callerID {
			return apperrors.NewPermissionDenied("only the template creator may delete it")
		}
		return mapRepoError("approval template", store.Templates.SoftDelete(ctx, id))
	})
}

func (s *ApprovalService) publish(ctx context.Context, event events.Event) {
	dispatch(ctx, s.publisher, s.logger, event)
}
