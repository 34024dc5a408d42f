package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/events"
	"github.com/spec-kit/itsm-ticket-service/internal/observability"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-ticket-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	previewLength   = 120
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	uow        repository.UnitOfWork
	notes      *NoteService
	approvals  *ApprovalService
	publisher  events.Publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	ticketNoFn func(time.Time) string
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	UnitOfWork repository.UnitOfWork
	Notes      *NoteService
	Approvals  *ApprovalService
	Publisher  events.Publisher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
	// TicketNumbers overrides ticket number generation.
	TicketNumbers func(time.Time) string
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title              string
	Description        *string
	Priority           domain.TicketPriority
	Visibility         domain.TicketVisibility
	AssignedTo         *int64
	ApprovalTemplateID *int64
	TicketTemplateID   *int64
	CustomFields       map[string]any
	DueDate            *time.Time
	LabelIDs           []int64
	CategoryIDs        []int64
}

// Optional distinguishes an absent patch field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a set Optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// TicketPatch lists the fields a partial update may touch. Status is changed
// only through ChangeStatus.
type TicketPatch struct {
	Title        Optional[string]
	Description  Optional[string]
	AssignedTo   Optional[int64]
	Priority     Optional[domain.TicketPriority]
	DueDate      Optional[time.Time]
	LabelIDs     Optional[[]int64]
	CategoryIDs  Optional[[]int64]
	CustomFields Optional[map[string]any]
}

// ChangeStatusInput requests a lifecycle transition.
type ChangeStatusInput struct {
	Status domain.TicketStatus
	Reason string
}

// AttachmentInput defines attachment metadata.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		uow:        deps.UnitOfWork,
		notes:      deps.Notes,
		approvals:  deps.Approvals,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
		ticketNoFn: deps.TicketNumbers,
	}
	if s.notes == nil {
		s.notes = NewNoteService()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.ticketNoFn == nil {
		s.ticketNoFn = generateTicketNo
	}
	if s.approvals == nil {
		s.approvals = NewApprovalService(ApprovalDependencies{
			UnitOfWork: deps.UnitOfWork,
			Notes:      s.notes,
			Publisher:  deps.Publisher,
			Metrics:    deps.Metrics,
			Logger:     s.logger,
			Now:        s.now,
		})
	}
	return s
}

// CreateTicket stores a draft ticket. A ticket number collision is retried
// once with a fresh number.
func (s *TicketService) CreateTicket(ctx context.Context, creatorID int64, input CreateTicketInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = domain.TicketVisibilityInternal
	}
	if !visibility.Valid() {
		return nil, apperrors.NewValidationError("unknown visibility", map[string]any{"visibility": string(visibility)})
	}

	var ticketID int64
	create := func(ticketNo string) error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
			if err := ensureLabels(ctx, store, input.LabelIDs); err != nil {
				return err
			}
			if err := ensureCategories(ctx, store, input.CategoryIDs); err != nil {
				return err
			}
			ticket := &domain.Ticket{
				TicketNo:           ticketNo,
				Title:              title,
				Description:        trimmedOrNil(input.Description),
				Status:             domain.TicketStatusDraft,
				Priority:           priority,
				Visibility:         visibility,
				AssignedTo:         input.AssignedTo,
				CreatedBy:          creatorID,
				ApprovalTemplateID: input.ApprovalTemplateID,
				TicketTemplateID:   input.TicketTemplateID,
				CustomFields:       input.CustomFields,
				DueDate:            input.DueDate,
			}
			if err := store.Tickets.Create(ctx, ticket); err != nil {
				return err
			}
			if err := store.Tickets.SetLabels(ctx, ticket.ID, dedupe(input.LabelIDs)); err != nil {
				return err
			}
			if err := store.Tickets.SetCategories(ctx, ticket.ID, dedupe(input.CategoryIDs)); err != nil {
				return err
			}
			ticketID = ticket.ID
			return nil
		})
	}

	err := create(s.ticketNoFn(s.now()))
	if errors.Is(err, repository.ErrDuplicate) {
		s.logger.Info("ticket number collision, retrying")
		err = create(s.ticketNoFn(s.now()))
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.NewConflict("could not allocate a unique ticket number", nil)
	}
	if err != nil {
		return nil, err
	}

	ticket, err := s.hydrate(ctx, s.uow.Store(), ticketID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventTicketCreated, ticket, creatorID, nil))
	return ticket, nil
}

// GetTicket returns a ticket with labels, categories and approval process.
func (s *TicketService) GetTicket(ctx context.Context, callerID, ticketID int64) (*domain.Ticket, error) {
	store := s.uow.Store()
	if _, err := loadTicket(ctx, store, ticketID, callerID, false); err != nil {
		return nil, err
	}
	return s.hydrate(ctx, store, ticketID)
}

// GetTicketByNumber looks a ticket up by its human readable number.
func (s *TicketService) GetTicketByNumber(ctx context.Context, callerID int64, ticketNo string) (*domain.Ticket, error) {
	store := s.uow.Store()
	ticket, err := store.Tickets.GetByTicketNo(ctx, strings.TrimSpace(ticketNo))
	if err != nil {
		return nil, mapRepoError("ticket", err)
	}
	if err := authorizeRead(ctx, store, ticket, callerID); err != nil {
		return nil, err
	}
	return s.hydrate(ctx, store, ticket.ID)
}

// SearchTickets lists the tickets visible to the caller.
func (s *TicketService) SearchTickets(ctx context.Context, callerID int64, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	filter.ViewerID = callerID
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, 0, apperrors.NewValidationError("unknown status", map[string]any{"status": string(status)})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, 0, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
		}
	}

	store := s.uow.Store()
	items, total, err := store.Tickets.Search(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		if err := store.Tickets.LoadRelations(ctx, &items[i]); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// Stats counts the caller's visible tickets by status and priority.
func (s *TicketService) Stats(ctx context.Context, callerID int64) (*repository.TicketStats, error) {
	return s.uow.Store().Tickets.Stats(ctx, callerID)
}

// ChangeStatus moves a ticket along one lifecycle edge. Entering
// waiting_approval starts the approval process in the same transaction, and
// leaving it decides the current approval step.
func (s *TicketService) ChangeStatus(ctx context.Context, callerID, ticketID int64, input ChangeStatusInput) (*domain.Ticket, error) {
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(input.Status)})
	}
	reason := strings.TrimSpace(input.Reason)

	var (
		from         domain.TicketStatus
		approverEdge bool
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := loadTicket(ctx, store, ticketID, callerID, true)
		if err != nil {
			return err
		}
		from = ticket.Status

		actor, ok := domain.TransitionActorFor(from, input.Status)
		if !ok {
			return apperrors.NewInvalidTransition(string(from), string(input.Status))
		}
		if actor == domain.ActorCurrentApprover {
			// The approver's edges are step decisions; the engine moves the ticket.
			approverEdge = true
			if err := s.approvals.DecideCurrentStep(ctx, store, ticket, callerID, reason, input.Status == domain.TicketStatusOpen); err != nil {
				return err
			}
		} else {
			if err := authorizeTransition(ticket, actor, callerID); err != nil {
				return err
			}
			if input.Status == domain.TicketStatusWaitingApproval {
				if _, err := s.approvals.StartApprovalProcess(ctx, store, ticket, callerID); err != nil {
					return err
				}
			}
			ticket.Status = input.Status
			ticket.UpdatedBy = &callerID
			if err := store.Tickets.Update(ctx, ticket); err != nil {
				return err
			}
		}

		details := map[string]any{"from": string(from), "to": string(input.Status), "reason": nil}
		if reason != "" {
			details["reason"] = reason
		}
		_, err = s.notes.CreateSystemEvent(ctx, store, ticket.ID, callerID, domain.EventStatusChange, details)
		return err
	})
	if err != nil {
		return nil, err
	}
	switch {
	case approverEdge && input.Status == domain.TicketStatusOpen:
		s.metrics.RecordApprovalAction("approved")
	case approverEdge:
		s.metrics.RecordApprovalAction("rejected")
	}
	s.metrics.RecordTransition(string(from), string(input.Status))

	ticket, err := s.hydrate(ctx, s.uow.Store(), ticketID)
	if err != nil {
		return nil, err
	}
	eventType := events.EventTicketStatusChanged
	if input.Status.IsTerminal() {
		eventType = events.EventTicketClosed
	}
	s.publish(ctx, events.NewEvent(eventType, ticket, callerID, events.StatusChangedPayload{
		From:   from,
		To:     input.Status,
		Reason: reason,
	}))
	return ticket, nil
}

func authorizeTransition(ticket *domain.Ticket, actor domain.TransitionActor, callerID int64) error {
	switch actor {
	case domain.ActorCreator:
		if ticket.IsCreator(callerID) {
			return nil
		}
	case domain.ActorAssignee:
		if ticket.IsAssignee(callerID) {
			return nil
		}
	}
	return apperrors.NewPermissionDenied("only the " + actor.String() + " may make this transition")
}

// UpdateTicket applies a partial update. Every changed field is recorded as
// its own note; a patch that changes nothing writes nothing.
func (s *TicketService) UpdateTicket(ctx context.Context, callerID, ticketID int64, patch TicketPatch) (*domain.Ticket, error) {
	if patch.Title.Set && (patch.Title.Value == nil || strings.TrimSpace(*patch.Title.Value) == "") {
		return nil, apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
	}
	if patch.Priority.Set && (patch.Priority.Value == nil || !patch.Priority.Value.Valid()) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
	}

	var (
		assigneeChanged bool
		assigneeFrom    *int64
		assigneeTo      *int64
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := loadTicket(ctx, store, ticketID, callerID, true)
		if err != nil {
			return err
		}
		if !ticket.IsCreator(callerID) {
			return apperrors.NewPermissionDenied("only the ticket creator may update it")
		}
		if ticket.Status == domain.TicketStatusClosed || ticket.Status == domain.TicketStatusCancelled {
			return apperrors.NewInvalidState("ticket can no longer be updated", map[string]any{"status": string(ticket.Status)})
		}
		if err := store.Tickets.LoadRelations(ctx, ticket); err != nil {
			return err
		}

		diff := ticketDiff{}
		fieldsChanged := false

		if patch.Title.Set {
			title := strings.TrimSpace(*patch.Title.Value)
			if title != ticket.Title {
				diff.add(domain.EventTitleChange, map[string]any{"from": ticket.Title, "to": title})
				ticket.Title = title
				fieldsChanged = true
			}
		}
		if patch.Description.Set {
			description := trimmedOrNil(patch.Description.Value)
			if !equalPtr(description, ticket.Description) {
				diff.add(domain.EventDescriptionChange, map[string]any{"from": derefOrNil(ticket.Description), "to": derefOrNil(description)})
				ticket.Description = description
				fieldsChanged = true
			}
		}
		if patch.AssignedTo.Set && !equalPtr(patch.AssignedTo.Value, ticket.AssignedTo) {
			diff.add(domain.EventAssignedToChange, map[string]any{"from": derefOrNil(ticket.AssignedTo), "to": derefOrNil(patch.AssignedTo.Value)})
			assigneeChanged = true
			assigneeFrom = ticket.AssignedTo
			assigneeTo = patch.AssignedTo.Value
			ticket.AssignedTo = patch.AssignedTo.Value
			fieldsChanged = true
		}
		if patch.Priority.Set && *patch.Priority.Value != ticket.Priority {
			diff.add(domain.EventPriorityChange, map[string]any{"from": string(ticket.Priority), "to": string(*patch.Priority.Value)})
			ticket.Priority = *patch.Priority.Value
			fieldsChanged = true
		}
		if patch.DueDate.Set && !equalTime(patch.DueDate.Value, ticket.DueDate) {
			diff.add(domain.EventDueDateChange, map[string]any{"from": formatTime(ticket.DueDate), "to": formatTime(patch.DueDate.Value)})
			ticket.DueDate = patch.DueDate.Value
			fieldsChanged = true
		}
		if patch.CustomFields.Set {
			var fields map[string]any
			if patch.CustomFields.Value != nil {
				fields = *patch.CustomFields.Value
			}
			if !sameCustomFields(fields, ticket.CustomFields) {
				ticket.CustomFields = fields
				fieldsChanged = true
			}
		}

		relationsChanged := false
		if patch.LabelIDs.Set {
			var wanted []int64
			if patch.LabelIDs.Value != nil {
				wanted = dedupe(*patch.LabelIDs.Value)
			}
			labels, err := loadLabels(ctx, store, wanted)
			if err != nil {
				return err
			}
			added, removed := diffLabels(ticket.Labels, labels)
			for _, label := range added {
				diff.add(domain.EventLabelAdd, map[string]any{"label_id": label.ID, "label_name": label.Name})
			}
			for _, label := range removed {
				diff.add(domain.EventLabelRemove, map[string]any{"label_id": label.ID, "label_name": label.Name})
			}
			if len(added) > 0 || len(removed) > 0 {
				if err := store.Tickets.SetLabels(ctx, ticket.ID, wanted); err != nil {
					return err
				}
				relationsChanged = true
			}
		}

		if patch.CategoryIDs.Set {
			var wanted []int64
			if patch.CategoryIDs.Value != nil {
				wanted = dedupe(*patch.CategoryIDs.Value)
			}
			if err := ensureCategories(ctx, store, wanted); err != nil {
				return err
			}
			if !sameIDs(ticket.CategoryIDs(), wanted) {
				if err := store.Tickets.SetCategories(ctx, ticket.ID, wanted); err != nil {
					return err
				}
				relationsChanged = true
			}
		}

		if !fieldsChanged && !relationsChanged {
			return nil
		}
		ticket.UpdatedBy = &callerID
		if err := store.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		for _, entry := range diff {
			if _, err := s.notes.CreateSystemEvent(ctx, store, ticket.ID, callerID, entry.eventType, entry.details); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.hydrate(ctx, s.uow.Store(), ticketID)
	if err != nil {
		return nil, err
	}
	if assigneeChanged {
		s.publish(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket, callerID, events.AssigneeChangedPayload{
			From: assigneeFrom,
			To:   assigneeTo,
		}))
	}
	return ticket, nil
}

// DeleteTicket soft deletes a ticket. Tickets being worked on or awaiting
// approval cannot be deleted.
func (s *TicketService) DeleteTicket(ctx context.Context, callerID, ticketID int64) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := loadTicket(ctx, store, ticketID, callerID, true)
		if err != nil {
			return err
		}
		if !ticket.IsCreator(callerID) {
			return apperrors.NewPermissionDenied("only the ticket creator may delete it")
		}
		if ticket.Status == domain.TicketStatusInProgress || ticket.Status == domain.TicketStatusWaitingApproval {
			return apperrors.NewInvalidState("ticket cannot be deleted in its current status", map[string]any{"status": string(ticket.Status)})
		}
		return mapRepoError("ticket", store.Tickets.SoftDelete(ctx, ticketID, callerID))
	})
}

// GrantViewer lets a user read a restricted ticket.
func (s *TicketService) GrantViewer(ctx context.Context, callerID, ticketID, userID int64) (*domain.TicketViewPermission, error) {
	if userID <= 0 {
		return nil, apperrors.NewValidationError("user_id must be positive", map[string]any{"field": "user_id"})
	}
	permission := &domain.TicketViewPermission{TicketID: ticketID, UserID: userID, CreatedBy: callerID}
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := loadTicket(ctx, store, ticketID, callerID, true)
		if err != nil {
			return err
		}
		if !ticket.IsCreator(callerID) {
			return apperrors.NewPermissionDenied("only the ticket creator may share it")
		}
		return store.ViewPermissions.Grant(ctx, permission)
	})
	if err != nil {
		return nil, err
	}
	return permission, nil
}

// ListViewers returns explicit viewer grants of a ticket.
func (s *TicketService) ListViewers(ctx context.Context, callerID, ticketID int64) ([]domain.TicketViewPermission, error) {
	store := s.uow.Store()
	if _, err := loadTicket(ctx, store, ticketID, callerID, false); err != nil {
		return nil, err
	}
	return store.ViewPermissions.ListByTicket(ctx, ticketID)
}

// AddComment appends a user note to the ticket timeline.
func (s *TicketService) AddComment(ctx context.Context, callerID, ticketID int64, text string) (*domain.Note, error) {
	var note *domain.Note
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if _, err := loadTicket(ctx, store, ticketID, callerID, false); err != nil {
			return err
		}
		var err error
		note, err = s.notes.CreateUserNote(ctx, store, ticketID, text, callerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ticket, err := s.uow.Store().Tickets.GetByID(ctx, ticketID); err == nil {
		s.publish(ctx, events.NewEvent(events.EventTicketCommented, ticket, callerID, events.CommentAddedPayload{
			NoteID:  note.ID,
			Preview: stringPreview(*note.Note, previewLength),
		}))
	}
	return note, nil
}

// ListNotes returns the ticket timeline ordered by creation time.
func (s *TicketService) ListNotes(ctx context.Context, callerID, ticketID int64) ([]domain.Note, error) {
	store := s.uow.Store()
	if _, err := loadTicket(ctx, store, ticketID, callerID, false); err != nil {
		return nil, err
	}
	return store.Notes.ListByTicket(ctx, ticketID)
}

// AddAttachment registers uploaded file metadata against a ticket.
func (s *TicketService) AddAttachment(ctx context.Context, callerID, ticketID int64, input AttachmentInput) (*domain.Attachment, error) {
	input.StorageKey = strings.TrimSpace(input.StorageKey)
	input.FileName = strings.TrimSpace(input.FileName)
	if input.StorageKey == "" || input.FileName == "" {
		return nil, apperrors.NewValidationError("storage_key and file_name are required", nil)
	}
	if input.SizeBytes < 0 {
		return nil, apperrors.NewValidationError("size_bytes must not be negative", map[string]any{"field": "size_bytes"})
	}

	var attachmentID int64
	err := s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := loadTicket(ctx, store, ticketID, callerID, true)
		if err != nil {
			return err
		}
		if !ticket.IsCreator(callerID) && !ticket.IsAssignee(callerID) {
			return apperrors.NewPermissionDenied("only the creator or assignee may attach files")
		}
		attachment := &domain.Attachment{
			TicketID:   ticketID,
			StorageKey: input.StorageKey,
			FileName:   input.FileName,
			MimeType:   input.MimeType,
			SizeBytes:  input.SizeBytes,
			UploadedBy: callerID,
		}
		if err := store.Attachments.Create(ctx, attachment); err != nil {
			return err
		}
		note, err := s.notes.CreateSystemEvent(ctx, store, ticketID, callerID, domain.EventAttachmentAdd, map[string]any{
			"attachment_id": attachment.ID,
			"file_name":     attachment.FileName,
		})
		if err != nil {
			return err
		}
		attachmentID = attachment.ID
		return store.Attachments.AttachToNote(ctx, attachment.ID, note.ID)
	})
	if err != nil {
		return nil, err
	}
	attachment, err := s.uow.Store().Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, mapRepoError("attachment", err)
	}
	return attachment, nil
}

// ListAttachments returns the live attachments of a ticket.
func (s *TicketService) ListAttachments(ctx context.Context, callerID, ticketID int64) ([]domain.Attachment, error) {
	store := s.uow.Store()
	if _, err := loadTicket(ctx, store, ticketID, callerID, false); err != nil {
		return nil, err
	}
	return store.Attachments.ListByTicket(ctx, ticketID)
}

// RemoveAttachment soft deletes attachment metadata.
func (s *TicketService) RemoveAttachment(ctx context.Context, callerID, ticketID, attachmentID int64) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := loadTicket(ctx, store, ticketID, callerID, true)
		if err != nil {
			return err
		}
		if !ticket.IsCreator(callerID) && !ticket.IsAssignee(callerID) {
			return apperrors.NewPermissionDenied("only the creator or assignee may remove files")
		}
		attachment, err := store.Attachments.GetByID(ctx, attachmentID)
		if err != nil {
			return mapRepoError("attachment", err)
		}
		if attachment.TicketID != ticketID {
			return apperrors.NewNotFound("attachment", map[string]any{"ticket_id": ticketID})
		}
		if err := store.Attachments.SoftDelete(ctx, attachmentID); err != nil {
			return mapRepoError("attachment", err)
		}
		_, err = s.notes.CreateSystemEvent(ctx, store, ticketID, callerID, domain.EventAttachmentRemove, map[string]any{
			"attachment_id": attachment.ID,
			"file_name":     attachment.FileName,
		})
		return err
	})
}

// hydrate reloads a ticket with its labels, categories and approval process.
func (s *TicketService) hydrate(ctx context.Context, store repository.Store, ticketID int64) (*domain.Ticket, error) {
	ticket, err := store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError("ticket", err)
	}
	if err := store.Tickets.LoadRelations(ctx, ticket); err != nil {
		return nil, err
	}
	process, err := store.Approvals.GetProcessByTicket(ctx, ticketID)
	switch {
	case err == nil:
		ticket.ApprovalProcess = process
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	dispatch(ctx, s.publisher, s.logger, event)
}

func dispatch(ctx context.Context, publisher events.Publisher, logger *zap.Logger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("notification dispatch failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.Ticket.ID),
			zap.Error(err))
	}
}

// generateTicketNo returns TK, the UTC date and six upper-case hex digits.
func generateTicketNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "TK" + now.UTC().Format("20060102") + suffix
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
