package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsm-ticket-service/internal/api/dto"
	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	"github.com/spec-kit/itsm-ticket-service/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TicketsHandler serves ticket endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	approvals *service.ApprovalService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, approvals *service.ApprovalService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, approvals: approvals}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), userID, service.CreateTicketInput{
		Title:              req.Title,
		Description:        req.Description,
		Priority:           req.Priority,
		Visibility:         req.Visibility,
		AssignedTo:         req.AssignedTo,
		ApprovalTemplateID: req.ApprovalTemplateID,
		TicketTemplateID:   req.TicketTemplateID,
		CustomFields:       req.CustomFields,
		DueDate:            req.DueDate,
		LabelIDs:           req.LabelIDs,
		CategoryIDs:        req.CategoryIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// SearchTickets GET /tickets.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	page := queryInt(c, "page", 1)
	size := min(queryInt(c, "size", defaultPageSize), maxPageSize)
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size

	tickets, total, err := h.tickets.SearchTickets(c.UserContext(), userID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Total: total, Page: page, Size: size},
	})
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Total:      stats.Total,
		ByStatus:   stats.ByStatus,
		ByPriority: stats.ByPriority,
	}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), userID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicketByNumber GET /tickets/by-ticket-no/:no.
func (h *TicketsHandler) GetTicketByNumber(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicketByNumber(c.UserContext(), userID, c.Params("no"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return h.applyPatch(c, service.TicketPatch{
		Title:        optional(req.Title),
		Description:  optional(req.Description),
		AssignedTo:   optional(req.AssignedTo),
		Priority:     optional(req.Priority),
		DueDate:      optional(req.DueDate),
		LabelIDs:     optional(req.LabelIDs),
		CategoryIDs:  optional(req.CategoryIDs),
		CustomFields: optional(req.CustomFields),
	})
}

// UpdateTitle PATCH /tickets/:id/title.
func (h *TicketsHandler) UpdateTitle(c *fiber.Ctx) error {
	var req dto.UpdateTitleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return h.applyPatch(c, service.TicketPatch{Title: service.Some(req.Title)})
}

// UpdateDescription PATCH /tickets/:id/description.
func (h *TicketsHandler) UpdateDescription(c *fiber.Ctx) error {
	var req dto.UpdateDescriptionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return h.applyPatch(c, service.TicketPatch{Description: service.Optional[string]{Set: true, Value: req.Description}})
}

// UpdateAssignee PATCH /tickets/:id/assignee.
func (h *TicketsHandler) UpdateAssignee(c *fiber.Ctx) error {
	var req dto.UpdateAssigneeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return h.applyPatch(c, service.TicketPatch{AssignedTo: service.Optional[int64]{Set: true, Value: req.AssignedTo}})
}

// UpdateLabels PATCH /tickets/:id/labels.
func (h *TicketsHandler) UpdateLabels(c *fiber.Ctx) error {
	var req dto.UpdateLabelsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return h.applyPatch(c, service.TicketPatch{LabelIDs: service.Some(req.LabelIDs)})
}

func (h *TicketsHandler) applyPatch(c *fiber.Ctx, patch service.TicketPatch) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), userID, ticketID, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.ChangeStatus(c.UserContext(), userID, ticketID, service.ChangeStatusInput{
		Status: req.Status,
		Reason: req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), userID, ticketID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GrantViewer POST /tickets/:id/viewers.
func (h *TicketsHandler) GrantViewer(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	var req dto.GrantViewerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	permission, err := h.tickets.GrantViewer(c.UserContext(), userID, ticketID, req.UserID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": viewerResponse(permission)})
}

// ListViewers GET /tickets/:id/viewers.
func (h *TicketsHandler) ListViewers(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	viewers, err := h.tickets.ListViewers(c.UserContext(), userID, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.ViewerResponse, 0, len(viewers))
	for i := range viewers {
		items = append(items, viewerResponse(&viewers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListNotes GET /tickets/:id/notes.
func (h *TicketsHandler) ListNotes(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	notes, err := h.tickets.ListNotes(c.UserContext(), userID, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, noteResponse(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddNote POST /tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	var req dto.CreateNoteRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	note, err := h.tickets.AddComment(c.UserContext(), userID, ticketID, req.Note)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": noteResponse(note)})
}

// GetApproval GET /tickets/:id/approval.
func (h *TicketsHandler) GetApproval(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	process, err := h.approvals.GetProcessForTicket(c.UserContext(), userID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": processResponse(process)})
}

// ListAttachments GET /tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	attachments, err := h.tickets.ListAttachments(c.UserContext(), userID, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	var req dto.CreateAttachmentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	attachment, err := h.tickets.AddAttachment(c.UserContext(), userID, ticketID, service.AttachmentInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// RemoveAttachment DELETE /tickets/:id/attachments/:attachment_id.
func (h *TicketsHandler) RemoveAttachment(c *fiber.Ctx) error {
	userID, ticketID, err := callerAndTicket(c)
	if err != nil {
		return err
	}
	attachmentID, err := pathID(c, "attachment_id")
	if err != nil {
		return err
	}
	if err := h.tickets.RemoveAttachment(c.UserContext(), userID, ticketID, attachmentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func callerAndTicket(c *fiber.Ctx) (int64, int64, error) {
	userID, err := callerID(c)
	if err != nil {
		return 0, 0, err
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	return userID, ticketID, nil
}

func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	var (
		filter repository.TicketFilter
		err    error
	)
	if title := c.Query("title"); title != "" {
		filter.Title = &title
	}
	for _, status := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(status))
	}
	for _, priority := range queryList(c, "priority") {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(priority))
	}
	if visibility := c.Query("visibility"); visibility != "" {
		v := domain.TicketVisibility(visibility)
		filter.Visibility = &v
	}
	if filter.AssignedTo, err = queryInt64(c, "assigned_to"); err != nil {
		return filter, err
	}
	if filter.CreatedBy, err = queryInt64(c, "created_by"); err != nil {
		return filter, err
	}
	if filter.CategoryIDs, err = queryIDs(c, "category_ids"); err != nil {
		return filter, err
	}
	if filter.LabelIDs, err = queryIDs(c, "label_ids"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryTime(c, "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryTime(c, "created_to"); err != nil {
		return filter, err
	}
	if filter.DueFrom, err = queryTime(c, "due_from"); err != nil {
		return filter, err
	}
	if filter.DueTo, err = queryTime(c, "due_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func optional[T any](n dto.Nullable[T]) service.Optional[T] {
	return service.Optional[T]{Set: n.Set, Value: n.Value}
}

func viewerResponse(permission *domain.TicketViewPermission) dto.ViewerResponse {
	return dto.ViewerResponse{
		TicketID:  permission.TicketID,
		UserID:    permission.UserID,
		CreatedBy: permission.CreatedBy,
		CreatedAt: permission.CreatedAt,
	}
}
