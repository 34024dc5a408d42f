package handlers

import (
	"github.com/spec-kit/itsm-ticket-service/internal/api/dto"
	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                 ticket.ID,
		TicketNo:           ticket.TicketNo,
		Title:              ticket.Title,
		Description:        ticket.Description,
		Status:             ticket.Status,
		Priority:           ticket.Priority,
		Visibility:         ticket.Visibility,
		AssignedTo:         ticket.AssignedTo,
		CreatedBy:          ticket.CreatedBy,
		UpdatedBy:          ticket.UpdatedBy,
		ApprovalTemplateID: ticket.ApprovalTemplateID,
		TicketTemplateID:   ticket.TicketTemplateID,
		CustomFields:       ticket.CustomFields,
		DueDate:            ticket.DueDate,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		Labels:             make([]dto.LabelResponse, 0, len(ticket.Labels)),
		Categories:         make([]dto.CategoryResponse, 0, len(ticket.Categories)),
		NextStatuses:       domain.NextStatuses(ticket.Status),
	}
	for i := range ticket.Labels {
		resp.Labels = append(resp.Labels, labelResponse(&ticket.Labels[i]))
	}
	for i := range ticket.Categories {
		resp.Categories = append(resp.Categories, categoryResponse(&ticket.Categories[i]))
	}
	if ticket.ApprovalProcess != nil {
		process := processResponse(ticket.ApprovalProcess)
		resp.ApprovalProcess = &process
	}
	return resp
}

func processResponse(process *domain.ApprovalProcess) dto.ApprovalProcessResponse {
	resp := dto.ApprovalProcessResponse{
		ID:                 process.ID,
		TicketID:           process.TicketID,
		ApprovalTemplateID: process.ApprovalTemplateID,
		Status:             process.Status,
		CurrentStep:        process.CurrentStep,
		CreatedBy:          process.CreatedBy,
		CreatedAt:          process.CreatedAt,
		UpdatedAt:          process.UpdatedAt,
		Steps:              make([]dto.ApprovalStepResponse, 0, len(process.Steps)),
	}
	for _, step := range process.Steps {
		resp.Steps = append(resp.Steps, dto.ApprovalStepResponse{
			ID:         step.ID,
			StepOrder:  step.StepOrder,
			ApproverID: step.ApproverID,
			ProxyID:    step.ProxyID,
			Status:     step.Status,
			ActedBy:    step.ActedBy,
			ActionAt:   step.ActionAt,
			Comment:    step.Comment,
		})
	}
	return resp
}

func templateResponse(template *domain.ApprovalTemplate) dto.TemplateResponse {
	resp := dto.TemplateResponse{
		ID:        template.ID,
		Name:      template.Name,
		CreatedBy: template.CreatedBy,
		CreatedAt: template.CreatedAt,
		UpdatedAt: template.UpdatedAt,
	}
	for _, step := range template.Steps {
		resp.Steps = append(resp.Steps, dto.TemplateStepResponse{
			ID:          step.ID,
			StepOrder:   step.StepOrder,
			UserID:      step.UserID,
			RoleID:      step.RoleID,
			ProxyUserID: step.ProxyUserID,
		})
	}
	return resp
}

func noteResponse(note *domain.Note) dto.NoteResponse {
	resp := dto.NoteResponse{
		ID:           note.ID,
		TicketID:     note.TicketID,
		AuthorID:     note.AuthorID,
		Note:         note.Note,
		System:       note.System,
		EventType:    note.EventType,
		EventDetails: note.EventDetails,
		CreatedAt:    note.CreatedAt,
		Attachments:  make([]dto.AttachmentResponse, 0, len(note.Attachments)),
	}
	for i := range note.Attachments {
		resp.Attachments = append(resp.Attachments, attachmentResponse(&note.Attachments[i]))
	}
	return resp
}

func attachmentResponse(attachment *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         attachment.ID,
		TicketID:   attachment.TicketID,
		NoteID:     attachment.NoteID,
		StorageKey: attachment.StorageKey,
		FileName:   attachment.FileName,
		MimeType:   attachment.MimeType,
		SizeBytes:  attachment.SizeBytes,
		UploadedBy: attachment.UploadedBy,
		CreatedAt:  attachment.CreatedAt,
	}
}

func labelResponse(label *domain.Label) dto.LabelResponse {
	return dto.LabelResponse{
		ID:          label.ID,
		Name:        label.Name,
		Color:       label.Color,
		Description: label.Description,
		CreatedAt:   label.CreatedAt,
		UpdatedAt:   label.UpdatedAt,
	}
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}
