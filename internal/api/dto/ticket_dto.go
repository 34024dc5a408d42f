package dto

import (
	"time"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title              string                  `json:"title" validate:"required,max=255"`
	Description        *string                 `json:"description"`
	Priority           domain.TicketPriority   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Visibility         domain.TicketVisibility `json:"visibility" validate:"omitempty,oneof=internal restricted"`
	AssignedTo         *int64                  `json:"assigned_to" validate:"omitempty,gt=0"`
	ApprovalTemplateID *int64                  `json:"approval_template_id" validate:"omitempty,gt=0"`
	TicketTemplateID   *int64                  `json:"ticket_template_id" validate:"omitempty,gt=0"`
	CustomFields       map[string]any          `json:"custom_fields"`
	DueDate            *time.Time              `json:"due_date"`
	LabelIDs           []int64                 `json:"label_ids" validate:"omitempty,dive,gt=0"`
	CategoryIDs        []int64                 `json:"category_ids" validate:"omitempty,dive,gt=0"`
}

// UpdateTicketRequest is a partial update. Omitted keys stay untouched and
// explicit nulls clear the field.
type UpdateTicketRequest struct {
	Title        Nullable[string]                `json:"title"`
	Description  Nullable[string]                `json:"description"`
	AssignedTo   Nullable[int64]                 `json:"assigned_to"`
	Priority     Nullable[domain.TicketPriority] `json:"priority"`
	DueDate      Nullable[time.Time]             `json:"due_date"`
	LabelIDs     Nullable[[]int64]               `json:"label_ids"`
	CategoryIDs  Nullable[[]int64]               `json:"category_ids"`
	CustomFields Nullable[map[string]any]        `json:"custom_fields"`
}

// UpdateTitleRequest payload.
type UpdateTitleRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

// UpdateDescriptionRequest payload.
type UpdateDescriptionRequest struct {
	Description *string `json:"description"`
}

// UpdateAssigneeRequest payload. A null assignee unassigns the ticket.
type UpdateAssigneeRequest struct {
	AssignedTo *int64 `json:"assigned_to" validate:"omitempty,gt=0"`
}

// UpdateLabelsRequest replaces the label set.
type UpdateLabelsRequest struct {
	LabelIDs []int64 `json:"label_ids" validate:"dive,gt=0"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required"`
	Reason string              `json:"reason" validate:"max=1000"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Note string `json:"note" validate:"required,max=10000"`
}

// GrantViewerRequest payload.
type GrantViewerRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// CreateAttachmentRequest registers metadata for an uploaded object.
type CreateAttachmentRequest struct {
	StorageKey string `json:"storage_key" validate:"required,max=512"`
	FileName   string `json:"file_name" validate:"required,max=255"`
	MimeType   string `json:"mime_type" validate:"max=255"`
	SizeBytes  int64  `json:"size_bytes" validate:"gte=0"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID                 int64                    `json:"id"`
	TicketNo           string                   `json:"ticket_no"`
	Title              string                   `json:"title"`
	Description        *string                  `json:"description"`
	Status             domain.TicketStatus      `json:"status"`
	Priority           domain.TicketPriority    `json:"priority"`
	Visibility         domain.TicketVisibility  `json:"visibility"`
	AssignedTo         *int64                   `json:"assigned_to"`
	CreatedBy          int64                    `json:"created_by"`
	UpdatedBy          *int64                   `json:"updated_by"`
	ApprovalTemplateID *int64                   `json:"approval_template_id"`
	TicketTemplateID   *int64                   `json:"ticket_template_id"`
	CustomFields       map[string]any           `json:"custom_fields"`
	DueDate            *time.Time               `json:"due_date"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
	Labels             []LabelResponse          `json:"labels"`
	Categories         []CategoryResponse       `json:"categories"`
	ApprovalProcess    *ApprovalProcessResponse `json:"approval_process,omitempty"`
	NextStatuses       []domain.TicketStatus    `json:"next_statuses"`
}

// NoteResponse renders a timeline entry.
type NoteResponse struct {
	ID           int64                   `json:"id"`
	TicketID     int64                   `json:"ticket_id"`
	AuthorID     int64                   `json:"author_id"`
	Note         *string                 `json:"note"`
	System       bool                    `json:"system"`
	EventType    *domain.TicketEventType `json:"event_type"`
	EventDetails map[string]any          `json:"event_details"`
	CreatedAt    time.Time               `json:"created_at"`
	Attachments  []AttachmentResponse    `json:"attachments"`
}

// AttachmentResponse renders attachment metadata.
type AttachmentResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	NoteID     *int64    `json:"note_id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedBy int64     `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// ViewerResponse renders an explicit read grant.
type ViewerResponse struct {
	TicketID  int64     `json:"ticket_id"`
	UserID    int64     `json:"user_id"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsResponse counts visible tickets.
type StatsResponse struct {
	Total      int                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}
