package domain

import "time"

// TicketEventType identifies the kind of system note.
type TicketEventType string

const (
	EventStateChange       TicketEventType = "state_change"
	EventTitleChange       TicketEventType = "title_change"
	EventDescriptionChange TicketEventType = "description_change"
	EventStatusChange      TicketEventType = "status_change"
	EventPriorityChange    TicketEventType = "priority_change"
	EventAssignedToChange  TicketEventType = "assigned_to_change"
	EventDueDateChange     TicketEventType = "due_date_change"
	EventAttachmentAdd     TicketEventType = "attachment_add"
	EventAttachmentRemove  TicketEventType = "attachment_remove"
	EventApprovalSubmitted TicketEventType = "approval_submitted"
	EventApprovalApproved  TicketEventType = "approval_approved"
	EventApprovalRejected  TicketEventType = "approval_rejected"
	EventLabelAdd          TicketEventType = "label_add"
	EventLabelRemove       TicketEventType = "label_remove"
)

// Note is an immutable entry in a ticket's timeline: either a user comment or
// a system event with structured details.
type Note struct {
	ID           int64
	TicketID     int64
	AuthorID     int64
	Note         *string
	System       bool
	EventType    *TicketEventType
	EventDetails map[string]any
	CreatedAt    time.Time
	Attachments  []Attachment
}
