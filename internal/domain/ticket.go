package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusDraft           TicketStatus = "draft"
	TicketStatusWaitingApproval TicketStatus = "waiting_approval"
	TicketStatusRejected        TicketStatus = "rejected"
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusCancelled       TicketStatus = "cancelled"
)

// Valid reports whether the status is one of the persisted values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusDraft, TicketStatusWaitingApproval, TicketStatusRejected, TicketStatusOpen,
		TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition leaves the status.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusClosed, TicketStatusCancelled, TicketStatusRejected:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority is known.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketVisibility gates who may read a ticket.
type TicketVisibility string

const (
	TicketVisibilityInternal   TicketVisibility = "internal"
	TicketVisibilityRestricted TicketVisibility = "restricted"
)

// Valid reports whether the visibility is known.
func (v TicketVisibility) Valid() bool {
	return v == TicketVisibilityInternal || v == TicketVisibilityRestricted
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                 int64
	TicketNo           string
	Title              string
	Description        *string
	Status             TicketStatus
	Priority           TicketPriority
	Visibility         TicketVisibility
	AssignedTo         *int64
	CreatedBy          int64
	UpdatedBy          *int64
	TicketTemplateID   *int64
	ApprovalTemplateID *int64
	CustomFields       map[string]any
	DueDate            *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time

	Labels          []Label
	Categories      []Category
	ApprovalProcess *ApprovalProcess
}

// IsCreator reports whether the user created the ticket.
func (t *Ticket) IsCreator(userID int64) bool {
	return t.CreatedBy == userID
}

// IsAssignee reports whether the user is the current assignee.
func (t *Ticket) IsAssignee(userID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// LabelIDs returns the ids of attached labels in their loaded order.
func (t *Ticket) LabelIDs() []int64 {
	ids := make([]int64, 0, len(t.Labels))
	for _, l := range t.Labels {
		ids = append(ids, l.ID)
	}
	return ids
}

// CategoryIDs returns the ids of attached categories.
func (t *Ticket) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(t.Categories))
	for _, c := range t.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}
