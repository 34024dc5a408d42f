package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers. The values are the
// notification triggers rules subscribe to.
type EventType string

const (
	EventTicketCreated       EventType = EventType(domain.NotifyOnCreate)
	EventTicketStatusChanged EventType = EventType(domain.NotifyOnStatusChange)
	EventTicketClosed        EventType = EventType(domain.NotifyOnClose)
	EventTicketCommented     EventType = EventType(domain.NotifyOnNewComment)
)

// AllEventTypes lists every published type.
func AllEventTypes() []EventType {
	return []EventType{EventTicketCreated, EventTicketStatusChanged, EventTicketClosed, EventTicketCommented}
}

// TicketSnapshot is the committed ticket state carried by an event.
type TicketSnapshot struct {
	ID               int64                 `json:"id"`
	TicketNo         string                `json:"ticket_no"`
	Title            string                `json:"title"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	TicketTemplateID *int64                `json:"ticket_template_id,omitempty"`
	AssignedTo       *int64                `json:"assigned_to,omitempty"`
	CreatedBy        int64                 `json:"created_by"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Ticket    TicketSnapshot `json:"ticket"`
	ActorID   int64          `json:"actor_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   any            `json:"payload,omitempty"`
}

// NewEvent snapshots the ticket and stamps the event.
func NewEvent(eventType EventType, ticket *domain.Ticket, actorID int64, payload any) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Ticket: TicketSnapshot{
			ID:               ticket.ID,
			TicketNo:         ticket.TicketNo,
			Title:            ticket.Title,
			Status:           ticket.Status,
			Priority:         ticket.Priority,
			TicketTemplateID: ticket.TicketTemplateID,
			AssignedTo:       ticket.AssignedTo,
			CreatedBy:        ticket.CreatedBy,
		},
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	From   domain.TicketStatus `json:"from"`
	To     domain.TicketStatus `json:"to"`
	Reason string              `json:"reason,omitempty"`
}

// AssigneeChangedPayload payload.
type AssigneeChangedPayload struct {
	From *int64 `json:"from,omitempty"`
	To   *int64 `json:"to,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	NoteID  int64  `json:"note_id"`
	Preview string `json:"preview"`
}
