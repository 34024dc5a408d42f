package domain

import "time"

// NotificationEvent is the trigger a notification rule subscribes to.
type NotificationEvent string

const (
	NotifyOnCreate       NotificationEvent = "on_create"
	NotifyOnStatusChange NotificationEvent = "on_status_change"
	NotifyOnClose        NotificationEvent = "on_close"
	NotifyOnNewComment   NotificationEvent = "on_new_comment"
)

// NotificationRule selects recipients for an event, scoped to a single ticket
// or to every ticket created from a ticket template.
type NotificationRule struct {
	ID               int64
	NotifyOnEvent    NotificationEvent
	TicketID         *int64
	TicketTemplateID *int64
	UserIDs          []int64
	RoleIDs          []int64
	CreatedBy        *int64
	CreatedAt        time.Time
}
