// Package notify holds the outbound notification channels: a Redis stream
// for downstream consumers, a Mattermost incoming webhook and SMTP mail.
package notify

import (
	"context"
	"strings"

	"github.com/spec-kit/itsm-ticket-service/internal/events"
)

// Notification is one resolved delivery: the event plus the union of
// recipients from every matching rule.
type Notification struct {
	Event   events.Event
	UserIDs []int64
	RoleIDs []int64
	// Link points at the ticket in the web UI; empty when unconfigured.
	Link string
}

// Channel delivers a notification over one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	Close() error
}

// EventTitle renders an event type for humans, e.g. "On Status Change".
func EventTitle(eventType events.EventType) string {
	words := strings.Split(string(eventType), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
