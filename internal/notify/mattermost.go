package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Mattermost posts markdown messages to an incoming webhook.
type Mattermost struct {
	url     string
	timeout time.Duration
}

// NewMattermost targets the webhook url.
func NewMattermost(url string, timeout time.Duration) *Mattermost {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Mattermost{url: url, timeout: timeout}
}

func (m *Mattermost) Name() string { return "mattermost" }

func (m *Mattermost) Send(ctx context.Context, n Notification) error {
	timeout := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	code, body, errs := fiber.Post(m.url).
		Timeout(timeout).
		JSON(fiber.Map{"text": MattermostText(n)}).
		Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("mattermost webhook: %w", errors.Join(errs...))
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("mattermost webhook: status %d: %s", code, body)
	}
	return nil
}

func (m *Mattermost) Close() error { return nil }

// MattermostText renders the markdown message body.
func MattermostText(n Notification) string {
	t := n.Event.Ticket
	text := fmt.Sprintf("**Ticket Event: %s**\nTicket #%s: *%s*\nStatus: `%s` | Priority: `%s`",
		EventTitle(n.Event.Type), t.TicketNo, t.Title, t.Status, t.Priority)
	if n.Link != "" {
		text += fmt.Sprintf("\n[Open ticket](%s)", n.Link)
	}
	return text
}
