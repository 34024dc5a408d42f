package notify

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// Sender abstracts the SMTP dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer emails user recipients. Users are mapped to addresses through a
// printf pattern until a directory lookup exists.
type Mailer struct {
	sender  Sender
	from    string
	pattern string
}

// NewMailer dials host:port with the given credentials for every send.
func NewMailer(host string, port int, username, password, from, pattern string) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(host, port, username, password), from, pattern)
}

// NewMailerWithSender uses a custom sender.
func NewMailerWithSender(sender Sender, from, pattern string) *Mailer {
	return &Mailer{sender: sender, from: from, pattern: pattern}
}

func (m *Mailer) Name() string { return "smtp" }

// Send mails every user recipient. Role-only notifications are skipped.
func (m *Mailer) Send(_ context.Context, n Notification) error {
	if len(n.UserIDs) == 0 {
		return nil
	}

	to := m.Recipients(n.UserIDs)
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", EmailSubject(n))
	msg.SetBody("text/html", EmailBody(n))

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %d recipients: %w", len(to), err)
	}
	return nil
}

func (m *Mailer) Close() error { return nil }

// Recipients maps user ids to addresses.
func (m *Mailer) Recipients(userIDs []int64) []string {
	out := make([]string, len(userIDs))
	for i, id := range userIDs {
		out[i] = fmt.Sprintf(m.pattern, id)
	}
	return out
}

// EmailSubject renders the subject line.
func EmailSubject(n Notification) string {
	return fmt.Sprintf("[Ticket #%s] Event: %s", n.Event.Ticket.TicketNo, EventTitle(n.Event.Type))
}

// EmailBody renders the HTML body with escaped ticket fields.
func EmailBody(n Notification) string {
	t := n.Event.Ticket
	return fmt.Sprintf(`<html>
<body>
  <h2>Ticket Event Notification</h2>
  <p>This is a notification for an event on Ticket <strong>#%s</strong>.</p>
  <ul>
    <li><strong>Title:</strong> %s</li>
    <li><strong>Event:</strong> %s</li>
    <li><strong>Status:</strong> %s</li>
    <li><strong>Priority:</strong> %s</li>
  </ul>%s
</body>
</html>`,
		html.EscapeString(t.TicketNo),
		html.EscapeString(t.Title),
		EventTitle(n.Event.Type),
		t.Status,
		t.Priority,
		emailLink(n.Link))
}

func emailLink(link string) string {
	if link == "" {
		return ""
	}
	return fmt.Sprintf("\n  <p><a href=\"%s\">Open ticket</a></p>", html.EscapeString(link))
}
