package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/events"
)

func sampleNotification() Notification {
	ticket := &domain.Ticket{
		ID:       12,
		TicketNo: "TK20240501A1B2C3",
		Title:    "Disk <full>",
		Status:   domain.TicketStatusOpen,
		Priority: domain.TicketPriorityHigh,
	}
	return Notification{
		Event:   events.NewEvent(events.EventTicketStatusChanged, ticket, 3, nil),
		UserIDs: []int64{5, 6},
		RoleIDs: []int64{2},
	}
}

func TestEventTitle(t *testing.T) {
	assert.Equal(t, "On Status Change", EventTitle(events.EventTicketStatusChanged))
	assert.Equal(t, "On New Comment", EventTitle(events.EventTicketCommented))
}

func TestMattermostText(t *testing.T) {
	text := MattermostText(sampleNotification())
	assert.Equal(t, "**Ticket Event: On Status Change**\nTicket #TK20240501A1B2C3: *Disk <full>*\nStatus: `open` | Priority: `high`", text)
}

func TestMattermostPostsWebhook(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewMattermost(srv.URL, time.Second)
	require.NoError(t, ch.Send(context.Background(), sampleNotification()))
	assert.Contains(t, got["text"], "TK20240501A1B2C3")
}

func TestMattermostReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMattermost(srv.URL, time.Second).Send(context.Background(), sampleNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

type fakeSender struct {
	messages []*gomail.Message
	err      error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.messages = append(f.messages, m...)
	return f.err
}

func TestMailerSendsToPatternRecipients(t *testing.T) {
	sender := &fakeSender{}
	mailer := NewMailerWithSender(sender, "noreply@example.com", "user_%d@example.com")

	require.NoError(t, mailer.Send(context.Background(), sampleNotification()))
	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, []string{"user_5@example.com", "user_6@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"[Ticket #TK20240501A1B2C3] Event: On Status Change"}, msg.GetHeader("Subject"))
}

func TestMailerSkipsRoleOnly(t *testing.T) {
	sender := &fakeSender{}
	n := sampleNotification()
	n.UserIDs = nil

	require.NoError(t, NewMailerWithSender(sender, "a@b.c", "u%d@x").Send(context.Background(), n))
	assert.Empty(t, sender.messages)
}

func TestMailerWrapsSendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("dial tcp: refused")}
	err := NewMailerWithSender(sender, "a@b.c", "u%d@x").Send(context.Background(), sampleNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestEmailBodyEscapesTitle(t *testing.T) {
	body := EmailBody(sampleNotification())
	assert.Contains(t, body, "Disk &lt;full&gt;")
	assert.NotContains(t, body, "<full>")
	assert.NotContains(t, body, "Open ticket")
}

func TestTicketLinkRendered(t *testing.T) {
	n := sampleNotification()
	n.Link = "https://itsm.example.com/tickets/TK20240501A1B2C3"

	assert.Contains(t, MattermostText(n), "[Open ticket](https://itsm.example.com/tickets/TK20240501A1B2C3)")
	assert.Contains(t, EmailBody(n), `<a href="https://itsm.example.com/tickets/TK20240501A1B2C3">Open ticket</a>`)
}

type fakeStream struct {
	redis.Cmdable
	args *redis.XAddArgs
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = a
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("1-0")
	return cmd
}

func TestRedisStreamPayload(t *testing.T) {
	client := &fakeStream{}
	stream := NewRedisStream(client, "itsm:notifications", 1000)

	require.NoError(t, stream.Send(context.Background(), sampleNotification()))
	require.NotNil(t, client.args)
	assert.Equal(t, "itsm:notifications", client.args.Stream)
	assert.Equal(t, int64(1000), client.args.MaxLen)
	assert.True(t, client.args.Approx)

	values := client.args.Values.(map[string]any)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &payload))
	assert.Equal(t, "on_status_change", payload["event_type"])
	assert.Equal(t, []any{5.0, 6.0}, payload["notify_users"])
	assert.Equal(t, []any{2.0}, payload["notify_roles"])
	ticket := payload["ticket"].(map[string]any)
	assert.Equal(t, "TK20240501A1B2C3", ticket["ticket_no"])
}
