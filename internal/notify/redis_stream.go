package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type streamTicket struct {
	ID       int64  `json:"id"`
	TicketNo string `json:"ticket_no"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

type streamPayload struct {
	EventID     string       `json:"event_id"`
	EventType   string       `json:"event_type"`
	Ticket      streamTicket `json:"ticket"`
	NotifyUsers []int64      `json:"notify_users"`
	NotifyRoles []int64      `json:"notify_roles"`
}

// RedisStream appends notifications to a capped Redis stream.
type RedisStream struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStream publishes to stream, trimming it to roughly maxLen entries.
func NewRedisStream(client redis.Cmdable, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

func (r *RedisStream) Name() string { return "redis_stream" }

func (r *RedisStream) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(streamPayload{
		EventID:   n.Event.ID,
		EventType: string(n.Event.Type),
		Ticket: streamTicket{
			ID:       n.Event.Ticket.ID,
			TicketNo: n.Event.Ticket.TicketNo,
			Title:    n.Event.Ticket.Title,
			Status:   string(n.Event.Ticket.Status),
			Priority: string(n.Event.Ticket.Priority),
		},
		NotifyUsers: nonNil(n.UserIDs),
		NotifyRoles: nonNil(n.RoleIDs),
	})
	if err != nil {
		return fmt.Errorf("encode stream payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{"event_type": string(n.Event.Type), "payload": string(body)},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

// Close is a no-op; the client is owned by persistence.Redis.
func (r *RedisStream) Close() error { return nil }

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
