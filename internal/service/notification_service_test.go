package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/events"
	"github.com/spec-kit/itsm-ticket-service/internal/notify"
	"github.com/spec-kit/itsm-ticket-service/internal/repository/memory"
)

type fakeChannel struct {
	name string
	err  error

	mu   sync.Mutex
	sent []notify.Notification
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return c.err
}

func (c *fakeChannel) Close() error { return nil }

func (c *fakeChannel) notifications() []notify.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Notification(nil), c.sent...)
}

func TestNotificationServiceFansOutToEveryChannel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	broken := &fakeChannel{name: "broken", err: errors.New("webhook down")}
	healthy := &fakeChannel{name: "healthy"}

	n := NewNotificationService(dispatcher, store.Store().NotificationRules, []notify.Channel{broken, healthy}, nil, nil)
	n.RegisterHandlers()

	tickets := NewTicketService(TicketDependencies{UnitOfWork: store, Publisher: dispatcher})
	templateID := int64(77)
	ticket, err := tickets.CreateTicket(ctx, creatorID, CreateTicketInput{Title: "Badge reader", TicketTemplateID: &templateID})
	require.NoError(t, err)
	assert.Empty(t, healthy.notifications(), "no rules, no delivery")

	rules := store.Store().NotificationRules
	require.NoError(t, rules.Create(ctx, &domain.NotificationRule{
		NotifyOnEvent: domain.NotifyOnNewComment, TicketTemplateID: &templateID, UserIDs: []int64{5, 3}, RoleIDs: []int64{2},
	}))
	require.NoError(t, rules.Create(ctx, &domain.NotificationRule{
		NotifyOnEvent: domain.NotifyOnNewComment, TicketTemplateID: &templateID, UserIDs: []int64{3, 4},
	}))

	_, err = tickets.AddComment(ctx, creatorID, ticket.ID, "Still broken")
	require.NoError(t, err)

	require.Len(t, broken.notifications(), 1)
	sent := healthy.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, events.EventTicketCommented, sent[0].Event.Type)
	assert.Equal(t, []int64{3, 4, 5}, sent[0].UserIDs)
	assert.Equal(t, []int64{2}, sent[0].RoleIDs)
	assert.Equal(t, ticket.TicketNo, sent[0].Event.Ticket.TicketNo)
}

func TestNotificationServicePrefersTicketRules(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	channel := &fakeChannel{name: "fake"}
	NewNotificationService(dispatcher, store.Store().NotificationRules, []notify.Channel{channel}, nil, nil).RegisterHandlers()

	tickets := NewTicketService(TicketDependencies{UnitOfWork: store, Publisher: dispatcher})
	templateID := int64(77)
	ticket, err := tickets.CreateTicket(ctx, creatorID, CreateTicketInput{Title: "Badge reader", TicketTemplateID: &templateID})
	require.NoError(t, err)

	rules := store.Store().NotificationRules
	require.NoError(t, rules.Create(ctx, &domain.NotificationRule{
		NotifyOnEvent: domain.NotifyOnClose, TicketTemplateID: &templateID, UserIDs: []int64{8},
	}))
	require.NoError(t, rules.Create(ctx, &domain.NotificationRule{
		NotifyOnEvent: domain.NotifyOnClose, TicketID: &ticket.ID, RoleIDs: []int64{6},
	}))

	_, err = tickets.ChangeStatus(ctx, creatorID, ticket.ID, ChangeStatusInput{Status: domain.TicketStatusCancelled})
	require.NoError(t, err)

	sent := channel.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, events.EventTicketClosed, sent[0].Event.Type)
	assert.Empty(t, sent[0].UserIDs)
	assert.Equal(t, []int64{6}, sent[0].RoleIDs)
}

func TestNotificationServiceLinksTicket(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	channel := &fakeChannel{name: "fake"}
	NewNotificationService(dispatcher, store.Store().NotificationRules, []notify.Channel{channel}, nil, nil).
		WithTicketURLPattern("https://itsm.example.com/t/%s").
		RegisterHandlers()

	tickets := NewTicketService(TicketDependencies{UnitOfWork: store, Publisher: dispatcher})
	ticket, err := tickets.CreateTicket(ctx, creatorID, CreateTicketInput{Title: "VPN"})
	require.NoError(t, err)
	require.NoError(t, store.Store().NotificationRules.Create(ctx, &domain.NotificationRule{
		NotifyOnEvent: domain.NotifyOnNewComment, TicketID: &ticket.ID, UserIDs: []int64{9},
	}))

	_, err = tickets.AddComment(ctx, creatorID, ticket.ID, "ping")
	require.NoError(t, err)

	sent := channel.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://itsm.example.com/t/"+ticket.TicketNo, sent[0].Link)
}
