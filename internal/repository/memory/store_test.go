package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

func newTicket(no string, creator int64) *domain.Ticket {
	return &domain.Ticket{
		TicketNo:   no,
		Title:      "Printer on fire",
		Status:     domain.TicketStatusDraft,
		Priority:   domain.TicketPriorityMedium,
		Visibility: domain.TicketVisibilityInternal,
		CreatedBy:  creator,
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		require.NoError(t, s.Tickets.Create(ctx, newTicket("TK1", 1)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Store().Tickets.GetByTicketNo(ctx, "TK1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		return s.Tickets.Create(ctx, newTicket("TK1", 1))
	})
	require.NoError(t, err)

	got, err := store.Store().Tickets.GetByTicketNo(ctx, "TK1")
	require.NoError(t, err)
	assert.Equal(t, "Printer on fire", got.Title)
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, int64(1), *got.UpdatedBy)
}

func TestUncommittedWritesHiddenFromReaders(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		require.NoError(t, s.Tickets.Create(ctx, newTicket("TK1", 1)))
		_, err := s.Tickets.GetByTicketNo(ctx, "TK1")
		require.NoError(t, err)

		_, err = store.Store().Tickets.GetByTicketNo(ctx, "TK1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	_, err = store.Store().Tickets.GetByTicketNo(ctx, "TK1")
	assert.NoError(t, err)
}

func TestTicketNumberUnique(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Store()

	require.NoError(t, repos.Tickets.Create(ctx, newTicket("TK1", 1)))
	assert.ErrorIs(t, repos.Tickets.Create(ctx, newTicket("TK1", 2)), repository.ErrDuplicate)
}

func TestOneProcessPerTicket(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Store()

	require.NoError(t, repos.Approvals.CreateProcess(ctx, &domain.ApprovalProcess{TicketID: 7, Status: domain.ApprovalProcessPending}))
	err := repos.Approvals.CreateProcess(ctx, &domain.ApprovalProcess{TicketID: 7, Status: domain.ApprovalProcessPending})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestSearchHonoursRestrictedVisibility(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Store()

	open := newTicket("TK1", 1)
	hidden := newTicket("TK2", 1)
	hidden.Visibility = domain.TicketVisibilityRestricted
	shared := newTicket("TK3", 1)
	shared.Visibility = domain.TicketVisibilityRestricted
	for _, ticket := range []*domain.Ticket{open, hidden, shared} {
		require.NoError(t, repos.Tickets.Create(ctx, ticket))
	}
	require.NoError(t, repos.ViewPermissions.Grant(ctx, &domain.TicketViewPermission{TicketID: shared.ID, UserID: 9, CreatedBy: 1}))

	items, total, err := repos.Tickets.Search(ctx, repository.TicketFilter{ViewerID: 9})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	var numbers []string
	for _, item := range items {
		numbers = append(numbers, item.TicketNo)
	}
	assert.ElementsMatch(t, []string{"TK1", "TK3"}, numbers)

	_, total, err = repos.Tickets.Search(ctx, repository.TicketFilter{ViewerID: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSearchPagination(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Store()
	for _, no := range []string{"TK1", "TK2", "TK3"} {
		require.NoError(t, repos.Tickets.Create(ctx, newTicket(no, 1)))
	}

	items, total, err := repos.Tickets.Search(ctx, repository.TicketFilter{ViewerID: 1, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)

	items, _, err = repos.Tickets.Search(ctx, repository.TicketFilter{ViewerID: 1, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNotificationRulesFallBackToTemplate(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Store()
	templateID := int64(40)
	ticketID := int64(5)

	require.NoError(t, repos.NotificationRules.Create(ctx, &domain.NotificationRule{
		NotifyOnEvent: domain.NotifyOnCreate, TicketTemplateID: &templateID, UserIDs: []int64{3},
	}))

	rules, err := repos.NotificationRules.ListForTicket(ctx, domain.NotifyOnCreate, ticketID, &templateID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []int64{3}, rules[0].UserIDs)

	require.NoError(t, repos.NotificationRules.Create(ctx, &domain.NotificationRule{
		NotifyOnEvent: domain.NotifyOnCreate, TicketID: &ticketID, UserIDs: []int64{4},
	}))
	rules, err = repos.NotificationRules.ListForTicket(ctx, domain.NotifyOnCreate, ticketID, &templateID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []int64{4}, rules[0].UserIDs)
}

func TestLabelNameUnique(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Store()

	require.NoError(t, repos.Labels.Create(ctx, &domain.Label{Name: "network", Color: "#FF0000"}))
	assert.ErrorIs(t, repos.Labels.Create(ctx, &domain.Label{Name: "network", Color: "#00FF00"}), repository.ErrDuplicate)
}
