package service

import (
	"context"
	"errors"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-ticket-service/pkg/util/errorutil"
)

// canRead applies the visibility rules: internal tickets are readable by any
// authenticated caller, restricted ones only by the creator, the assignee, an
// approver or proxy on the ticket's process, or an explicitly granted viewer.
func canRead(ctx context.Context, store repository.Store, ticket *domain.Ticket, userID int64) (bool, error) {
	if ticket.Visibility != domain.TicketVisibilityRestricted {
		return true, nil
	}
	if ticket.IsCreator(userID) || ticket.IsAssignee(userID) {
		return true, nil
	}

	process, err := store.Approvals.GetProcessByTicket(ctx, ticket.ID)
	switch {
	case err == nil:
		if process.InvolvesUser(userID) {
			return true, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}

	return store.ViewPermissions.HasPermission(ctx, ticket.ID, userID)
}

func authorizeRead(ctx context.Context, store repository.Store, ticket *domain.Ticket, userID int64) error {
	ok, err := canRead(ctx, store, ticket, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewPermissionDenied("ticket is restricted")
	}
	return nil
}

// loadTicket fetches a live ticket and applies read authorization.
func loadTicket(ctx context.Context, store repository.Store, ticketID, userID int64, forUpdate bool) (*domain.Ticket, error) {
	get := store.Tickets.GetByID
	if forUpdate {
		get = store.Tickets.GetByIDForUpdate
	}
	ticket, err := get(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError("ticket", err)
	}
	if err := authorizeRead(ctx, store, ticket, userID); err != nil {
		return nil, err
	}
	return ticket, nil
}

func mapRepoError(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	}
	return err
}
