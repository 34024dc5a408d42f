package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.s.write(func(d *state) error {
		for _, existing := range d.tickets {
			if existing.TicketNo == ticket.TicketNo {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now()
		ticket.ID = d.nextID()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		createdBy := ticket.CreatedBy
		ticket.UpdatedBy = &createdBy
		d.tickets[ticket.ID] = storedTicket(*ticket)
		return nil
	})
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.s.write(func(d *state) error {
		current, ok := d.tickets[ticket.ID]
		if !ok || current.DeletedAt != nil {
			return repository.ErrNotFound
		}
		current.Title = ticket.Title
		current.Description = ticket.Description
		current.Status = ticket.Status
		current.Priority = ticket.Priority
		current.Visibility = ticket.Visibility
		current.AssignedTo = ticket.AssignedTo
		current.UpdatedBy = ticket.UpdatedBy
		current.CustomFields = ticket.CustomFields
		current.DueDate = ticket.DueDate
		current.UpdatedAt = r.s.now()
		ticket.UpdatedAt = current.UpdatedAt
		d.tickets[ticket.ID] = current
		return nil
	})
}

func (r *ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.read(func(d *state) error {
		ticket, ok := d.tickets[id]
		if !ok || ticket.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = &ticket
		return nil
	})
	return out, err
}

func (r *ticketRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) GetByTicketNo(_ context.Context, ticketNo string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.read(func(d *state) error {
		for _, ticket := range d.tickets {
			if ticket.TicketNo == ticketNo && ticket.DeletedAt == nil {
				out = &ticket
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *ticketRepo) Search(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	var matched []domain.Ticket
	err := r.s.read(func(d *state) error {
		for _, ticket := range d.tickets {
			if ticket.DeletedAt == nil && visibleTo(d, ticket, filter.ViewerID) && matches(d, ticket, filter) {
				matched = append(matched, ticket)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *ticketRepo) SoftDelete(_ context.Context, id, deletedBy int64) error {
	return r.s.write(func(d *state) error {
		ticket, ok := d.tickets[id]
		if !ok || ticket.DeletedAt != nil {
			return repository.ErrNotFound
		}
		now := r.s.now()
		ticket.DeletedAt = &now
		ticket.UpdatedBy = &deletedBy
		d.tickets[id] = ticket
		return nil
	})
}

func (r *ticketRepo) SetLabels(_ context.Context, ticketID int64, labelIDs []int64) error {
	return r.s.write(func(d *state) error {
		replaceLinks(d.ticketLabels, ticketID, labelIDs)
		return nil
	})
}

func (r *ticketRepo) SetCategories(_ context.Context, ticketID int64, categoryIDs []int64) error {
	return r.s.write(func(d *state) error {
		replaceLinks(d.ticketCategories, ticketID, categoryIDs)
		return nil
	})
}

func (r *ticketRepo) LoadRelations(_ context.Context, ticket *domain.Ticket) error {
	return r.s.read(func(d *state) error {
		ticket.Labels = nil
		for _, id := range linkedIDs(d.ticketLabels, ticket.ID) {
			if label, ok := d.labels[id]; ok && label.DeletedAt == nil {
				ticket.Labels = append(ticket.Labels, label)
			}
		}
		ticket.Categories = nil
		for _, id := range linkedIDs(d.ticketCategories, ticket.ID) {
			if category, ok := d.categories[id]; ok && category.DeletedAt == nil {
				ticket.Categories = append(ticket.Categories, category)
			}
		}
		return nil
	})
}

func (r *ticketRepo) Stats(_ context.Context, viewerID int64) (*repository.TicketStats, error) {
	stats := &repository.TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}
	err := r.s.read(func(d *state) error {
		for _, ticket := range d.tickets {
			if ticket.DeletedAt != nil || !visibleTo(d, ticket, viewerID) {
				continue
			}
			stats.Total++
			stats.ByStatus[ticket.Status]++
			stats.ByPriority[ticket.Priority]++
		}
		return nil
	})
	return stats, err
}

func storedTicket(ticket domain.Ticket) domain.Ticket {
	ticket.Labels = nil
	ticket.Categories = nil
	ticket.ApprovalProcess = nil
	return ticket
}

func replaceLinks(links map[ticketLink]struct{}, ticketID int64, ids []int64) {
	for link := range links {
		if link.ticketID == ticketID {
			delete(links, link)
		}
	}
	for _, id := range ids {
		links[ticketLink{ticketID: ticketID, otherID: id}] = struct{}{}
	}
}

func linkedIDs(links map[ticketLink]struct{}, ticketID int64) []int64 {
	var ids []int64
	for link := range links {
		if link.ticketID == ticketID {
			ids = append(ids, link.otherID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func visibleTo(d *state, ticket domain.Ticket, viewerID int64) bool {
	if ticket.Visibility == domain.TicketVisibilityInternal || ticket.IsCreator(viewerID) || ticket.IsAssignee(viewerID) {
		return true
	}
	if _, ok := d.viewers[ticketLink{ticketID: ticket.ID, otherID: viewerID}]; ok {
		return true
	}
	for _, process := range d.processes {
		if process.TicketID == ticket.ID && process.InvolvesUser(viewerID) {
			return true
		}
	}
	return false
}

func matches(d *state, ticket domain.Ticket, f repository.TicketFilter) bool {
	if f.Title != nil {
		needle := strings.ToLower(strings.TrimSpace(*f.Title))
		if needle != "" && !strings.Contains(strings.ToLower(ticket.Title), needle) {
			return false
		}
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, ticket.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, ticket.Priority) {
		return false
	}
	if f.Visibility != nil && ticket.Visibility != *f.Visibility {
		return false
	}
	if f.AssignedTo != nil && !ticket.IsAssignee(*f.AssignedTo) {
		return false
	}
	if f.CreatedBy != nil && ticket.CreatedBy != *f.CreatedBy {
		return false
	}
	if len(f.CategoryIDs) > 0 && !anyLinked(d.ticketCategories, ticket.ID, f.CategoryIDs) {
		return false
	}
	if len(f.LabelIDs) > 0 && !anyLinked(d.ticketLabels, ticket.ID, f.LabelIDs) {
		return false
	}
	if f.CreatedFrom != nil && ticket.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && ticket.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.DueFrom != nil && (ticket.DueDate == nil || ticket.DueDate.Before(*f.DueFrom)) {
		return false
	}
	if f.DueTo != nil && (ticket.DueDate == nil || ticket.DueDate.After(*f.DueTo)) {
		return false
	}
	return true
}

func anyLinked(links map[ticketLink]struct{}, ticketID int64, ids []int64) bool {
	for _, id := range ids {
		if _, ok := links[ticketLink{ticketID: ticketID, otherID: id}]; ok {
			return true
		}
	}
	return false
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
