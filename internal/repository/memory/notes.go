package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

type noteRepo struct{ s *Store }

func (r *noteRepo) Create(_ context.Context, note *domain.Note) error {
	return r.s.write(func(d *state) error {
		note.ID = d.nextID()
		note.CreatedAt = r.s.now()
		stored := *note
		stored.Attachments = nil
		d.notes[note.ID] = stored
		return nil
	})
}

func (r *noteRepo) GetByID(_ context.Context, id int64) (*domain.Note, error) {
	var out *domain.Note
	err := r.s.read(func(d *state) error {
		note, ok := d.notes[id]
		if !ok {
			return repository.ErrNotFound
		}
		note.Attachments = noteAttachments(d, note.ID)
		out = &note
		return nil
	})
	return out, err
}

func (r *noteRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Note, error) {
	var out []domain.Note
	err := r.s.read(func(d *state) error {
		for _, note := range d.notes {
			if note.TicketID == ticketID {
				note.Attachments = noteAttachments(d, note.ID)
				out = append(out, note)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func noteAttachments(d *state, noteID int64) []domain.Attachment {
	var out []domain.Attachment
	for _, attachment := range d.attachments {
		if attachment.NoteID != nil && *attachment.NoteID == noteID {
			out = append(out, attachment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type attachmentRepo struct{ s *Store }

func (r *attachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	return r.s.write(func(d *state) error {
		attachment.ID = d.nextID()
		attachment.CreatedAt = r.s.now()
		d.attachments[attachment.ID] = *attachment
		return nil
	})
}

func (r *attachmentRepo) AttachToNote(_ context.Context, attachmentID, noteID int64) error {
	return r.s.write(func(d *state) error {
		attachment, ok := d.attachments[attachmentID]
		if !ok {
			return repository.ErrNotFound
		}
		attachment.NoteID = &noteID
		d.attachments[attachmentID] = attachment
		return nil
	})
}

func (r *attachmentRepo) GetByID(_ context.Context, id int64) (*domain.Attachment, error) {
	var out *domain.Attachment
	err := r.s.read(func(d *state) error {
		attachment, ok := d.attachments[id]
		if !ok || attachment.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = &attachment
		return nil
	})
	return out, err
}

func (r *attachmentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := r.s.read(func(d *state) error {
		for _, attachment := range d.attachments {
			if attachment.TicketID == ticketID && attachment.DeletedAt == nil {
				out = append(out, attachment)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *attachmentRepo) SoftDelete(_ context.Context, id int64) error {
	return r.s.write(func(d *state) error {
		attachment, ok := d.attachments[id]
		if !ok || attachment.DeletedAt != nil {
			return repository.ErrNotFound
		}
		now := r.s.now()
		attachment.DeletedAt = &now
		d.attachments[id] = attachment
		return nil
	})
}

type viewerRepo struct{ s *Store }

func (r *viewerRepo) Grant(_ context.Context, permission *domain.TicketViewPermission) error {
	return r.s.write(func(d *state) error {
		key := ticketLink{ticketID: permission.TicketID, otherID: permission.UserID}
		if existing, ok := d.viewers[key]; ok {
			*permission = existing
			return nil
		}
		permission.ID = d.nextID()
		permission.CreatedAt = r.s.now()
		d.viewers[key] = *permission
		return nil
	})
}

func (r *viewerRepo) HasPermission(_ context.Context, ticketID, userID int64) (bool, error) {
	var ok bool
	err := r.s.read(func(d *state) error {
		_, ok = d.viewers[ticketLink{ticketID: ticketID, otherID: userID}]
		return nil
	})
	return ok, err
}

func (r *viewerRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketViewPermission, error) {
	var out []domain.TicketViewPermission
	err := r.s.read(func(d *state) error {
		for key, permission := range d.viewers {
			if key.ticketID == ticketID {
				out = append(out, permission)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type ruleRepo struct{ s *Store }

func (r *ruleRepo) Create(_ context.Context, rule *domain.NotificationRule) error {
	return r.s.write(func(d *state) error {
		rule.ID = d.nextID()
		rule.CreatedAt = r.s.now()
		d.rules[rule.ID] = *rule
		return nil
	})
}

func (r *ruleRepo) ListForTicket(_ context.Context, event domain.NotificationEvent, ticketID int64, ticketTemplateID *int64) ([]domain.NotificationRule, error) {
	var byTicket, byTemplate []domain.NotificationRule
	err := r.s.read(func(d *state) error {
		for _, rule := range d.rules {
			if rule.NotifyOnEvent != event {
				continue
			}
			if rule.TicketID != nil && *rule.TicketID == ticketID {
				byTicket = append(byTicket, rule)
			} else if ticketTemplateID != nil && rule.TicketTemplateID != nil && *rule.TicketTemplateID == *ticketTemplateID {
				byTemplate = append(byTemplate, rule)
			}
		}
		return nil
	})
	out := byTicket
	if len(out) == 0 {
		out = byTemplate
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}
