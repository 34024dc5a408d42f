package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

type approvalRepo struct{ s *Store }

func (r *approvalRepo) CreateProcess(_ context.Context, process *domain.ApprovalProcess) error {
	return r.s.write(func(d *state) error {
		for _, existing := range d.processes {
			if existing.TicketID == process.TicketID {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now()
		process.ID = d.nextID()
		process.CreatedAt = now
		process.UpdatedAt = now
		for i := range process.Steps {
			process.Steps[i].ID = d.nextID()
			process.Steps[i].ApprovalProcessID = process.ID
			process.Steps[i].CreatedAt = now
			process.Steps[i].UpdatedAt = now
		}
		d.processes[process.ID] = cloneProcess(*process)
		return nil
	})
}

func (r *approvalRepo) UpdateProcess(_ context.Context, process *domain.ApprovalProcess) error {
	return r.s.write(func(d *state) error {
		current, ok := d.processes[process.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Status = process.Status
		current.CurrentStep = process.CurrentStep
		current.UpdatedAt = r.s.now()
		d.processes[process.ID] = current
		return nil
	})
}

func (r *approvalRepo) UpdateStep(_ context.Context, step *domain.ApprovalProcessStep) error {
	return r.s.write(func(d *state) error {
		process, ok := d.processes[step.ApprovalProcessID]
		if !ok {
			return repository.ErrNotFound
		}
		for i := range process.Steps {
			if process.Steps[i].ID != step.ID {
				continue
			}
			current := &process.Steps[i]
			current.Status = step.Status
			current.ActedBy = step.ActedBy
			current.ActionAt = step.ActionAt
			current.Comment = step.Comment
			current.UpdatedAt = r.s.now()
			d.processes[process.ID] = process
			return nil
		}
		return repository.ErrNotFound
	})
}

func (r *approvalRepo) GetProcess(_ context.Context, id int64) (*domain.ApprovalProcess, error) {
	var out *domain.ApprovalProcess
	err := r.s.read(func(d *state) error {
		process, ok := d.processes[id]
		if !ok {
			return repository.ErrNotFound
		}
		cloned := cloneProcess(process)
		out = &cloned
		return nil
	})
	return out, err
}

func (r *approvalRepo) GetProcessForUpdate(ctx context.Context, id int64) (*domain.ApprovalProcess, error) {
	return r.GetProcess(ctx, id)
}

func (r *approvalRepo) GetProcessByTicket(_ context.Context, ticketID int64) (*domain.ApprovalProcess, error) {
	var out *domain.ApprovalProcess
	err := r.s.read(func(d *state) error {
		for _, process := range d.processes {
			if process.TicketID == ticketID {
				cloned := cloneProcess(process)
				out = &cloned
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *approvalRepo) GetStep(_ context.Context, stepID int64) (*domain.ApprovalProcessStep, error) {
	var out *domain.ApprovalProcessStep
	err := r.s.read(func(d *state) error {
		for _, process := range d.processes {
			for _, step := range process.Steps {
				if step.ID == stepID {
					out = &step
					return nil
				}
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func cloneProcess(process domain.ApprovalProcess) domain.ApprovalProcess {
	process.Steps = append([]domain.ApprovalProcessStep(nil), process.Steps...)
	sort.Slice(process.Steps, func(i, j int) bool { return process.Steps[i].StepOrder < process.Steps[j].StepOrder })
	return process
}

type templateRepo struct{ s *Store }

func (r *templateRepo) Create(_ context.Context, template *domain.ApprovalTemplate) error {
	return r.s.write(func(d *state) error {
		now := r.s.now()
		template.ID = d.nextID()
		template.CreatedAt = now
		template.UpdatedAt = now
		for i := range template.Steps {
			template.Steps[i].ID = d.nextID()
			template.Steps[i].ApprovalTemplateID = template.ID
		}
		stored := *template
		stored.Steps = append([]domain.ApprovalTemplateStep(nil), template.Steps...)
		d.templates[template.ID] = stored
		return nil
	})
}

func (r *templateRepo) GetWithSteps(_ context.Context, id int64) (*domain.ApprovalTemplate, error) {
	var out *domain.ApprovalTemplate
	err := r.s.read(func(d *state) error {
		template, ok := d.templates[id]
		if !ok || template.DeletedAt != nil {
			return repository.ErrNotFound
		}
		template.Steps = append([]domain.ApprovalTemplateStep(nil), template.Steps...)
		sort.Slice(template.Steps, func(i, j int) bool { return template.Steps[i].StepOrder < template.Steps[j].StepOrder })
		out = &template
		return nil
	})
	return out, err
}

func (r *templateRepo) List(_ context.Context) ([]domain.ApprovalTemplate, error) {
	var out []domain.ApprovalTemplate
	err := r.s.read(func(d *state) error {
		for _, template := range d.templates {
			if template.DeletedAt == nil {
				template.Steps = nil
				out = append(out, template)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *templateRepo) SoftDelete(_ context.Context, id int64) error {
	return r.s.write(func(d *state) error {
		template, ok := d.templates[id]
		if !ok || template.DeletedAt != nil {
			return repository.ErrNotFound
		}
		now := r.s.now()
		template.DeletedAt = &now
		d.templates[id] = template
		return nil
	})
}
