package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

type labelRepo struct{ s *Store }

func (r *labelRepo) Create(_ context.Context, label *domain.Label) error {
	return r.s.write(func(d *state) error {
		for _, existing := range d.labels {
			if existing.Name == label.Name && existing.DeletedAt == nil {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now()
		label.ID = d.nextID()
		label.CreatedAt = now
		label.UpdatedAt = now
		d.labels[label.ID] = *label
		return nil
	})
}

func (r *labelRepo) Update(_ context.Context, label *domain.Label) error {
	return r.s.write(func(d *state) error {
		current, ok := d.labels[label.ID]
		if !ok || current.DeletedAt != nil {
			return repository.ErrNotFound
		}
		for _, existing := range d.labels {
			if existing.ID != label.ID && existing.Name == label.Name && existing.DeletedAt == nil {
				return repository.ErrDuplicate
			}
		}
		current.Name = label.Name
		current.Color = label.Color
		current.Description = label.Description
		current.UpdatedAt = r.s.now()
		d.labels[label.ID] = current
		return nil
	})
}

func (r *labelRepo) GetByID(_ context.Context, id int64) (*domain.Label, error) {
	var out *domain.Label
	err := r.s.read(func(d *state) error {
		label, ok := d.labels[id]
		if !ok || label.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = &label
		return nil
	})
	return out, err
}

func (r *labelRepo) GetByName(_ context.Context, name string) (*domain.Label, error) {
	var out *domain.Label
	err := r.s.read(func(d *state) error {
		for _, label := range d.labels {
			if label.Name == name && label.DeletedAt == nil {
				out = &label
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *labelRepo) GetByIDs(_ context.Context, ids []int64) ([]domain.Label, error) {
	var out []domain.Label
	err := r.s.read(func(d *state) error {
		for _, label := range d.labels {
			if label.DeletedAt == nil && contains(ids, label.ID) {
				out = append(out, label)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *labelRepo) List(_ context.Context) ([]domain.Label, error) {
	var out []domain.Label
	err := r.s.read(func(d *state) error {
		for _, label := range d.labels {
			if label.DeletedAt == nil {
				out = append(out, label)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *labelRepo) SoftDelete(_ context.Context, id int64) error {
	return r.s.write(func(d *state) error {
		label, ok := d.labels[id]
		if !ok || label.DeletedAt != nil {
			return repository.ErrNotFound
		}
		now := r.s.now()
		label.DeletedAt = &now
		d.labels[id] = label
		return nil
	})
}

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(_ context.Context, category *domain.Category) error {
	return r.s.write(func(d *state) error {
		for _, existing := range d.categories {
			if existing.Name == category.Name && existing.DeletedAt == nil {
				return repository.ErrDuplicate
			}
		}
		now := r.s.now()
		category.ID = d.nextID()
		category.CreatedAt = now
		category.UpdatedAt = now
		d.categories[category.ID] = *category
		return nil
	})
}

func (r *categoryRepo) Update(_ context.Context, category *domain.Category) error {
	return r.s.write(func(d *state) error {
		current, ok := d.categories[category.ID]
		if !ok || current.DeletedAt != nil {
			return repository.ErrNotFound
		}
		for _, existing := range d.categories {
			if existing.ID != category.ID && existing.Name == category.Name && existing.DeletedAt == nil {
				return repository.ErrDuplicate
			}
		}
		current.Name = category.Name
		current.Description = category.Description
		current.UpdatedAt = r.s.now()
		d.categories[category.ID] = current
		return nil
	})
}

func (r *categoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	var out *domain.Category
	err := r.s.read(func(d *state) error {
		category, ok := d.categories[id]
		if !ok || category.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = &category
		return nil
	})
	return out, err
}

func (r *categoryRepo) GetByIDs(_ context.Context, ids []int64) ([]domain.Category, error) {
	var out []domain.Category
	err := r.s.read(func(d *state) error {
		for _, category := range d.categories {
			if category.DeletedAt == nil && contains(ids, category.ID) {
				out = append(out, category)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *categoryRepo) List(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.s.read(func(d *state) error {
		for _, category := range d.categories {
			if category.DeletedAt == nil {
				out = append(out, category)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *categoryRepo) SoftDelete(_ context.Context, id int64) error {
	return r.s.write(func(d *state) error {
		category, ok := d.categories[id]
		if !ok || category.DeletedAt != nil {
			return repository.ErrNotFound
		}
		now := r.s.now()
		category.DeletedAt = &now
		d.categories[id] = category
		return nil
	})
}
