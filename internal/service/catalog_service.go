package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-ticket-service/pkg/util/errorutil"
)

var labelColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CatalogService manages labels and categories.
type CatalogService struct {
	uow repository.UnitOfWork
}

// NewCatalogService constructs the service.
func NewCatalogService(uow repository.UnitOfWork) *CatalogService {
	return &CatalogService{uow: uow}
}

// LabelInput carries label fields for create and update.
type LabelInput struct {
	Name        string
	Color       string
	Description *string
}

// CategoryInput carries category fields for create and update.
type CategoryInput struct {
	Name        string
	Description *string
}

func (in LabelInput) normalize() (LabelInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.ToUpper(strings.TrimSpace(in.Color))
	in.Description = trimmedOrNil(in.Description)
	if in.Name == "" {
		return in, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if !labelColorPattern.MatchString(in.Color) {
		return in, apperrors.NewValidationError("color must look like #RRGGBB", map[string]any{"field": "color"})
	}
	return in, nil
}

// CreateLabel stores a label with a unique name.
func (s *CatalogService) CreateLabel(ctx context.Context, creatorID int64, input LabelInput) (*domain.Label, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}
	label := &domain.Label{Name: input.Name, Color: input.Color, Description: input.Description, CreatedBy: &creatorID}
	if err := s.uow.Store().Labels.Create(ctx, label); err != nil {
		return nil, mapRepoError("label", err)
	}
	return label, nil
}

// UpdateLabel replaces a label's fields.
func (s *CatalogService) UpdateLabel(ctx context.Context, id int64, input LabelInput) (*domain.Label, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}
	labels := s.uow.Store().Labels
	label, err := labels.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("label", err)
	}
	label.Name, label.Color, label.Description = input.Name, input.Color, input.Description
	if err := labels.Update(ctx, label); err != nil {
		return nil, mapRepoError("label", err)
	}
	return labels.GetByID(ctx, id)
}

// GetLabel returns a live label.
func (s *CatalogService) GetLabel(ctx context.Context, id int64) (*domain.Label, error) {
	label, err := s.uow.Store().Labels.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("label", err)
	}
	return label, nil
}

// ListLabels returns every live label ordered by name.
func (s *CatalogService) ListLabels(ctx context.Context) ([]domain.Label, error) {
	return s.uow.Store().Labels.List(ctx)
}

// DeleteLabel soft deletes a label.
func (s *CatalogService) DeleteLabel(ctx context.Context, id int64) error {
	return mapRepoError("label", s.uow.Store().Labels.SoftDelete(ctx, id))
}

func (in CategoryInput) normalize() (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimmedOrNil(in.Description)
	if in.Name == "" {
		return in, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	return in, nil
}

// CreateCategory stores a category with a unique name.
func (s *CatalogService) CreateCategory(ctx context.Context, creatorID int64, input CategoryInput) (*domain.Category, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}
	category := &domain.Category{Name: input.Name, Description: input.Description, CreatedBy: &creatorID}
	if err := s.uow.Store().Categories.Create(ctx, category); err != nil {
		return nil, mapRepoError("category", err)
	}
	return category, nil
}

// UpdateCategory replaces a category's fields.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (*domain.Category, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}
	categories := s.uow.Store().Categories
	category, err := categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("category", err)
	}
	category.Name, category.Description = input.Name, input.Description
	if err := categories.Update(ctx, category); err != nil {
		return nil, mapRepoError("category", err)
	}
	return categories.GetByID(ctx, id)
}

// GetCategory returns a live category.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.uow.Store().Categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("category", err)
	}
	return category, nil
}

// ListCategories returns every live category ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.uow.Store().Categories.List(ctx)
}

// DeleteCategory soft deletes a category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return mapRepoError("category", s.uow.Store().Categories.SoftDelete(ctx, id))
}
