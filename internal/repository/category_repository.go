package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// CategoryRepository persists categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	SoftDelete(ctx context.Context, id int64) error
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository constructs repository.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, description, created_by, created_at, updated_at, deleted_at`

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, created_by)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, category.Name, category.Description, category.CreatedBy).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	return mapWriteError(err)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, description=$2, updated_at=NOW()
        WHERE id=$3 AND deleted_at IS NULL`
	return requireAffected(r.db.Exec(ctx, query, category.Name, category.Description, category.ID))
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id=$1 AND deleted_at IS NULL`
	category, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return category, nil
}

func (r *categoryRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY id`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE deleted_at IS NULL ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

func (r *categoryRepository) SoftDelete(ctx context.Context, id int64) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE categories SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id))
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var category domain.Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedBy,
		&category.CreatedAt,
		&category.UpdatedAt,
		&category.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func scanCategories(rows pgx.Rows) ([]domain.Category, error) {
	defer rows.Close()
	var result []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *category)
	}
	return result, rows.Err()
}
