package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
)

// LabelRepository persists labels.
type LabelRepository interface {
	Create(ctx context.Context, label *domain.Label) error
	Update(ctx context.Context, label *domain.Label) error
	GetByID(ctx context.Context, id int64) (*domain.Label, error)
	GetByName(ctx context.Context, name string) (*domain.Label, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Label, error)
	List(ctx context.Context) ([]domain.Label, error)
	SoftDelete(ctx context.Context, id int64) error
}

type labelRepository struct {
	db DBTX
}

// NewLabelRepository constructs repository.
func NewLabelRepository(db DBTX) LabelRepository {
	return &labelRepository{db: db}
}

const labelColumns = `id, name, color, description, created_by, created_at, updated_at, deleted_at`

func (r *labelRepository) Create(ctx context.Context, label *domain.Label) error {
	const query = `
        INSERT INTO labels (name, color, description, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, label.Name, label.Color, label.Description, label.CreatedBy).
		Scan(&label.ID, &label.CreatedAt, &label.UpdatedAt)
	return mapWriteError(err)
}

func (r *labelRepository) Update(ctx context.Context, label *domain.Label) error {
	const query = `
        UPDATE labels SET name=$1, color=$2, description=$3, updated_at=NOW()
        WHERE id=$4 AND deleted_at IS NULL`
	return requireAffected(r.db.Exec(ctx, query, label.Name, label.Color, label.Description, label.ID))
}

func (r *labelRepository) GetByID(ctx context.Context, id int64) (*domain.Label, error) {
	query := `SELECT ` + labelColumns + ` FROM labels WHERE id=$1 AND deleted_at IS NULL`
	label, err := scanLabel(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return label, nil
}

func (r *labelRepository) GetByName(ctx context.Context, name string) (*domain.Label, error) {
	query := `SELECT ` + labelColumns + ` FROM labels WHERE name=$1 AND deleted_at IS NULL`
	label, err := scanLabel(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return nil, notFound(err)
	}
	return label, nil
}

func (r *labelRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Label, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + labelColumns + ` FROM labels WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY id`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return scanLabels(rows)
}

func (r *labelRepository) List(ctx context.Context) ([]domain.Label, error) {
	query := `SELECT ` + labelColumns + ` FROM labels WHERE deleted_at IS NULL ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanLabels(rows)
}

func (r *labelRepository) SoftDelete(ctx context.Context, id int64) error {
	return requireAffected(r.db.Exec(ctx, `UPDATE labels SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id))
}

func scanLabel(row pgx.Row) (*domain.Label, error) {
	var label domain.Label
	if err := row.Scan(
		&label.ID,
		&label.Name,
		&label.Color,
		&label.Description,
		&label.CreatedBy,
		&label.CreatedAt,
		&label.UpdatedAt,
		&label.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &label, nil
}

func scanLabels(rows pgx.Rows) ([]domain.Label, error) {
	defer rows.Close()
	var result []domain.Label
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *label)
	}
	return result, rows.Err()
}
