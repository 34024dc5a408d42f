package dto

import "time"

// LabelRequest creates or replaces a label.
type LabelRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Color       string  `json:"color" validate:"required,len=7,startswith=#"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// CategoryRequest creates or replaces a category.
type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// LabelResponse renders a label.
type LabelResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryResponse renders a category.
type CategoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
