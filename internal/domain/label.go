package domain

import "time"

// Label is a coloured tag attached to tickets.
type Label struct {
	ID          int64
	Name        string
	Color       string
	Description *string
	CreatedBy   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}
