package domain

import "time"

// Category groups tickets by business area.
type Category struct {
	ID          int64
	Name        string
	Description *string
	CreatedBy   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}
