package domain

import "time"

// Attachment stores metadata for an uploaded file; bytes live in object storage.
type Attachment struct {
	ID         int64
	TicketID   int64
	NoteID     *int64
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedBy int64
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// TicketViewPermission grants an individual read access to a restricted ticket.
type TicketViewPermission struct {
	ID        int64
	TicketID  int64
	UserID    int64
	CreatedBy int64
	CreatedAt time.Time
}
