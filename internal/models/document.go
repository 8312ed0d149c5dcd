// internal/models/document.go
package models

import "time"

// Document is the read-only view of a stored document the recommendation
// pipeline compares by title and tags.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags,omitempty"`
	OwnerID    string    `json:"ownerId,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Task is the read-only view of a task record used for duration series and
// completion metadata.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}
