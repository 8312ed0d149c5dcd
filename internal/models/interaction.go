// internal/models/interaction.go
package models

import "time"

// InteractionType is the kind of user event recorded against an insight.
type InteractionType string

const (
	InteractionViewed           InteractionType = "viewed"
	InteractionDismissed        InteractionType = "dismissed"
	InteractionActionTaken      InteractionType = "action-taken"
	InteractionFeedbackProvided InteractionType = "feedback-provided"
	InteractionShared           InteractionType = "shared"
	InteractionBookmarked       InteractionType = "bookmarked"
)

// Interaction is an append-only log row of a user touching an insight.
type Interaction struct {
	ID              string            `json:"id"`
	InsightID       string            `json:"insightId"`
	UserID          string            `json:"userId"`
	InteractionType InteractionType   `json:"interactionType"`
	Timestamp       time.Time         `json:"timestamp"`
	DurationSeconds int               `json:"durationSeconds,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}
