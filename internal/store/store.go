// internal/store/store.go
package store

import (
	"context"
	"time"

	"insight-engine/internal/models"
)

// SaveFailure reports one item of a batch save that could not be persisted.
// The rest of the batch commits regardless.
type SaveFailure struct {
	ID  string
	Err error
}

// InsightFilter narrows a Fetch call. Empty slices match everything.
type InsightFilter struct {
	Types      []models.InsightType
	Priorities []models.InsightPriority
	Categories []string
	// ActiveOnly excludes insights whose expiry has passed.
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// InsightPage is one page of fetched insights. NextCursor is empty when the
// page is the last one.
type InsightPage struct {
	Items      []models.Insight
	NextCursor string
}

// InsightStore persists generated insights and exposes the consumer-side
// mutations (feedback, action-taken, expiry).
type InsightStore interface {
	Save(ctx context.Context, insight *models.Insight) (*models.Insight, error)
	// SaveMany tolerates partial failure: it returns the insights that were
	// persisted and a per-item failure for each one that was not.
	SaveMany(ctx context.Context, insights []models.Insight) ([]models.Insight, []SaveFailure)
	Fetch(ctx context.Context, filter InsightFilter) (*InsightPage, error)
	Update(ctx context.Context, insight *models.Insight) error
	Delete(ctx context.Context, id string) error
}

// PredictionStore persists forecast records. Predictions are immutable, so
// there is no update path.
type PredictionStore interface {
	SaveMany(ctx context.Context, predictions []models.Prediction) ([]models.Prediction, []SaveFailure)
	FetchByEntity(ctx context.Context, entityID, entityType string, types []models.PredictionType) ([]models.Prediction, error)
}

// InteractionFilter narrows an interaction Fetch. Zero-value fields match
// everything.
type InteractionFilter struct {
	InsightID string
	UserID    string
	From      *time.Time
	To        *time.Time
}

// InteractionLog is the append-only record of users touching insights.
type InteractionLog interface {
	Record(ctx context.Context, interaction *models.Interaction) error
	Fetch(ctx context.Context, filter InteractionFilter) ([]models.Interaction, error)
}

// TrainingDataStore holds exported feature rows for the training path.
type TrainingDataStore interface {
	SaveMany(ctx context.Context, points []models.TrainingDataPoint) ([]models.TrainingDataPoint, []SaveFailure)
	Fetch(ctx context.Context, entityType string, from, to *time.Time, limit int) ([]models.TrainingDataPoint, error)
}
