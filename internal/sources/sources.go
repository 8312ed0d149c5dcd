// internal/sources/sources.go
package sources

import (
	"context"

	"insight-engine/internal/models"
)

// DocumentRepository supplies read-only document metadata for the
// similarity-based recommendation pipeline.
type DocumentRepository interface {
	// RecentByUser returns the user's most recently modified documents,
	// newest first.
	RecentByUser(ctx context.Context, userID string, limit int) ([]models.Document, error)
	// RecentShared returns recently modified documents owned by others,
	// the candidate pool for recommendations.
	RecentShared(ctx context.Context, excludeUserID string, limit int) ([]models.Document, error)
}

// TaskRepository supplies read-only task completion metadata.
type TaskRepository interface {
	// CompletedSince returns tasks completed on or after the cutoff.
	CompletedSince(ctx context.Context, assigneeID string, days int) ([]models.Task, error)
}

// ActivityProvider supplies the aggregate counters the risk rules read.
type ActivityProvider interface {
	Snapshot(ctx context.Context, entityID, entityType string) (*models.ActivitySnapshot, error)
}

// MetricSeriesProvider supplies ordered metric samples for forecasting.
type MetricSeriesProvider interface {
	Series(ctx context.Context, entityID, entityType string, metrics []models.PredictionType) ([]models.MetricSeries, error)
}
