// internal/workers/insights/aggregate-insight-analytics/models.go
package aggregateinsightanalytics

import (
	"time"

	"insight-engine/internal/models"
)

type Input struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	// ExportTrainingData additionally writes the period summary as a
	// training feature row.
	ExportTrainingData bool `json:"exportTrainingData,omitempty"`
}

type Output struct {
	Snapshot            models.AnalyticsSnapshot `json:"snapshot"`
	InsightsScanned     int                      `json:"insightsScanned"`
	InteractionsScanned int                      `json:"interactionsScanned"`
	TrainingRowExported bool                     `json:"trainingRowExported"`
	DurationMillis      int64                    `json:"durationMillis"`
}
