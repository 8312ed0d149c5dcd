// internal/models/prediction.go
package models

import "time"

// PredictionType identifies the metric a forecast targets.
type PredictionType string

const (
	PredictionSales              PredictionType = "sales"
	PredictionTaskCompletion     PredictionType = "task-completion"
	PredictionAuditScore         PredictionType = "audit-score"
	PredictionClientSatisfaction PredictionType = "client-satisfaction"
	PredictionTrainingProgress   PredictionType = "training-progress"
	PredictionRiskScore          PredictionType = "risk-score"
)

// Timeframe is the horizon a prediction covers.
type Timeframe string

const (
	TimeframeDaily     Timeframe = "daily"
	TimeframeWeekly    Timeframe = "weekly"
	TimeframeMonthly   Timeframe = "monthly"
	TimeframeQuarterly Timeframe = "quarterly"
	TimeframeAnnual    Timeframe = "annual"
)

// Prediction is a numeric forecast for one metric on one entity.
// Immutable once created; a new forecast run produces a new record.
type Prediction struct {
	ID             string              `json:"id"`
	EntityID       string              `json:"entityId"`
	EntityType     string              `json:"entityType"`
	PredictionType PredictionType      `json:"predictionType"`
	PredictedValue float64             `json:"predictedValue"`
	Confidence     float64             `json:"confidence"`
	Timeframe      Timeframe           `json:"timeframe"`
	Factors        []InfluencingFactor `json:"factors,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// InfluencingFactor explains one contribution to a prediction.
type InfluencingFactor struct {
	Factor      string  `json:"factor"`
	Impact      float64 `json:"impact"` // [-1, 1]
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description,omitempty"`
}
