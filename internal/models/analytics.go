// internal/models/analytics.go
package models

import "time"

// AnalyticsSnapshot is a derived period summary over persisted insights and
// interactions. Recomputed on demand, never stored as a source of truth.
type AnalyticsSnapshot struct {
	PeriodStart           time.Time               `json:"periodStart"`
	PeriodEnd             time.Time               `json:"periodEnd"`
	TotalInsights         int                     `json:"totalInsights"`
	CountsByType          map[InsightType]int     `json:"countsByType"`
	CountsByPriority      map[InsightPriority]int `json:"countsByPriority"`
	AverageConfidence     float64                 `json:"averageConfidence"`
	ActionTakenRate       float64                 `json:"actionTakenRate"`
	AverageFeedbackRating float64                 `json:"averageFeedbackRating"`
	TopCategories         []CategoryCount         `json:"topCategories,omitempty"`
	TotalInteractions     int                     `json:"totalInteractions"`
	GeneratedAt           time.Time               `json:"generatedAt"`
}

// CategoryCount pairs a category with its frequency inside the period.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
