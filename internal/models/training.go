// internal/models/training.go
package models

import "time"

// TrainingDataPoint is an exported feature row used by the analytics/training
// export path. The generation pipeline never reads these back.
type TrainingDataPoint struct {
	ID         string             `json:"id"`
	EntityType string             `json:"entityType"`
	EntityID   string             `json:"entityId"`
	Features   map[string]float64 `json:"features"`
	Target     float64            `json:"target"`
	Timestamp  time.Time          `json:"timestamp"`
	Labels     []string           `json:"labels,omitempty"`
}
