// internal/workers/insights/generate-predictions/models.go
package generatepredictions

type Input struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
	// Metrics restricts the forecast to the named metrics. Empty means every
	// forecastable metric.
	Metrics []string `json:"metrics,omitempty"`
}

type Output struct {
	EntityID           string   `json:"entityId"`
	EntityType         string   `json:"entityType"`
	PredictionsEmitted int      `json:"predictionsEmitted"`
	PredictionIDs      []string `json:"predictionIds,omitempty"`
	SeriesSkipped      int      `json:"seriesSkipped"`
	InsightsPersisted  int      `json:"insightsPersisted"`
	PersistFailures    int      `json:"persistFailures"`
	DurationMillis     int64    `json:"durationMillis"`
}
