// internal/workers/insights/evaluate-activity-risk/models.go
package evaluateactivityrisk

type Input struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
}

type Output struct {
	EntityID          string   `json:"entityId"`
	EntityType        string   `json:"entityType"`
	InsightsGenerated int      `json:"insightsGenerated"`
	InsightsPersisted int      `json:"insightsPersisted"`
	InsightIDs        []string `json:"insightIds,omitempty"`
	HighestPriority   string   `json:"highestPriority,omitempty"`
	PersistFailures   int      `json:"persistFailures"`
	SnapshotMissing   bool     `json:"snapshotMissing"`
	DurationMillis    int64    `json:"durationMillis"`
}
