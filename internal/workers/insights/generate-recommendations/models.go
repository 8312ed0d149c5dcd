// internal/workers/insights/generate-recommendations/models.go
package generaterecommendations

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	UserID            string   `json:"userId"`
	InsightsGenerated int      `json:"insightsGenerated"`
	InsightsPersisted int      `json:"insightsPersisted"`
	InsightIDs        []string `json:"insightIds,omitempty"`
	BranchFailures    int      `json:"branchFailures"`
	PersistFailures   int      `json:"persistFailures"`
	DurationMillis    int64    `json:"durationMillis"`
}
