// internal/engine/rank/rank_test.go
package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight-engine/internal/models"
)

func candidate(id string, insightType models.InsightType, targetID string, confidence float64, priority models.InsightPriority) models.Insight {
	return models.Insight{
		ID:               id,
		Type:             insightType,
		TargetEntityType: "document",
		TargetEntityID:   targetID,
		Confidence:       confidence,
		Priority:         priority,
	}
}

func TestDedupe(t *testing.T) {
	candidates := []models.Insight{
		candidate("a", models.InsightTypeDocumentRecommendation, "doc-1", 0.6, models.PriorityInformational),
		candidate("b", models.InsightTypeDocumentRecommendation, "doc-2", 0.7, models.PriorityInformational),
		candidate("c", models.InsightTypeDocumentRecommendation, "doc-1", 0.9, models.PriorityInformational),
		candidate("d", models.InsightTypeDocumentRecommendation, "doc-1", 0.8, models.PriorityInformational),
	}

	out := Dedupe(candidates)
	require.Len(t, out, 2)

	byTarget := map[string]models.Insight{}
	for _, ins := range out {
		byTarget[ins.TargetEntityID] = ins
	}
	// Highest confidence survives per target.
	assert.Equal(t, "c", byTarget["doc-1"].ID)
	assert.Equal(t, "b", byTarget["doc-2"].ID)
}

func TestDedupe_AtMostOnePerTarget(t *testing.T) {
	var candidates []models.Insight
	for i := 0; i < 20; i++ {
		target := "doc-1"
		if i%3 == 0 {
			target = "doc-2"
		}
		candidates = append(candidates, candidate("", models.InsightTypeDocumentRecommendation, target, float64(i)/20, models.PriorityInformational))
	}

	out := Dedupe(candidates)
	seen := map[string]bool{}
	for _, ins := range out {
		key := ins.TargetEntityType + "/" + ins.TargetEntityID
		assert.False(t, seen[key], "duplicate target %s", key)
		seen[key] = true
	}
}

func TestSortByConfidence_NonIncreasing(t *testing.T) {
	insights := []models.Insight{
		candidate("a", models.InsightTypeDocumentRecommendation, "doc-1", 0.55, models.PriorityInformational),
		candidate("b", models.InsightTypeDocumentRecommendation, "doc-2", 0.91, models.PriorityInformational),
		candidate("c", models.InsightTypeDocumentRecommendation, "doc-3", 0.77, models.PriorityInformational),
	}

	SortByConfidence(insights)
	for i := 1; i < len(insights); i++ {
		assert.GreaterOrEqual(t, insights[i-1].Confidence, insights[i].Confidence)
	}
}

func TestSortByPriority(t *testing.T) {
	insights := []models.Insight{
		candidate("info", models.InsightTypeDocumentRecommendation, "doc-1", 0.99, models.PriorityInformational),
		candidate("critical", models.InsightTypeComplianceAlert, "outlet-1", 0.5, models.PriorityCritical),
		candidate("high-a", models.InsightTypeComplianceAlert, "outlet-2", 0.6, models.PriorityHigh),
		candidate("high-b", models.InsightTypeRiskAssessment, "outlet-3", 0.9, models.PriorityHigh),
		candidate("medium", models.InsightTypeWorkflowImprovement, "outlet-4", 0.8, models.PriorityMedium),
	}

	SortByPriority(insights)

	ids := make([]string, len(insights))
	for i, ins := range insights {
		ids[i] = ins.ID
	}
	// Priority rank first, confidence breaks ties.
	assert.Equal(t, []string{"critical", "high-b", "high-a", "medium", "info"}, ids)
}

func TestTruncate(t *testing.T) {
	insights := make([]models.Insight, 15)

	assert.Len(t, Truncate(insights, 10), 10)
	assert.Len(t, Truncate(insights, 20), 15)
	assert.Len(t, Truncate(insights, 0), 15)
}

func TestRecommendations_EndToEnd(t *testing.T) {
	candidates := []models.Insight{
		candidate("a", models.InsightTypeDocumentRecommendation, "doc-1", 0.52, models.PriorityInformational),
		candidate("b", models.InsightTypeDocumentRecommendation, "doc-1", 0.81, models.PriorityInformational),
		candidate("c", models.InsightTypeDocumentRecommendation, "doc-2", 0.64, models.PriorityInformational),
		candidate("d", models.InsightTypeDocumentRecommendation, "doc-3", 0.95, models.PriorityInformational),
	}

	out := Recommendations(candidates, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "d", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}

func TestGraded_KeepsDistinctTypesPerEntity(t *testing.T) {
	// One snapshot can trip several rules at once; only same-type duplicates
	// collapse.
	candidates := []models.Insight{
		candidate("compliance", models.InsightTypeComplianceAlert, "outlet-1", 0.95, models.PriorityCritical),
		candidate("risk", models.InsightTypeRiskAssessment, "outlet-1", 0.85, models.PriorityHigh),
		candidate("workflow", models.InsightTypeWorkflowImprovement, "outlet-1", 0.8, models.PriorityMedium),
		candidate("compliance-dup", models.InsightTypeComplianceAlert, "outlet-1", 0.9, models.PriorityHigh),
	}

	out := Graded(candidates)
	require.Len(t, out, 3)
	assert.Equal(t, "compliance", out[0].ID)
	assert.Equal(t, "risk", out[1].ID)
	assert.Equal(t, "workflow", out[2].ID)

	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].Priority.Rank(), out[i].Priority.Rank())
	}
}
