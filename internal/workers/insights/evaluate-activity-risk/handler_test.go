// internal/workers/insights/evaluate-activity-risk/handler_test.go
package evaluateactivityrisk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
	"insight-engine/internal/store"
)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

type stubRiskEngine struct {
	insights []models.Insight
}

func (s *stubRiskEngine) EvaluateRisk(context.Context, models.ActivitySnapshot) []models.Insight {
	return s.insights
}

type stubActivityProvider struct {
	snapshot *models.ActivitySnapshot
	err      error
}

func (s *stubActivityProvider) Snapshot(context.Context, string, string) (*models.ActivitySnapshot, error) {
	return s.snapshot, s.err
}

type stubInsightSaver struct {
	failures []store.SaveFailure
}

func (s *stubInsightSaver) SaveMany(_ context.Context, insights []models.Insight) ([]models.Insight, []store.SaveFailure) {
	return insights, s.failures
}

func riskInsight(id string, priority models.InsightPriority) models.Insight {
	return models.Insight{
		ID:               id,
		Type:             models.InsightTypeComplianceAlert,
		TargetEntityType: "outlet",
		TargetEntityID:   "outlet-1",
		Priority:         priority,
		Confidence:       0.9,
	}
}

func TestExecute_Success(t *testing.T) {
	eng := &stubRiskEngine{insights: []models.Insight{
		riskInsight("a", models.PriorityCritical),
		riskInsight("b", models.PriorityMedium),
	}}
	activity := &stubActivityProvider{snapshot: &models.ActivitySnapshot{
		EntityID:   "outlet-1",
		EntityType: "outlet",
	}}
	h := NewHandler(createTestConfig(), eng, activity, &stubInsightSaver{}, createTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{EntityID: "outlet-1", EntityType: "outlet"})
	require.NoError(t, err)

	assert.Equal(t, 2, output.InsightsGenerated)
	assert.Equal(t, 2, output.InsightsPersisted)
	assert.Equal(t, []string{"a", "b"}, output.InsightIDs)
	assert.Equal(t, "critical", output.HighestPriority)
	assert.False(t, output.SnapshotMissing)
}

func TestExecute_MissingSnapshotCompletesCleanly(t *testing.T) {
	activity := &stubActivityProvider{err: errors.NewInsufficientDataError("activity-snapshot", 0, 1)}
	h := NewHandler(createTestConfig(), &stubRiskEngine{}, activity, &stubInsightSaver{}, createTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{EntityID: "outlet-1", EntityType: "outlet"})
	require.NoError(t, err)

	assert.True(t, output.SnapshotMissing)
	assert.Equal(t, 0, output.InsightsGenerated)
	assert.Empty(t, output.HighestPriority)
}

func TestExecute_SnapshotQueryFailure(t *testing.T) {
	activity := &stubActivityProvider{err: errors.NewQueryExecutionFailedError("activity-snapshot", assert.AnError)}
	h := NewHandler(createTestConfig(), &stubRiskEngine{}, activity, &stubInsightSaver{}, createTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{EntityID: "outlet-1", EntityType: "outlet"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeQueryExecutionFailed, err.(*errors.StandardError).Code)
}

func TestExecute_MissingInput(t *testing.T) {
	h := NewHandler(createTestConfig(), &stubRiskEngine{}, &stubActivityProvider{}, &stubInsightSaver{}, createTestLogger(t))

	tests := []struct {
		name  string
		input *Input
	}{
		{name: "nil input", input: nil},
		{name: "missing entity id", input: &Input{EntityType: "outlet"}},
		{name: "missing entity type", input: &Input{EntityID: "outlet-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeBatchInputInvalid, err.(*errors.StandardError).Code)
		})
	}
}

func TestExecute_HealthyEntityEmitsNothing(t *testing.T) {
	activity := &stubActivityProvider{snapshot: &models.ActivitySnapshot{
		EntityID:   "outlet-1",
		EntityType: "outlet",
	}}
	h := NewHandler(createTestConfig(), &stubRiskEngine{}, activity, &stubInsightSaver{}, createTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{EntityID: "outlet-1", EntityType: "outlet"})
	require.NoError(t, err)

	assert.Equal(t, 0, output.InsightsGenerated)
	assert.Empty(t, output.HighestPriority)
	assert.False(t, output.SnapshotMissing)
}
