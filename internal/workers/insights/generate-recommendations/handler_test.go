// internal/workers/insights/generate-recommendations/handler_test.go
package generaterecommendations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/engine"
	"insight-engine/internal/models"
	"insight-engine/internal/store"
)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

type stubEngine struct {
	insights []models.Insight
	failures []engine.BranchFailure
	err      error
}

func (s *stubEngine) GenerateRecommendations(context.Context, string) ([]models.Insight, []engine.BranchFailure, error) {
	return s.insights, s.failures, s.err
}

type stubSaver struct {
	failEvery int
	saved     []models.Insight
}

func (s *stubSaver) SaveMany(_ context.Context, insights []models.Insight) ([]models.Insight, []store.SaveFailure) {
	var ok []models.Insight
	var failures []store.SaveFailure
	for i, ins := range insights {
		if s.failEvery > 0 && (i+1)%s.failEvery == 0 {
			failures = append(failures, store.SaveFailure{ID: ins.ID, Err: errors.NewPersistenceFailureError("insight", assert.AnError)})
			continue
		}
		ok = append(ok, ins)
	}
	s.saved = ok
	return ok, failures
}

func recommendation(id string, confidence float64) models.Insight {
	return models.Insight{
		ID:               id,
		Type:             models.InsightTypeDocumentRecommendation,
		TargetEntityType: "document",
		TargetEntityID:   "doc-" + id,
		Priority:         models.PriorityInformational,
		Confidence:       confidence,
	}
}

func TestExecute_Success(t *testing.T) {
	eng := &stubEngine{
		insights: []models.Insight{recommendation("a", 0.9), recommendation("b", 0.7)},
	}
	saver := &stubSaver{}
	h := NewHandler(createTestConfig(), eng, saver, createTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, "user-1", output.UserID)
	assert.Equal(t, 2, output.InsightsGenerated)
	assert.Equal(t, 2, output.InsightsPersisted)
	assert.Equal(t, []string{"a", "b"}, output.InsightIDs)
	assert.Equal(t, 0, output.BranchFailures)
	assert.Equal(t, 0, output.PersistFailures)
	assert.GreaterOrEqual(t, output.DurationMillis, int64(0))
}

func TestExecute_MissingUserID(t *testing.T) {
	h := NewHandler(createTestConfig(), &stubEngine{}, &stubSaver{}, createTestLogger(t))

	tests := []struct {
		name  string
		input *Input
	}{
		{name: "nil input", input: nil},
		{name: "empty user id", input: &Input{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			stdErr, ok := err.(*errors.StandardError)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeBatchInputInvalid, stdErr.Code)
		})
	}
}

func TestExecute_PartialPersistFailure(t *testing.T) {
	eng := &stubEngine{
		insights: []models.Insight{recommendation("a", 0.9), recommendation("b", 0.7), recommendation("c", 0.6)},
		failures: []engine.BranchFailure{{ItemID: "doc-x", Err: errors.NewEmbeddingAPITimeoutError()}},
	}
	saver := &stubSaver{failEvery: 2} // every second save fails
	h := NewHandler(createTestConfig(), eng, saver, createTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, 3, output.InsightsGenerated)
	assert.Equal(t, 2, output.InsightsPersisted)
	assert.Equal(t, 1, output.BranchFailures)
	assert.Equal(t, 1, output.PersistFailures)
	assert.Equal(t, []string{"a", "c"}, output.InsightIDs)
}

func TestExecute_EngineError(t *testing.T) {
	eng := &stubEngine{err: errors.NewBatchFailedError(assert.AnError)}
	h := NewHandler(createTestConfig(), eng, &stubSaver{}, createTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBatchFailed, err.(*errors.StandardError).Code)
}
