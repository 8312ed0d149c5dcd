// internal/workers/insights/aggregate-insight-analytics/handler_test.go
package aggregateinsightanalytics

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/engine/analytics"
	"insight-engine/internal/models"
	"insight-engine/internal/store"
)

var (
	periodStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, FetchPageSize: 2}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

// pagedInsightFetcher serves fixed-size pages the way the store does, for
// exercising the cursor walk.
type pagedInsightFetcher struct {
	insights []models.Insight
	pages    int
}

func (f *pagedInsightFetcher) Fetch(_ context.Context, filter store.InsightFilter) (*store.InsightPage, error) {
	f.pages++
	offset := 0
	if filter.Cursor != "" {
		offset, _ = strconv.Atoi(filter.Cursor)
	}
	end := offset + filter.Limit
	if end > len(f.insights) {
		end = len(f.insights)
	}
	page := &store.InsightPage{Items: f.insights[offset:end]}
	if end-offset == filter.Limit {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

type stubInteractionFetcher struct {
	interactions []models.Interaction
	filter       store.InteractionFilter
	err          error
}

func (s *stubInteractionFetcher) Fetch(_ context.Context, filter store.InteractionFilter) ([]models.Interaction, error) {
	s.filter = filter
	return s.interactions, s.err
}

type stubTrainingSaver struct {
	points   []models.TrainingDataPoint
	failures []store.SaveFailure
}

func (s *stubTrainingSaver) SaveMany(_ context.Context, points []models.TrainingDataPoint) ([]models.TrainingDataPoint, []store.SaveFailure) {
	s.points = points
	if len(s.failures) > 0 {
		return nil, s.failures
	}
	return points, nil
}

func periodInsight(id string, actionTaken bool) models.Insight {
	return models.Insight{
		ID:            id,
		Type:          models.InsightTypeDocumentRecommendation,
		Priority:      models.PriorityInformational,
		Confidence:    0.8,
		CreatedAt:     periodStart.Add(24 * time.Hour),
		IsActionTaken: actionTaken,
	}
}

func newTestHandler(t *testing.T, insights insightFetcher, interactions interactionFetcher, training trainingDataSaver) *Handler {
	log := createTestLogger(t)
	return NewHandler(createTestConfig(), analytics.New(log), insights, interactions, training, log)
}

func TestExecute_Success(t *testing.T) {
	fetcher := &pagedInsightFetcher{insights: []models.Insight{
		periodInsight("a", true),
		periodInsight("b", false),
		periodInsight("c", false),
	}}
	interactions := &stubInteractionFetcher{interactions: []models.Interaction{
		{ID: "evt-1", Timestamp: periodStart.Add(time.Hour)},
	}}
	h := newTestHandler(t, fetcher, interactions, &stubTrainingSaver{})

	output, err := h.Execute(context.Background(), &Input{PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)

	assert.Equal(t, 3, output.InsightsScanned)
	assert.Equal(t, 1, output.InteractionsScanned)
	assert.Equal(t, 3, output.Snapshot.TotalInsights)
	assert.Equal(t, 1, output.Snapshot.TotalInteractions)
	assert.InDelta(t, 1.0/3.0, output.Snapshot.ActionTakenRate, 1e-9)
	assert.False(t, output.TrainingRowExported)

	// Interactions are pre-filtered to the period at the store.
	require.NotNil(t, interactions.filter.From)
	assert.Equal(t, periodStart, *interactions.filter.From)
	require.NotNil(t, interactions.filter.To)
	assert.Equal(t, periodEnd, *interactions.filter.To)
}

func TestExecute_WalksEveryPage(t *testing.T) {
	var insights []models.Insight
	for i := 0; i < 5; i++ {
		insights = append(insights, periodInsight(strconv.Itoa(i), false))
	}
	fetcher := &pagedInsightFetcher{insights: insights}
	h := newTestHandler(t, fetcher, &stubInteractionFetcher{}, &stubTrainingSaver{})

	output, err := h.Execute(context.Background(), &Input{PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)

	assert.Equal(t, 5, output.InsightsScanned)
	// Page size 2 over 5 rows: three pages, the last one short.
	assert.Equal(t, 3, fetcher.pages)
}

func TestExecute_InvalidPeriod(t *testing.T) {
	h := newTestHandler(t, &pagedInsightFetcher{}, &stubInteractionFetcher{}, &stubTrainingSaver{})

	tests := []struct {
		name  string
		input *Input
	}{
		{name: "nil input", input: nil},
		{name: "zero start", input: &Input{PeriodEnd: periodEnd}},
		{name: "zero end", input: &Input{PeriodStart: periodStart}},
		{name: "end before start", input: &Input{PeriodStart: periodEnd, PeriodEnd: periodStart}},
		{name: "end equals start", input: &Input{PeriodStart: periodStart, PeriodEnd: periodStart}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeBatchInputInvalid, err.(*errors.StandardError).Code)
		})
	}
}

func TestExecute_TrainingExport(t *testing.T) {
	fetcher := &pagedInsightFetcher{insights: []models.Insight{periodInsight("a", true)}}
	training := &stubTrainingSaver{}
	h := newTestHandler(t, fetcher, &stubInteractionFetcher{}, training)

	output, err := h.Execute(context.Background(), &Input{
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		ExportTrainingData: true,
	})
	require.NoError(t, err)

	assert.True(t, output.TrainingRowExported)
	require.Len(t, training.points, 1)
	point := training.points[0]
	assert.Equal(t, "analytics-period", point.EntityType)
	assert.Equal(t, periodStart.Format(time.RFC3339), point.EntityID)
	assert.Equal(t, 1.0, point.Features["totalInsights"])
	assert.Equal(t, 1.0, point.Target) // every insight in the period acted on
}

func TestExecute_TrainingExportFailureIsNotFatal(t *testing.T) {
	fetcher := &pagedInsightFetcher{insights: []models.Insight{periodInsight("a", false)}}
	training := &stubTrainingSaver{failures: []store.SaveFailure{
		{ID: "point-1", Err: errors.NewPersistenceFailureError("training-data-point", assert.AnError)},
	}}
	h := newTestHandler(t, fetcher, &stubInteractionFetcher{}, training)

	output, err := h.Execute(context.Background(), &Input{
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		ExportTrainingData: true,
	})
	require.NoError(t, err)
	assert.False(t, output.TrainingRowExported)
}

func TestExecute_InteractionFetchFailure(t *testing.T) {
	interactions := &stubInteractionFetcher{err: errors.NewQueryExecutionFailedError("interactions-fetch", assert.AnError)}
	h := newTestHandler(t, &pagedInsightFetcher{}, interactions, &stubTrainingSaver{})

	_, err := h.Execute(context.Background(), &Input{PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeQueryExecutionFailed, err.(*errors.StandardError).Code)
}
