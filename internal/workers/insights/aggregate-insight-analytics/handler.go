// internal/workers/insights/aggregate-insight-analytics/handler.go
package aggregateinsightanalytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/common/metrics"
	"insight-engine/internal/engine/analytics"
	"insight-engine/internal/models"
	"insight-engine/internal/store"
)

const (
	TaskType = "aggregate-insight-analytics"

	trainingEntityType = "analytics-period"
)

type insightFetcher interface {
	Fetch(ctx context.Context, filter store.InsightFilter) (*store.InsightPage, error)
}

type interactionFetcher interface {
	Fetch(ctx context.Context, filter store.InteractionFilter) ([]models.Interaction, error)
}

type trainingDataSaver interface {
	SaveMany(ctx context.Context, points []models.TrainingDataPoint) ([]models.TrainingDataPoint, []store.SaveFailure)
}

type Handler struct {
	config       *Config
	aggregator   *analytics.Aggregator
	insights     insightFetcher
	interactions interactionFetcher
	trainingData trainingDataSaver
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, aggregator *analytics.Aggregator, insights insightFetcher, interactions interactionFetcher, trainingData trainingDataSaver, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		aggregator:   aggregator,
		insights:     insights,
		interactions: interactions,
		trainingData: trainingData,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			errors.NewBatchInputInvalidError(fmt.Sprintf("parse input: %v", err)))
		metrics.WorkerJobsFailed.WithLabelValues(TaskType).Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType).Inc()
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute recomputes the analytics snapshot for the period from persisted
// insight and interaction history. The snapshot is derived data; it is
// returned in the job payload, never stored as a source of truth.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, errors.NewBatchInputInvalidError("periodStart and periodEnd are required")
	}
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, errors.NewBatchInputInvalidError("periodEnd must be after periodStart")
	}

	start := time.Now()

	insights, err := h.fetchAllInsights(ctx)
	if err != nil {
		return nil, err
	}

	interactions, err := h.interactions.Fetch(ctx, store.InteractionFilter{
		From: &input.PeriodStart,
		To:   &input.PeriodEnd,
	})
	if err != nil {
		return nil, err
	}

	snapshot := h.aggregator.Aggregate(input.PeriodStart, input.PeriodEnd, insights, interactions)

	output := &Output{
		Snapshot:            snapshot,
		InsightsScanned:     len(insights),
		InteractionsScanned: len(interactions),
		DurationMillis:      time.Since(start).Milliseconds(),
	}

	if input.ExportTrainingData {
		output.TrainingRowExported = h.exportTrainingRow(ctx, snapshot)
	}

	return output, nil
}

// fetchAllInsights walks every page; the aggregator applies the period window
// itself based on creation time.
func (h *Handler) fetchAllInsights(ctx context.Context) ([]models.Insight, error) {
	var (
		all    []models.Insight
		cursor string
	)
	for {
		page, err := h.insights.Fetch(ctx, store.InsightFilter{
			Limit:  h.config.FetchPageSize,
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// exportTrainingRow writes the period summary as a feature row. Export
// failure is logged, not fatal; the snapshot itself already succeeded.
func (h *Handler) exportTrainingRow(ctx context.Context, snapshot models.AnalyticsSnapshot) bool {
	point := models.TrainingDataPoint{
		EntityType: trainingEntityType,
		EntityID:   snapshot.PeriodStart.UTC().Format(time.RFC3339),
		Features: map[string]float64{
			"totalInsights":         float64(snapshot.TotalInsights),
			"totalInteractions":     float64(snapshot.TotalInteractions),
			"averageConfidence":     snapshot.AverageConfidence,
			"averageFeedbackRating": snapshot.AverageFeedbackRating,
		},
		Target:    snapshot.ActionTakenRate,
		Timestamp: snapshot.GeneratedAt,
	}

	saved, failures := h.trainingData.SaveMany(ctx, []models.TrainingDataPoint{point})
	if len(failures) > 0 {
		metrics.StoreFailures.WithLabelValues("training-data").Add(float64(len(failures)))
		h.logger.WithError(failures[0].Err).Warn("failed to export analytics training row", map[string]interface{}{
			"periodStart": snapshot.PeriodStart,
		})
		return false
	}
	return len(saved) == 1
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.WithError(err).Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.WithError(err).Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
		})
	}
}
