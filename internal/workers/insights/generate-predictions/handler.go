// internal/workers/insights/generate-predictions/handler.go
package generatepredictions

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
	"insight-engine/internal/engine"
	"insight-engine/internal/engine/forecast"
	"insight-engine/internal/models"
	"insight-engine/internal/store"
)

const (
	TaskType = "generate-predictions"
)

type forecastEngine interface {
	GeneratePredictions(ctx context.Context, series []models.MetricSeries) (*engine.ForecastResult, error)
}

type seriesProvider interface {
	Series(ctx context.Context, entityID, entityType string, metrics []models.PredictionType) ([]models.MetricSeries, error)
}

type predictionSaver interface {
	SaveMany(ctx context.Context, predictions []models.Prediction) ([]models.Prediction, []store.SaveFailure)
}

type insightSaver interface {
	SaveMany(ctx context.Context, insights []models.Insight) ([]models.Insight, []store.SaveFailure)
}

type Handler struct {
	config       *Config
	engine       forecastEngine
	series       seriesProvider
	predictions  predictionSaver
	insights     insightSaver
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, eng forecastEngine, series seriesProvider, predictions predictionSaver, insights insightSaver, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		engine:       eng,
		series:       series,
		predictions:  predictions,
		insights:     insights,
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

// Execute loads the entity's metric series, forecasts them, and persists the
// predictions plus their mirrored insights.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.EntityID == "" || input.EntityType == "" {
		return nil, errors.NewBatchInputInvalidError("entityId and entityType are required")
	}

	start := time.Now()

	requested := h.requestedMetrics(input.Metrics)
	series, err := h.series.Series(ctx, input.EntityID, input.EntityType, requested)
	if err != nil {
		return nil, err
	}

	result, err := h.engine.GeneratePredictions(ctx, series)
	if err != nil {
		return nil, err
	}

	savedPredictions, predictionFailures := h.predictions.SaveMany(ctx, result.Predictions)
	if len(predictionFailures) > 0 {
		metrics.StoreFailures.WithLabelValues("predictions").Add(float64(len(predictionFailures)))
	}

	savedInsights, insightFailures := h.insights.SaveMany(ctx, result.Insights)
	if len(insightFailures) > 0 {
		metrics.StoreFailures.WithLabelValues("insights").Add(float64(len(insightFailures)))
	}

	ids := make([]string, 0, len(savedPredictions))
	for _, p := range savedPredictions {
		ids = append(ids, p.ID)
	}

	return &Output{
		EntityID:           input.EntityID,
		EntityType:         input.EntityType,
		PredictionsEmitted: len(result.Predictions),
		PredictionIDs:      ids,
		SeriesSkipped:      len(series) - len(result.Predictions),
		InsightsPersisted:  len(savedInsights),
		PersistFailures:    len(predictionFailures) + len(insightFailures),
		DurationMillis:     time.Since(start).Milliseconds(),
	}, nil
}

// requestedMetrics maps the raw metric names to prediction types, dropping
// anything that is not forecastable. Empty input means every forecastable
// metric.
func (h *Handler) requestedMetrics(names []string) []models.PredictionType {
	if len(names) == 0 {
		return forecast.ForecastableMetrics()
	}

	var requested []models.PredictionType
	for _, name := range names {
		metric := models.PredictionType(name)
		if forecast.MinimumSamples(metric) == 0 {
			h.logger.Warn("ignoring unforecastable metric", map[string]interface{}{
				"metric": name,
			})
			continue
		}
		requested = append(requested, metric)
	}
	return requested
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
