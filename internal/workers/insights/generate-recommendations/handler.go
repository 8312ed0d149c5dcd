// internal/workers/insights/generate-recommendations/handler.go
package generaterecommendations

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
	"insight-engine/internal/models"
	"insight-engine/internal/store"
)

const (
	TaskType = "generate-recommendations"
)

type recommendationEngine interface {
	GenerateRecommendations(ctx context.Context, userID string) ([]models.Insight, []engine.BranchFailure, error)
}

type insightSaver interface {
	SaveMany(ctx context.Context, insights []models.Insight) ([]models.Insight, []store.SaveFailure)
}

type Handler struct {
	config       *Config
	engine       recommendationEngine
	insights     insightSaver
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, eng recommendationEngine, insights insightSaver, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		engine:       eng,
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

// Execute runs the recommendation batch and persists whatever it produced.
// Per-item persistence failures are logged and reported in the output, not
// fatal to the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.NewBatchInputInvalidError("userId is required")
	}

	start := time.Now()

	insights, branchFailures, err := h.engine.GenerateRecommendations(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	for _, failure := range branchFailures {
		h.logger.WithError(failure.Err).Warn("recommendation branch failed", map[string]interface{}{
			"userId":     input.UserID,
			"documentId": failure.ItemID,
		})
	}

	saved, persistFailures := h.insights.SaveMany(ctx, insights)
	if len(persistFailures) > 0 {
		metrics.StoreFailures.WithLabelValues("insights").Add(float64(len(persistFailures)))
	}

	ids := make([]string, 0, len(saved))
	for _, ins := range saved {
		ids = append(ids, ins.ID)
	}

	return &Output{
		UserID:            input.UserID,
		InsightsGenerated: len(insights),
		InsightsPersisted: len(saved),
		InsightIDs:        ids,
		BranchFailures:    len(branchFailures),
		PersistFailures:   len(persistFailures),
		DurationMillis:    time.Since(start).Milliseconds(),
	}, nil
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
