// internal/workers/insights/evaluate-activity-risk/handler.go
package evaluateactivityrisk

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
	"insight-engine/internal/models"
	"insight-engine/internal/store"
)

const (
	TaskType = "evaluate-activity-risk"
)

type riskEngine interface {
	EvaluateRisk(ctx context.Context, snapshot models.ActivitySnapshot) []models.Insight
}

type activityProvider interface {
	Snapshot(ctx context.Context, entityID, entityType string) (*models.ActivitySnapshot, error)
}

type insightSaver interface {
	SaveMany(ctx context.Context, insights []models.Insight) ([]models.Insight, []store.SaveFailure)
}

type Handler struct {
	config       *Config
	engine       riskEngine
	activity     activityProvider
	insights     insightSaver
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, eng riskEngine, activity activityProvider, insights insightSaver, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		engine:       eng,
		activity:     activity,
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

// Execute evaluates the risk rules over the entity's latest activity
// snapshot. A missing snapshot completes the job with nothing to report
// rather than failing it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.EntityID == "" || input.EntityType == "" {
		return nil, errors.NewBatchInputInvalidError("entityId and entityType are required")
	}

	start := time.Now()

	snapshot, err := h.activity.Snapshot(ctx, input.EntityID, input.EntityType)
	if err != nil {
		if stdErr, ok := err.(*errors.StandardError); ok && stdErr.IsSkipCondition() {
			h.logger.Info("no activity snapshot available, nothing to evaluate", map[string]interface{}{
				"entityId":   input.EntityID,
				"entityType": input.EntityType,
			})
			return &Output{
				EntityID:        input.EntityID,
				EntityType:      input.EntityType,
				SnapshotMissing: true,
				DurationMillis:  time.Since(start).Milliseconds(),
			}, nil
		}
		return nil, err
	}

	insights := h.engine.EvaluateRisk(ctx, *snapshot)

	saved, persistFailures := h.insights.SaveMany(ctx, insights)
	if len(persistFailures) > 0 {
		metrics.StoreFailures.WithLabelValues("insights").Add(float64(len(persistFailures)))
	}

	ids := make([]string, 0, len(saved))
	for _, ins := range saved {
		ids = append(ids, ins.ID)
	}

	output := &Output{
		EntityID:          input.EntityID,
		EntityType:        input.EntityType,
		InsightsGenerated: len(insights),
		InsightsPersisted: len(saved),
		InsightIDs:        ids,
		PersistFailures:   len(persistFailures),
		DurationMillis:    time.Since(start).Milliseconds(),
	}
	if len(insights) > 0 {
		// Ranked output: the first insight carries the highest priority.
		output.HighestPriority = string(insights[0].Priority)
	}

	return output, nil
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
