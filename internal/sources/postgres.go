// internal/sources/postgres.go
package sources

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

// PGTaskRepository reads task completion records from postgres.
type PGTaskRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPGTaskRepository(db *sql.DB, log logger.Logger) *PGTaskRepository {
	return &PGTaskRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "task-repository"}),
	}
}

// CompletedSince returns tasks completed on or after the cutoff, oldest first.
func (r *PGTaskRepository) CompletedSince(ctx context.Context, assigneeID string, days int) ([]models.Task, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, assignee_id, created_at, completed_at, is_completed
		FROM tasks
		WHERE assignee_id = $1 AND is_completed = TRUE AND completed_at >= $2
		ORDER BY completed_at ASC`, assigneeID, cutoff)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("tasks-completed-since")
		}
		return nil, errors.NewQueryExecutionFailedError("tasks-completed-since", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.Title, &t.AssigneeID, &t.CreatedAt, &completedAt, &t.IsCompleted); err != nil {
			return nil, errors.NewQueryExecutionFailedError("tasks-completed-since", err)
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("tasks-completed-since", err)
	}

	return tasks, nil
}

// activityWindowDays bounds how far back derived task statistics reach.
const activityWindowDays = 30

// PGActivityProvider assembles the aggregate counters the risk rules read
// from the activity tables, filling duration statistics from task history
// when the snapshot row does not carry them.
type PGActivityProvider struct {
	db     *sql.DB
	tasks  TaskRepository
	logger logger.Logger
}

func NewPGActivityProvider(db *sql.DB, tasks TaskRepository, log logger.Logger) *PGActivityProvider {
	return &PGActivityProvider{
		db:     db,
		tasks:  tasks,
		logger: log.WithFields(map[string]interface{}{"component": "activity-provider"}),
	}
}

func (p *PGActivityProvider) Snapshot(ctx context.Context, entityID, entityType string) (*models.ActivitySnapshot, error) {
	snapshot := &models.ActivitySnapshot{
		EntityID:   entityID,
		EntityType: entityType,
		CapturedAt: time.Now().UTC(),
	}

	var avgDuration sql.NullFloat64
	err := p.db.QueryRowContext(ctx, `
		SELECT completion_rate, avg_task_duration_hours, benchmark_duration_hours,
		       overdue_mandatory_courses, failed_audits
		FROM activity_snapshots
		WHERE entity_id = $1 AND entity_type = $2
		ORDER BY captured_at DESC
		LIMIT 1`, entityID, entityType).Scan(
		&snapshot.CompletionRate,
		&avgDuration,
		&snapshot.BenchmarkDurationHours,
		&snapshot.OverdueMandatoryCourses,
		&snapshot.FailedAudits,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewInsufficientDataError("activity-snapshot", 0, 1)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("activity-snapshot")
		}
		return nil, errors.NewQueryExecutionFailedError("activity-snapshot", err)
	}

	if avgDuration.Valid && avgDuration.Float64 > 0 {
		snapshot.AvgTaskDurationHours = avgDuration.Float64
	} else {
		snapshot.AvgTaskDurationHours = p.deriveAvgTaskDuration(ctx, entityID)
	}

	return snapshot, nil
}

// deriveAvgTaskDuration computes the mean completion time in hours from the
// entity's recent completed tasks. Best effort: failures or an empty history
// leave the duration at zero, which keeps the duration rule quiet.
func (p *PGActivityProvider) deriveAvgTaskDuration(ctx context.Context, entityID string) float64 {
	tasks, err := p.tasks.CompletedSince(ctx, entityID, activityWindowDays)
	if err != nil {
		p.logger.WithError(err).Warn("failed to derive task duration from history", map[string]interface{}{
			"entityId": entityID,
		})
		return 0
	}

	var totalHours float64
	counted := 0
	for _, t := range tasks {
		if t.CompletedAt == nil || !t.CompletedAt.After(t.CreatedAt) {
			continue
		}
		totalHours += t.CompletedAt.Sub(t.CreatedAt).Hours()
		counted++
	}
	if counted == 0 {
		return 0
	}
	return totalHours / float64(counted)
}

// PGMetricSeriesProvider reads ordered metric samples for forecasting.
type PGMetricSeriesProvider struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPGMetricSeriesProvider(db *sql.DB, log logger.Logger) *PGMetricSeriesProvider {
	return &PGMetricSeriesProvider{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "metric-series-provider"}),
	}
}

// Series returns one series per requested metric, samples oldest first.
// Metrics with no samples still yield an empty series so the caller can
// report them as skipped.
func (p *PGMetricSeriesProvider) Series(ctx context.Context, entityID, entityType string, metrics []models.PredictionType) ([]models.MetricSeries, error) {
	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, string(m))
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT metric, observed_at, value
		FROM metric_samples
		WHERE entity_id = $1 AND entity_type = $2 AND metric = ANY($3)
		ORDER BY metric, observed_at ASC`, entityID, entityType, pq.Array(names))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("metric-samples")
		}
		return nil, errors.NewQueryExecutionFailedError("metric-samples", err)
	}
	defer rows.Close()

	byMetric := make(map[models.PredictionType][]models.MetricSample)
	for rows.Next() {
		var metric string
		var sample models.MetricSample
		if err := rows.Scan(&metric, &sample.Timestamp, &sample.Value); err != nil {
			return nil, errors.NewQueryExecutionFailedError("metric-samples", err)
		}
		byMetric[models.PredictionType(metric)] = append(byMetric[models.PredictionType(metric)], sample)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("metric-samples", err)
	}

	series := make([]models.MetricSeries, 0, len(metrics))
	for _, m := range metrics {
		series = append(series, models.MetricSeries{
			EntityID:   entityID,
			EntityType: entityType,
			Metric:     m,
			Samples:    byMetric[m],
		})
	}

	return series, nil
}
