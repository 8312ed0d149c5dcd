// internal/store/training.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

// PGTrainingDataStore holds exported feature rows. Write-mostly; the
// generation pipeline never reads these back.
type PGTrainingDataStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPGTrainingDataStore(db *sql.DB, log logger.Logger) *PGTrainingDataStore {
	return &PGTrainingDataStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "training-data-store"}),
	}
}

func (s *PGTrainingDataStore) SaveMany(ctx context.Context, points []models.TrainingDataPoint) ([]models.TrainingDataPoint, []SaveFailure) {
	saved := make([]models.TrainingDataPoint, 0, len(points))
	var failures []SaveFailure

	for i := range points {
		p := &points[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Timestamp.IsZero() {
			p.Timestamp = time.Now().UTC()
		}

		features, err := json.Marshal(p.Features)
		if err == nil {
			_, err = s.db.ExecContext(ctx, `
				INSERT INTO training_data (id, entity_type, entity_id, features, target, observed_at, labels)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.ID, p.EntityType, p.EntityID, features, p.Target, p.Timestamp, pq.Array(p.Labels))
		}
		if err != nil {
			persistErr := errors.NewPersistenceFailureError("training-data-point", err)
			s.logger.WithError(persistErr).Error("failed to persist training data point", map[string]interface{}{
				"pointId":  p.ID,
				"entityId": p.EntityID,
			})
			failures = append(failures, SaveFailure{ID: p.ID, Err: persistErr})
			continue
		}
		saved = append(saved, *p)
	}

	return saved, failures
}

func (s *PGTrainingDataStore) Fetch(ctx context.Context, entityType string, from, to *time.Time, limit int) ([]models.TrainingDataPoint, error) {
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, features, target, observed_at, labels
		FROM training_data
		WHERE entity_type = $1
		  AND ($2::timestamptz IS NULL OR observed_at >= $2)
		  AND ($3::timestamptz IS NULL OR observed_at < $3)
		ORDER BY observed_at DESC
		LIMIT $4`,
		entityType, nullableTime(from), nullableTime(to), limit)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("training-data-fetch")
		}
		return nil, errors.NewQueryExecutionFailedError("training-data-fetch", err)
	}
	defer rows.Close()

	var points []models.TrainingDataPoint
	for rows.Next() {
		var (
			p        models.TrainingDataPoint
			features []byte
			labels   pq.StringArray
		)
		if err := rows.Scan(&p.ID, &p.EntityType, &p.EntityID, &features, &p.Target, &p.Timestamp, &labels); err != nil {
			return nil, errors.NewQueryExecutionFailedError("training-data-fetch", err)
		}
		if len(features) > 0 {
			if err := json.Unmarshal(features, &p.Features); err != nil {
				s.logger.WithError(err).Warn("skipping training row with unreadable features", map[string]interface{}{
					"pointId": p.ID,
				})
				continue
			}
		}
		p.Labels = labels
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("training-data-fetch", err)
	}

	return points, nil
}
