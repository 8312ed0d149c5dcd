// internal/store/predictions.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/common/validation"
	"insight-engine/internal/models"
)

// PGPredictionStore persists forecast records. Predictions are append-only;
// every forecast run inserts new rows.
type PGPredictionStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPGPredictionStore(db *sql.DB, log logger.Logger) *PGPredictionStore {
	return &PGPredictionStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "prediction-store"}),
	}
}

func (s *PGPredictionStore) SaveMany(ctx context.Context, predictions []models.Prediction) ([]models.Prediction, []SaveFailure) {
	saved := make([]models.Prediction, 0, len(predictions))
	var failures []SaveFailure

	for i := range predictions {
		p := &predictions[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}

		payload, err := json.Marshal(p)
		if err == nil {
			_, err = s.db.ExecContext(ctx, `
				INSERT INTO predictions (id, entity_id, entity_type, prediction_type,
				                         predicted_value, confidence, timeframe, created_at, payload)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				p.ID, p.EntityID, p.EntityType, p.PredictionType,
				p.PredictedValue, p.Confidence, p.Timeframe, p.CreatedAt, payload)
		}
		if err != nil {
			persistErr := errors.NewPersistenceFailureError("prediction", err)
			s.logger.WithError(persistErr).Error("failed to persist prediction", map[string]interface{}{
				"predictionId":   p.ID,
				"entityId":       p.EntityID,
				"predictionType": p.PredictionType,
			})
			failures = append(failures, SaveFailure{ID: p.ID, Err: persistErr})
			continue
		}
		saved = append(saved, *p)
	}

	return saved, failures
}

func (s *PGPredictionStore) FetchByEntity(ctx context.Context, entityID, entityType string, types []models.PredictionType) ([]models.Prediction, error) {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM predictions
		WHERE entity_id = $1 AND entity_type = $2
		  AND ($3::text[] IS NULL OR prediction_type = ANY($3))
		ORDER BY created_at DESC`,
		entityID, entityType, stringArray(names))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("predictions-fetch")
		}
		return nil, errors.NewQueryExecutionFailedError("predictions-fetch", err)
	}
	defer rows.Close()

	var predictions []models.Prediction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.NewQueryExecutionFailedError("predictions-fetch", err)
		}
		prediction, ok := s.decodePrediction(payload)
		if !ok {
			continue
		}
		predictions = append(predictions, *prediction)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("predictions-fetch", err)
	}

	return predictions, nil
}

func (s *PGPredictionStore) decodePrediction(payload []byte) (*models.Prediction, bool) {
	var record map[string]interface{}
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.WithError(err).Warn("skipping undecodable prediction row", nil)
		return nil, false
	}
	if err := validation.ValidatePredictionRecord(record); err != nil {
		id, _ := record["id"].(string)
		s.logger.WithError(err).Warn("skipping malformed prediction row", map[string]interface{}{
			"predictionId": id,
		})
		return nil, false
	}

	var prediction models.Prediction
	if err := json.Unmarshal(payload, &prediction); err != nil {
		s.logger.WithError(err).Warn("skipping undecodable prediction row", nil)
		return nil, false
	}
	return &prediction, true
}
