// internal/store/interactions.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

// PGInteractionLog is the append-only postgres record of users touching
// insights.
type PGInteractionLog struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPGInteractionLog(db *sql.DB, log logger.Logger) *PGInteractionLog {
	return &PGInteractionLog{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "interaction-log"}),
	}
}

func (l *PGInteractionLog) Record(ctx context.Context, interaction *models.Interaction) error {
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now().UTC()
	}

	metadata, err := json.Marshal(interaction.Metadata)
	if err != nil {
		return errors.NewPersistenceFailureError("interaction", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO interactions (id, insight_id, user_id, interaction_type,
		                          occurred_at, duration_seconds, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		interaction.ID, interaction.InsightID, interaction.UserID,
		interaction.InteractionType, interaction.Timestamp,
		interaction.DurationSeconds, metadata)
	if err != nil {
		return errors.NewPersistenceFailureError("interaction", err)
	}

	return nil
}

func (l *PGInteractionLog) Fetch(ctx context.Context, filter InteractionFilter) ([]models.Interaction, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, insight_id, user_id, interaction_type, occurred_at, duration_seconds, metadata
		FROM interactions
		WHERE ($1::text = '' OR insight_id = $1)
		  AND ($2::text = '' OR user_id = $2)
		  AND ($3::timestamptz IS NULL OR occurred_at >= $3)
		  AND ($4::timestamptz IS NULL OR occurred_at < $4)
		ORDER BY occurred_at ASC`,
		filter.InsightID, filter.UserID, nullableTime(filter.From), nullableTime(filter.To))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("interactions-fetch")
		}
		return nil, errors.NewQueryExecutionFailedError("interactions-fetch", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		var (
			interaction models.Interaction
			duration    sql.NullInt64
			metadata    []byte
		)
		if err := rows.Scan(&interaction.ID, &interaction.InsightID, &interaction.UserID,
			&interaction.InteractionType, &interaction.Timestamp, &duration, &metadata); err != nil {
			return nil, errors.NewQueryExecutionFailedError("interactions-fetch", err)
		}
		if duration.Valid {
			interaction.DurationSeconds = int(duration.Int64)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &interaction.Metadata); err != nil {
				l.logger.WithError(err).Warn("dropping unreadable interaction metadata", map[string]interface{}{
					"interactionId": interaction.ID,
				})
			}
		}
		interactions = append(interactions, interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("interactions-fetch", err)
	}

	return interactions, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
