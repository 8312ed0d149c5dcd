// internal/store/insights.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/common/validation"
	"insight-engine/internal/models"
)

const defaultFetchLimit = 50

// PGInsightStore persists insights in postgres. The full record lives in a
// JSONB payload column; the filterable fields are duplicated into indexed
// columns.
type PGInsightStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPGInsightStore(db *sql.DB, log logger.Logger) *PGInsightStore {
	return &PGInsightStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "insight-store"}),
	}
}

func (s *PGInsightStore) Save(ctx context.Context, insight *models.Insight) (*models.Insight, error) {
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(insight)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("insight", err)
	}

	var expiresAt interface{}
	if insight.ExpiresAt != nil {
		expiresAt = *insight.ExpiresAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO insights (id, type, priority, category, target_entity_type, target_entity_id,
		                      confidence, created_at, expires_at, is_action_taken, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			priority = EXCLUDED.priority,
			confidence = EXCLUDED.confidence,
			expires_at = EXCLUDED.expires_at,
			is_action_taken = EXCLUDED.is_action_taken,
			payload = EXCLUDED.payload`,
		insight.ID, insight.Type, insight.Priority, insight.Category,
		insight.TargetEntityType, insight.TargetEntityID,
		insight.Confidence, insight.CreatedAt, expiresAt, insight.IsActionTaken, payload)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("insight", err)
	}

	return insight, nil
}

// SaveMany persists each insight independently. A failing item is reported
// and the rest of the batch continues.
func (s *PGInsightStore) SaveMany(ctx context.Context, insights []models.Insight) ([]models.Insight, []SaveFailure) {
	saved := make([]models.Insight, 0, len(insights))
	var failures []SaveFailure

	for i := range insights {
		persisted, err := s.Save(ctx, &insights[i])
		if err != nil {
			s.logger.WithError(err).Error("failed to persist insight", map[string]interface{}{
				"insightId": insights[i].ID,
			})
			failures = append(failures, SaveFailure{ID: insights[i].ID, Err: err})
			continue
		}
		saved = append(saved, *persisted)
	}

	return saved, failures
}

func (s *PGInsightStore) Fetch(ctx context.Context, filter InsightFilter) (*InsightPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultFetchLimit
	}
	offset := 0
	if filter.Cursor != "" {
		parsed, err := strconv.Atoi(filter.Cursor)
		if err != nil || parsed < 0 {
			return nil, errors.NewBatchInputInvalidError("cursor must be a non-negative integer")
		}
		offset = parsed
	}

	query := `
		SELECT payload FROM insights
		WHERE ($1::text[] IS NULL OR type = ANY($1))
		  AND ($2::text[] IS NULL OR priority = ANY($2))
		  AND ($3::text[] IS NULL OR category = ANY($3))
		  AND ($4::bool = FALSE OR expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`

	rows, err := s.db.QueryContext(ctx, query,
		stringArray(typeNames(filter.Types)),
		stringArray(priorityNames(filter.Priorities)),
		stringArray(filter.Categories),
		filter.ActiveOnly, limit, offset)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError("insights-fetch")
		}
		return nil, errors.NewQueryExecutionFailedError("insights-fetch", err)
	}
	defer rows.Close()

	var (
		items   []models.Insight
		scanned int
	)
	for rows.Next() {
		scanned++
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.NewQueryExecutionFailedError("insights-fetch", err)
		}
		insight, ok := s.decodeInsight(payload)
		if !ok {
			continue
		}
		items = append(items, *insight)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("insights-fetch", err)
	}

	page := &InsightPage{Items: items}
	if scanned == limit {
		page.NextCursor = strconv.Itoa(offset + scanned)
	}

	return page, nil
}

// decodeInsight validates the stored payload before decoding it. Malformed
// rows are skipped and logged, never a fatal abort.
func (s *PGInsightStore) decodeInsight(payload []byte) (*models.Insight, bool) {
	var record map[string]interface{}
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.WithError(err).Warn("skipping undecodable insight row", nil)
		return nil, false
	}
	if err := validation.ValidateInsightRecord(record); err != nil {
		id, _ := record["id"].(string)
		s.logger.WithError(err).Warn("skipping malformed insight row", map[string]interface{}{
			"insightId": id,
		})
		return nil, false
	}

	var insight models.Insight
	if err := json.Unmarshal(payload, &insight); err != nil {
		s.logger.WithError(err).Warn("skipping undecodable insight row", nil)
		return nil, false
	}
	return &insight, true
}

func (s *PGInsightStore) Update(ctx context.Context, insight *models.Insight) error {
	payload, err := json.Marshal(insight)
	if err != nil {
		return errors.NewPersistenceFailureError("insight", err)
	}

	var expiresAt interface{}
	if insight.ExpiresAt != nil {
		expiresAt = *insight.ExpiresAt
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE insights
		SET priority = $2, confidence = $3, expires_at = $4, is_action_taken = $5, payload = $6
		WHERE id = $1`,
		insight.ID, insight.Priority, insight.Confidence, expiresAt, insight.IsActionTaken, payload)
	if err != nil {
		return errors.NewPersistenceFailureError("insight", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.NewInvalidRecordError("insight", insight.ID, "not found")
	}

	return nil
}

func (s *PGInsightStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM insights WHERE id = $1`, id)
	if err != nil {
		return errors.NewPersistenceFailureError("insight", err)
	}
	return nil
}

// stringArray returns a pq array for non-empty slices and SQL NULL otherwise,
// so empty filters match everything.
func stringArray(values []string) interface{} {
	if len(values) == 0 {
		return nil
	}
	return pq.Array(values)
}

func typeNames(types []models.InsightType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}

func priorityNames(priorities []models.InsightPriority) []string {
	names := make([]string, 0, len(priorities))
	for _, p := range priorities {
		names = append(names, string(p))
	}
	return names
}
