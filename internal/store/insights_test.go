// internal/store/insights_test.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

func newInsightStore(t *testing.T) (*PGInsightStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPGInsightStore(db, logger.NewZapAdapter(zaptest.NewLogger(t))), mock
}

func storedInsight(id string) models.Insight {
	return models.Insight{
		ID:               id,
		Type:             models.InsightTypeDocumentRecommendation,
		Title:            "Related document",
		Priority:         models.PriorityInformational,
		Category:         "documents",
		TargetEntityType: "document",
		TargetEntityID:   "doc-1",
		Confidence:       0.72,
		CreatedAt:        time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
}

func insightPayload(t *testing.T, insight models.Insight) []byte {
	payload, err := json.Marshal(insight)
	require.NoError(t, err)
	return payload
}

func TestInsightStore_Save(t *testing.T) {
	store, mock := newInsightStore(t)
	insight := storedInsight("ins-1")

	mock.ExpectExec(`INSERT INTO insights`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.Save(context.Background(), &insight)
	require.NoError(t, err)
	assert.Equal(t, "ins-1", saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsightStore_SaveFillsIdentity(t *testing.T) {
	store, mock := newInsightStore(t)
	insight := storedInsight("")
	insight.CreatedAt = time.Time{}

	mock.ExpectExec(`INSERT INTO insights`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.Save(context.Background(), &insight)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestInsightStore_SaveManyPartialFailure(t *testing.T) {
	store, mock := newInsightStore(t)
	insights := []models.Insight{storedInsight("ins-1"), storedInsight("ins-2"), storedInsight("ins-3")}

	mock.ExpectExec(`INSERT INTO insights`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO insights`).WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectExec(`INSERT INTO insights`).WillReturnResult(sqlmock.NewResult(0, 1))

	saved, failures := store.SaveMany(context.Background(), insights)

	assert.Len(t, saved, 2)
	require.Len(t, failures, 1)
	assert.Equal(t, "ins-2", failures[0].ID)
	assert.Equal(t, errors.ErrCodePersistenceFailure, failures[0].Err.(*errors.StandardError).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsightStore_Fetch(t *testing.T) {
	store, mock := newInsightStore(t)

	rows := sqlmock.NewRows([]string{"payload"}).
		AddRow(insightPayload(t, storedInsight("ins-1"))).
		AddRow(insightPayload(t, storedInsight("ins-2")))
	mock.ExpectQuery(`SELECT payload FROM insights`).WillReturnRows(rows)

	page, err := store.Fetch(context.Background(), InsightFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "ins-1", page.Items[0].ID)
	// Short page: no further results to cursor into.
	assert.Empty(t, page.NextCursor)
}

func TestInsightStore_FetchCursor(t *testing.T) {
	store, mock := newInsightStore(t)

	rows := sqlmock.NewRows([]string{"payload"}).
		AddRow(insightPayload(t, storedInsight("ins-1"))).
		AddRow(insightPayload(t, storedInsight("ins-2")))
	mock.ExpectQuery(`SELECT payload FROM insights`).WillReturnRows(rows)

	page, err := store.Fetch(context.Background(), InsightFilter{Limit: 2, Cursor: "4"})
	require.NoError(t, err)
	// Full page: cursor advances past the scanned rows.
	assert.Equal(t, "6", page.NextCursor)
}

func TestInsightStore_FetchInvalidCursor(t *testing.T) {
	store, _ := newInsightStore(t)

	tests := []string{"abc", "-1", "1.5"}
	for _, cursor := range tests {
		_, err := store.Fetch(context.Background(), InsightFilter{Cursor: cursor})
		require.Error(t, err, "cursor %q", cursor)
		assert.Equal(t, errors.ErrCodeBatchInputInvalid, err.(*errors.StandardError).Code)
	}
}

func TestInsightStore_FetchSkipsMalformedRow(t *testing.T) {
	store, mock := newInsightStore(t)

	// Row without the required confidence field fails record validation.
	malformed := []byte(`{"id":"ins-bad","type":"document-recommendation","priority":"informational"}`)
	rows := sqlmock.NewRows([]string{"payload"}).
		AddRow(insightPayload(t, storedInsight("ins-1"))).
		AddRow(malformed).
		AddRow([]byte(`not json at all`))
	mock.ExpectQuery(`SELECT payload FROM insights`).WillReturnRows(rows)

	page, err := store.Fetch(context.Background(), InsightFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ins-1", page.Items[0].ID)
}

func TestInsightStore_UpdateNotFound(t *testing.T) {
	store, mock := newInsightStore(t)
	insight := storedInsight("ins-missing")

	mock.ExpectExec(`UPDATE insights`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &insight)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRecord, err.(*errors.StandardError).Code)
}

func TestInsightStore_Delete(t *testing.T) {
	store, mock := newInsightStore(t)

	mock.ExpectExec(`DELETE FROM insights`).
		WithArgs("ins-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "ins-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
