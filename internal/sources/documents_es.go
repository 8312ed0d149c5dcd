// internal/sources/documents_es.go
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

// ESDocumentRepository reads document metadata from the document search index.
type ESDocumentRepository struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESDocumentRepository(client *elasticsearch.Client, index string, log logger.Logger) *ESDocumentRepository {
	return &ESDocumentRepository{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "document-repository"}),
	}
}

// RecentByUser returns the user's most recently modified documents, newest first.
func (r *ESDocumentRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]models.Document, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"ownerId": userID},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"modifiedAt": map[string]interface{}{"order": "desc"}},
		},
	}
	return r.search(ctx, query, limit)
}

// RecentShared returns recently modified documents owned by others, the
// candidate pool for recommendations.
func (r *ESDocumentRepository) RecentShared(ctx context.Context, excludeUserID string, limit int) ([]models.Document, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"ownerId": excludeUserID},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"modifiedAt": map[string]interface{}{"order": "desc"}},
		},
	}
	return r.search(ctx, query, limit)
}

func (r *ESDocumentRepository) search(ctx context.Context, query map[string]interface{}, size int) ([]models.Document, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewSearchTimeoutError(r.index)
		}
		return nil, errors.NewSearchQueryFailedError(r.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(r.index, fmt.Errorf("status %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(r.index, err)
	}

	docs := make([]models.Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var doc struct {
			Title      string    `json:"title"`
			Tags       []string  `json:"tags"`
			OwnerID    string    `json:"ownerId"`
			ModifiedAt time.Time `json:"modifiedAt"`
		}
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			// Malformed documents are skipped, not fatal.
			r.logger.Warn("skipping malformed document hit", map[string]interface{}{
				"documentId": hit.ID,
				"error":      err.Error(),
			})
			continue
		}
		docs = append(docs, models.Document{
			ID:         hit.ID,
			Title:      doc.Title,
			Tags:       doc.Tags,
			OwnerID:    doc.OwnerID,
			ModifiedAt: doc.ModifiedAt,
		})
	}

	return docs, nil
}
