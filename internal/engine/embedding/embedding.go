// internal/engine/embedding/embedding.go
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/common/metrics"
)

// Config holds the embedding capability settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Service wraps the pre-trained text-embedding capability. The capability is
// optional: a Service with no client reports Available() == false and all
// similarity-based generation degrades to "no recommendations".
//
// The service is read-only after construction and safe to share across
// concurrent batch branches.
type Service struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	timeout  time.Duration
	cache    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewService creates the embedding service. An empty API key leaves the
// capability unloaded. cache may be nil; caching is then disabled.
func NewService(cfg Config, cache *redis.Client, log logger.Logger) *Service {
	s := &Service{
		model:    openai.EmbeddingModel(cfg.Model),
		timeout:  cfg.Timeout,
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "embedding"}),
	}
	if s.model == "" {
		s.model = openai.SmallEmbedding3
	}
	if s.timeout == 0 {
		s.timeout = 10 * time.Second
	}

	if cfg.APIKey == "" {
		s.logger.Warn("embedding capability not configured, similarity recommendations disabled", nil)
		return s
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	s.client = openai.NewClientWithConfig(clientCfg)
	return s
}

// Available reports whether the embedding capability is loaded.
func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// Embed turns short text into a fixed-length numeric vector. Cache errors are
// logged and treated as misses; only API failures surface as errors.
func (s *Service) Embed(ctx context.Context, text string) ([]float64, *errors.StandardError) {
	if !s.Available() {
		return nil, errors.NewCapabilityUnavailableError("text-embedding")
	}

	normalized := normalize(text)
	if normalized == "" {
		return nil, errors.NewBatchInputInvalidError("empty text")
	}

	key := s.cacheKey(normalized)
	if vec, ok := s.cacheGet(ctx, key); ok {
		metrics.EmbeddingCacheHits.Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheMisses.Inc()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Input: []string{normalized},
		Model: s.model,
	})
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, errors.NewEmbeddingAPITimeoutError()
		}
		return nil, errors.NewEmbeddingAPIFailedError(err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.NewEmbeddingAPIFailedError(errEmptyResponse)
	}

	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float64(v)
	}

	s.cacheSet(ctx, key, vec)
	return vec, nil
}

var errEmptyResponse = &emptyResponseError{}

type emptyResponseError struct{}

func (*emptyResponseError) Error() string { return "embeddings response contained no data" }

func (s *Service) cacheKey(normalized string) string {
	sum := sha256.Sum256([]byte(string(s.model) + "\x00" + normalized))
	return "embed:" + hex.EncodeToString(sum[:])
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]float64, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(errors.NewCacheUnavailableError(err)).Warn("embedding cache read failed", nil)
		}
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		s.logger.Warn("embedding cache entry malformed", map[string]interface{}{"key": key})
		return nil, false
	}
	return vec, true
}

func (s *Service) cacheSet(ctx context.Context, key string, vec []float64) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.WithError(errors.NewCacheUnavailableError(err)).Warn("embedding cache write failed", nil)
	}
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Cosine returns the cosine similarity between two vectors in [-1, 1].
// Mismatched lengths or a zero-magnitude vector score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
