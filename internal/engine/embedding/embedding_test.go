// internal/engine/embedding/embedding_test.go
package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight-engine/internal/common/errors"
	"insight-engine/internal/common/logger"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{name: "identical vectors", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, expected: 1.0},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, expected: -1.0},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, expected: 0.0},
		{name: "zero vector", a: []float64{1, 2, 3}, b: []float64{0, 0, 0}, expected: 0.0},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1, 2, 3}, expected: 0.0},
		{name: "both empty", a: nil, b: nil, expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_Bounds(t *testing.T) {
	vectors := [][]float64{
		{0.5, -0.2, 0.8},
		{3, 1, -4},
		{0.001, 0.999, 0.2},
		{-7, -7, -7},
	}

	for _, a := range vectors {
		for _, b := range vectors {
			s := Cosine(a, b)
			assert.GreaterOrEqual(t, s, -1.0-1e-9)
			assert.LessOrEqual(t, s, 1.0+1e-9)
		}
		assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
	}
}

func TestService_Unavailable(t *testing.T) {
	s := NewService(Config{}, nil, logger.NewTestLogger(t))

	assert.False(t, s.Available())

	vec, err := s.Embed(context.Background(), "quarterly compliance report")
	assert.Nil(t, vec)
	assert.NotNil(t, err)
	assert.Equal(t, errors.ErrCodeCapabilityUnavailable, err.Code)
	assert.True(t, err.IsSkipCondition())
}

func TestService_CacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewService(Config{
		Model:    "text-embedding-3-small",
		CacheTTL: time.Hour,
	}, cache, logger.NewTestLogger(t))

	ctx := context.Background()
	key := s.cacheKey("quarterly compliance report")

	_, ok := s.cacheGet(ctx, key)
	assert.False(t, ok, "empty cache must miss")

	want := []float64{0.1, -0.2, 0.3}
	s.cacheSet(ctx, key, want)

	got, ok := s.cacheGet(ctx, key)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// Keys are scoped per model and normalized text.
	assert.NotEqual(t, key, s.cacheKey("another text"))
}

func TestService_CacheMalformedEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewService(Config{CacheTTL: time.Hour}, cache, logger.NewTestLogger(t))

	ctx := context.Background()
	key := s.cacheKey("some text")
	require.NoError(t, mr.Set(key, "not-json"))

	_, ok := s.cacheGet(ctx, key)
	assert.False(t, ok)
}

func TestService_CacheDownIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewService(Config{CacheTTL: time.Hour}, cache, logger.NewTestLogger(t))
	mr.Close()

	ctx := context.Background()
	key := s.cacheKey("some text")

	// Read and write failures degrade to a miss, never an error.
	_, ok := s.cacheGet(ctx, key)
	assert.False(t, ok)
	s.cacheSet(ctx, key, []float64{0.1})

	unavailable := errors.NewCacheUnavailableError(assert.AnError)
	assert.Equal(t, errors.ErrCodeCacheUnavailable, unavailable.Code)
	assert.True(t, unavailable.Retryable)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "quarterly report q3", normalize("  Quarterly\tREPORT   Q3 "))
	assert.Equal(t, "", normalize("   "))
}
