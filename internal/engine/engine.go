// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"insight-engine/internal/common/logger"
	"insight-engine/internal/common/metrics"
	"insight-engine/internal/common/observability"
	"insight-engine/internal/engine/builder"
	"insight-engine/internal/engine/embedding"
	"insight-engine/internal/engine/forecast"
	"insight-engine/internal/engine/rank"
	"insight-engine/internal/engine/risk"
	"insight-engine/internal/models"
	"insight-engine/internal/sources"
)

// candidatePoolLimit bounds how many shared documents are considered as
// recommendation candidates per batch.
const candidatePoolLimit = 50

// Config bounds the cost of a batch run. These are operational knobs, not
// correctness constants.
type Config struct {
	MaxConcurrency      int
	RecentDocumentCount int
	RecommendationCap   int
}

// Engine is the batch pipeline: embedding/forecast/risk branches fan out per
// source item with no shared mutable state and merge only at the dedup/rank
// stage. Nothing is persisted here; callers own persistence of the returned
// lists.
type Engine struct {
	cfg        Config
	embeddings *embedding.Service
	forecaster *forecast.Forecaster
	evaluator  *risk.Evaluator
	builder    *builder.Builder
	documents  sources.DocumentRepository
	obs        *observability.Observability
	logger     logger.Logger
}

// BranchFailure records one failed parallel branch. Failed branches are
// logged and skipped, never retried by the engine.
type BranchFailure struct {
	ItemID string
	Err    error
}

func New(
	cfg Config,
	embeddings *embedding.Service,
	forecaster *forecast.Forecaster,
	evaluator *risk.Evaluator,
	b *builder.Builder,
	documents sources.DocumentRepository,
	obs *observability.Observability,
	log logger.Logger,
) *Engine {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 5
	}
	if cfg.RecentDocumentCount < 1 {
		cfg.RecentDocumentCount = 5
	}
	if cfg.RecommendationCap < 1 {
		cfg.RecommendationCap = 10
	}
	return &Engine{
		cfg:        cfg,
		embeddings: embeddings,
		forecaster: forecaster,
		evaluator:  evaluator,
		builder:    b,
		documents:  documents,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

// GenerateRecommendations produces the ranked document recommendations for a
// user. When the embedding capability is unavailable the batch degrades to an
// empty list; a batch with zero output is indistinguishable from "nothing to
// report".
func (e *Engine) GenerateRecommendations(ctx context.Context, userID string) ([]models.Insight, []BranchFailure, error) {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "engine.generate-recommendations")
	defer span.End()

	if !e.embeddings.Available() {
		e.logger.Warn("embedding capability unavailable, skipping recommendations", map[string]interface{}{
			"userId": userID,
		})
		e.obs.RecordBatch(ctx, "recommendations", "degraded", time.Since(start))
		return nil, nil, nil
	}

	recent, err := e.documents.RecentByUser(ctx, userID, e.cfg.RecentDocumentCount)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch recent documents: %w", err)
	}
	if len(recent) == 0 {
		e.obs.RecordBatch(ctx, "recommendations", "empty", time.Since(start))
		return nil, nil, nil
	}

	candidates, err := e.documents.RecentShared(ctx, userID, candidatePoolLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch candidate documents: %w", err)
	}

	// Embed the user's recent documents up front; the small fixed count keeps
	// this cheap and the vectors are shared read-only across branches.
	recentVectors := make([][]float64, 0, len(recent))
	for _, doc := range recent {
		vec, embErr := e.embeddings.Embed(ctx, documentText(doc))
		if embErr != nil {
			e.logger.Warn("failed to embed recent document", map[string]interface{}{
				"documentId": doc.ID,
				"error":      embErr.Error(),
			})
			continue
		}
		recentVectors = append(recentVectors, vec)
	}
	if len(recentVectors) == 0 {
		e.obs.RecordBatch(ctx, "recommendations", "degraded", time.Since(start))
		return nil, nil, nil
	}

	type branchResult struct {
		insight *models.Insight
		failure *BranchFailure
	}

	results := make([]branchResult, len(candidates))
	sem := make(chan struct{}, e.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for i, doc := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, doc models.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			vec, embErr := e.embeddings.Embed(ctx, documentText(doc))
			if embErr != nil {
				results[i] = branchResult{failure: &BranchFailure{ItemID: doc.ID, Err: embErr}}
				return
			}

			best := 0.0
			for _, rv := range recentVectors {
				if s := embedding.Cosine(rv, vec); s > best {
					best = s
				}
			}

			if insight, ok := e.builder.FromSimilarity(userID, doc, best); ok {
				results[i] = branchResult{insight: insight}
			}
		}(i, doc)
	}
	wg.Wait()

	var insights []models.Insight
	var failures []BranchFailure
	for _, r := range results {
		if r.failure != nil {
			failures = append(failures, *r.failure)
			metrics.BatchBranchFailures.WithLabelValues("recommendations").Inc()
			e.logger.Warn("recommendation branch failed", map[string]interface{}{
				"documentId": r.failure.ItemID,
				"error":      r.failure.Err.Error(),
			})
			continue
		}
		if r.insight != nil {
			insights = append(insights, *r.insight)
		}
	}

	ranked := rank.Recommendations(insights, e.cfg.RecommendationCap)
	for _, ins := range ranked {
		metrics.InsightsGenerated.WithLabelValues(string(ins.Type)).Inc()
	}

	metrics.BatchDuration.WithLabelValues("recommendations").Observe(time.Since(start).Seconds())
	e.obs.RecordBatch(ctx, "recommendations", "ok", time.Since(start))

	e.logger.Info("recommendation batch completed", map[string]interface{}{
		"userId":     userID,
		"candidates": len(candidates),
		"output":     len(ranked),
		"failures":   len(failures),
	})

	return ranked, failures, nil
}

// ForecastResult pairs the predictions of a batch with the insights that
// mirror them in the ranked feed.
type ForecastResult struct {
	Predictions []models.Prediction
	Insights    []models.Insight
	Failures    []BranchFailure
}

// GeneratePredictions forecasts each series independently and in parallel.
// Series below their metric's minimum sample count are skipped, not failed.
func (e *Engine) GeneratePredictions(ctx context.Context, series []models.MetricSeries) (*ForecastResult, error) {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "engine.generate-predictions")
	defer span.End()

	type branchResult struct {
		prediction *models.Prediction
		skipped    bool
	}

	results := make([]branchResult, len(series))
	sem := make(chan struct{}, e.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for i, s := range series {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, s models.MetricSeries) {
			defer wg.Done()
			defer func() { <-sem }()

			prediction, fErr := e.forecaster.Forecast(s)
			if fErr != nil {
				// Insufficient data is the expected steady state for sparse
				// metrics; it produces nothing rather than failing the batch.
				results[i] = branchResult{skipped: true}
				metrics.PredictionsSkipped.WithLabelValues(string(s.Metric)).Inc()
				return
			}
			results[i] = branchResult{prediction: prediction}
		}(i, s)
	}
	wg.Wait()

	out := &ForecastResult{}
	for _, r := range results {
		if r.prediction == nil {
			continue
		}
		out.Predictions = append(out.Predictions, *r.prediction)
		out.Insights = append(out.Insights, *e.builder.FromPrediction(*r.prediction))
		metrics.PredictionsEmitted.WithLabelValues(string(r.prediction.PredictionType)).Inc()
	}

	out.Insights = rank.Graded(out.Insights)

	metrics.BatchDuration.WithLabelValues("predictions").Observe(time.Since(start).Seconds())
	e.obs.RecordBatch(ctx, "predictions", "ok", time.Since(start))

	e.logger.Info("prediction batch completed", map[string]interface{}{
		"series":      len(series),
		"predictions": len(out.Predictions),
	})

	return out, nil
}

// EvaluateRisk runs the stateless risk rules over a snapshot and returns the
// priority-ordered insights. The computation is synchronous and CPU-bound.
func (e *Engine) EvaluateRisk(ctx context.Context, snapshot models.ActivitySnapshot) []models.Insight {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "engine.evaluate-risk")
	defer span.End()

	findings := e.evaluator.Evaluate(snapshot)

	var insights []models.Insight
	for _, f := range findings {
		if insight, ok := e.builder.FromFinding(f, snapshot); ok {
			insights = append(insights, *insight)
		}
	}

	ranked := rank.Graded(insights)
	for _, ins := range ranked {
		metrics.InsightsGenerated.WithLabelValues(string(ins.Type)).Inc()
	}

	metrics.BatchDuration.WithLabelValues("risk").Observe(time.Since(start).Seconds())
	e.obs.RecordBatch(ctx, "risk", "ok", time.Since(start))

	return ranked
}

// documentText is the embedded representation of a document: its title plus
// tags, matching how documents are compared for relatedness.
func documentText(doc models.Document) string {
	if len(doc.Tags) == 0 {
		return doc.Title
	}
	return doc.Title + " " + strings.Join(doc.Tags, " ")
}
