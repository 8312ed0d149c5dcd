// internal/engine/analytics/aggregator.go
package analytics

import (
	"sort"
	"time"

	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

// topCategoryCount caps the category leaderboard in each snapshot.
const topCategoryCount = 5

// Aggregator computes period-level statistics over persisted insights and
// interaction events. All counts and averages treat an empty input set as
// zero, never an error or NaN.
type Aggregator struct {
	logger logger.Logger
	now    func() time.Time
}

func New(log logger.Logger) *Aggregator {
	return &Aggregator{
		logger: log.WithFields(map[string]interface{}{"component": "analytics-aggregator"}),
		now:    time.Now,
	}
}

// Aggregate derives the snapshot for insights created in the window and the
// window's interactions. Callers are expected to pre-filter both inputs to
// the period; rows outside it are excluded here as a safety net.
func (a *Aggregator) Aggregate(periodStart, periodEnd time.Time, insights []models.Insight, interactions []models.Interaction) models.AnalyticsSnapshot {
	snapshot := models.AnalyticsSnapshot{
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		CountsByType:     make(map[models.InsightType]int),
		CountsByPriority: make(map[models.InsightPriority]int),
		GeneratedAt:      a.now().UTC(),
	}

	var confidenceSum float64
	actionTaken := 0
	feedbackSum := 0
	feedbackCount := 0
	categoryCounts := make(map[string]int)

	for _, ins := range insights {
		if ins.CreatedAt.Before(periodStart) || !ins.CreatedAt.Before(periodEnd) {
			continue
		}

		snapshot.TotalInsights++
		snapshot.CountsByType[ins.Type]++
		snapshot.CountsByPriority[ins.Priority]++
		confidenceSum += ins.Confidence

		if ins.IsActionTaken {
			actionTaken++
		}
		if ins.Feedback != nil {
			feedbackSum += ins.Feedback.Rating
			feedbackCount++
		}
		if ins.Category != "" {
			categoryCounts[ins.Category]++
		}
	}

	if snapshot.TotalInsights > 0 {
		snapshot.AverageConfidence = confidenceSum / float64(snapshot.TotalInsights)
		snapshot.ActionTakenRate = float64(actionTaken) / float64(snapshot.TotalInsights)
	}
	if feedbackCount > 0 {
		snapshot.AverageFeedbackRating = float64(feedbackSum) / float64(feedbackCount)
	}

	snapshot.TopCategories = topCategories(categoryCounts)

	for _, evt := range interactions {
		if evt.Timestamp.Before(periodStart) || !evt.Timestamp.Before(periodEnd) {
			continue
		}
		snapshot.TotalInteractions++
	}

	a.logger.Debug("analytics aggregated", map[string]interface{}{
		"periodStart":   periodStart,
		"periodEnd":     periodEnd,
		"totalInsights": snapshot.TotalInsights,
		"interactions":  snapshot.TotalInteractions,
	})

	return snapshot
}

// topCategories returns the most frequent categories, count descending with
// name ascending as the tiebreaker for stable output.
func topCategories(counts map[string]int) []models.CategoryCount {
	if len(counts) == 0 {
		return nil
	}

	out := make([]models.CategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, models.CategoryCount{Category: category, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})

	if len(out) > topCategoryCount {
		out = out[:topCategoryCount]
	}
	return out
}
