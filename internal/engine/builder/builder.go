// internal/engine/builder/builder.go
package builder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"insight-engine/internal/common/logger"
	"insight-engine/internal/engine/risk"
	"insight-engine/internal/models"
)

// MinSimilarity is the minimum-relevance gate: similarity scores below it are
// discarded before an Insight is even built.
const MinSimilarity = 0.5

// recommendationTTL bounds how long a similarity recommendation stays active.
const recommendationTTL = 30 * 24 * time.Hour

// Builder assembles raw pipeline signals into canonical Insight entities,
// stamping IDs, timestamps, expiry and tags.
type Builder struct {
	logger logger.Logger
	now    func() time.Time
}

func New(log logger.Logger) *Builder {
	return &Builder{
		logger: log.WithFields(map[string]interface{}{"component": "insight-builder"}),
		now:    time.Now,
	}
}

// FromSimilarity builds a document-recommendation insight for a similarity
// hit. Confidence is the similarity score itself. Scores below MinSimilarity
// report ok == false and produce nothing.
func (b *Builder) FromSimilarity(userID string, doc models.Document, score float64) (*models.Insight, bool) {
	if score < MinSimilarity {
		return nil, false
	}

	now := b.now().UTC()
	expires := now.Add(recommendationTTL)

	insight := &models.Insight{
		ID:               uuid.NewString(),
		Type:             models.InsightTypeDocumentRecommendation,
		Title:            fmt.Sprintf("Related document: %s", doc.Title),
		Description:      fmt.Sprintf("%q closely matches documents you worked with recently.", doc.Title),
		Confidence:       score,
		Priority:         models.PriorityInformational,
		Category:         "documents",
		TargetEntityType: "document",
		TargetEntityID:   doc.ID,
		Actions: []models.ActionRecommendation{
			{
				ID:              uuid.NewString(),
				Title:           "Open document",
				Description:     fmt.Sprintf("Review %q", doc.Title),
				ActionType:      models.ActionNavigate,
				EstimatedImpact: score,
				EstimatedEffort: models.EffortMinimal,
				TargetType:      "document",
				TargetID:        doc.ID,
			},
		},
		SupportingData: map[string]string{
			"similarity": fmt.Sprintf("%.3f", score),
			"userId":     userID,
		},
		CreatedAt: now,
		ExpiresAt: &expires,
		Tags:      append([]string{"recommendation", "similarity"}, doc.Tags...),
	}

	return insight, true
}

// findingTemplate shapes the title, description and proposed actions for a
// risk rule's insight.
type findingTemplate struct {
	title       string
	description func(f risk.Finding, s models.ActivitySnapshot) string
	category    string
	tags        []string
	actions     func(s models.ActivitySnapshot) []models.ActionRecommendation
}

var findingTemplates = map[string]findingTemplate{
	risk.RuleOverdueTraining: {
		title: "Mandatory training overdue",
		description: func(f risk.Finding, s models.ActivitySnapshot) string {
			return fmt.Sprintf("%d mandatory training course(s) are past their due date.", s.OverdueMandatoryCourses)
		},
		category: "compliance",
		tags:     []string{"compliance", "training"},
		actions: func(s models.ActivitySnapshot) []models.ActionRecommendation {
			return []models.ActionRecommendation{{
				ID:              uuid.NewString(),
				Title:           "Schedule training sessions",
				Description:     "Book the overdue mandatory courses before the compliance deadline.",
				ActionType:      models.ActionSchedule,
				EstimatedImpact: 0.9,
				EstimatedEffort: models.EffortMedium,
				TargetType:      s.EntityType,
				TargetID:        s.EntityID,
			}}
		},
	},
	risk.RuleFailedAudits: {
		title: "Failed audits need follow-up",
		description: func(f risk.Finding, s models.ActivitySnapshot) string {
			return fmt.Sprintf("%d audit(s) failed in the current period and need corrective action.", s.FailedAudits)
		},
		category: "compliance",
		tags:     []string{"compliance", "audit"},
		actions: func(s models.ActivitySnapshot) []models.ActionRecommendation {
			return []models.ActionRecommendation{{
				ID:              uuid.NewString(),
				Title:           "Review failed audits",
				Description:     "Walk through each failed audit and assign corrective tasks.",
				ActionType:      models.ActionReview,
				EstimatedImpact: 0.85,
				EstimatedEffort: models.EffortHigh,
				TargetType:      s.EntityType,
				TargetID:        s.EntityID,
			}}
		},
	},
	risk.RuleLowCompletion: {
		title: "Task completion rate is low",
		description: func(f risk.Finding, s models.ActivitySnapshot) string {
			return fmt.Sprintf("Only %.0f%% of tasks were completed on time.", s.CompletionRate*100)
		},
		category: "productivity",
		tags:     []string{"risk", "tasks"},
		actions: func(s models.ActivitySnapshot) []models.ActionRecommendation {
			return []models.ActionRecommendation{{
				ID:              uuid.NewString(),
				Title:           "Rebalance open tasks",
				Description:     "Reassign or reschedule overdue tasks to recover the completion rate.",
				ActionType:      models.ActionAssign,
				EstimatedImpact: 0.7,
				EstimatedEffort: models.EffortMedium,
				TargetType:      s.EntityType,
				TargetID:        s.EntityID,
			}}
		},
	},
	risk.RuleSlowTaskDuration: {
		title: "Tasks take longer than benchmark",
		description: func(f risk.Finding, s models.ActivitySnapshot) string {
			return fmt.Sprintf("Average task duration of %.1fh exceeds the %.1fh benchmark.",
				s.AvgTaskDurationHours, s.BenchmarkDurationHours)
		},
		category: "workflow",
		tags:     []string{"workflow", "duration"},
		actions: func(s models.ActivitySnapshot) []models.ActionRecommendation {
			return []models.ActionRecommendation{{
				ID:              uuid.NewString(),
				Title:           "Review task workflow",
				Description:     "Look for bottlenecks in the steps that push tasks past the benchmark.",
				ActionType:      models.ActionReview,
				EstimatedImpact: 0.6,
				EstimatedEffort: models.EffortPlanning,
				TargetType:      s.EntityType,
				TargetID:        s.EntityID,
			}}
		},
	},
}

// FromFinding builds the insight for a risk rule finding. Unknown rule IDs
// produce nothing; that indicates a rule without a registered template.
func (b *Builder) FromFinding(f risk.Finding, snapshot models.ActivitySnapshot) (*models.Insight, bool) {
	tmpl, ok := findingTemplates[f.RuleID]
	if !ok {
		b.logger.Warn("no template registered for rule", map[string]interface{}{"ruleId": f.RuleID})
		return nil, false
	}

	now := b.now().UTC()
	expires := now.Add(f.ExpiresIn)

	insight := &models.Insight{
		ID:               uuid.NewString(),
		Type:             f.Type,
		Title:            tmpl.title,
		Description:      tmpl.description(f, snapshot),
		Confidence:       f.Confidence,
		Priority:         f.Priority,
		Category:         tmpl.category,
		TargetEntityType: snapshot.EntityType,
		TargetEntityID:   snapshot.EntityID,
		Actions:          tmpl.actions(snapshot),
		SupportingData:   f.SupportingData,
		CreatedAt:        now,
		ExpiresAt:        &expires,
		Tags:             tmpl.tags,
	}

	return insight, true
}

// FromPrediction builds an informational performance-prediction insight
// mirroring a forecast, so predictions surface in the same ranked feed.
func (b *Builder) FromPrediction(p models.Prediction) *models.Insight {
	now := b.now().UTC()

	return &models.Insight{
		ID:               uuid.NewString(),
		Type:             models.InsightTypePerformancePrediction,
		Title:            fmt.Sprintf("Forecast: %s", p.PredictionType),
		Description:      fmt.Sprintf("Projected %s of %.2f over the next %s period.", p.PredictionType, p.PredictedValue, p.Timeframe),
		Confidence:       p.Confidence,
		Priority:         models.PriorityInformational,
		Category:         "forecasts",
		TargetEntityType: p.EntityType,
		TargetEntityID:   p.EntityID,
		SupportingData: map[string]string{
			"predictionId":   p.ID,
			"predictedValue": fmt.Sprintf("%.4f", p.PredictedValue),
			"timeframe":      string(p.Timeframe),
		},
		CreatedAt: now,
		Tags:      []string{"forecast", string(p.PredictionType)},
	}
}
