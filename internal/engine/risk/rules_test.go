// internal/engine/risk/rules_test.go
package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

func healthySnapshot() models.ActivitySnapshot {
	return models.ActivitySnapshot{
		EntityID:                "outlet-1",
		EntityType:              "outlet",
		CompletionRate:          0.9,
		AvgTaskDurationHours:    4,
		BenchmarkDurationHours:  4,
		OverdueMandatoryCourses: 0,
		FailedAudits:            0,
		CapturedAt:              time.Now(),
	}
}

func findingByRule(findings []Finding, ruleID string) *Finding {
	for i := range findings {
		if findings[i].RuleID == ruleID {
			return &findings[i]
		}
	}
	return nil
}

func TestEvaluate_HealthySnapshotEmitsNothing(t *testing.T) {
	e := NewEvaluator(logger.NewTestLogger(t))
	assert.Empty(t, e.Evaluate(healthySnapshot()))
}

func TestOverdueTrainingRule(t *testing.T) {
	e := NewEvaluator(logger.NewTestLogger(t))

	tests := []struct {
		name     string
		overdue  int
		emitted  bool
		priority models.InsightPriority
	}{
		{name: "zero overdue emits nothing", overdue: 0, emitted: false},
		{name: "one overdue is high", overdue: 1, emitted: true, priority: models.PriorityHigh},
		{name: "two overdue stays high", overdue: 2, emitted: true, priority: models.PriorityHigh},
		{name: "three overdue escalates to critical", overdue: 3, emitted: true, priority: models.PriorityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := healthySnapshot()
			snapshot.OverdueMandatoryCourses = tt.overdue

			f := findingByRule(e.Evaluate(snapshot), RuleOverdueTraining)
			if !tt.emitted {
				assert.Nil(t, f)
				return
			}
			assert.NotNil(t, f)
			assert.Equal(t, models.InsightTypeComplianceAlert, f.Type)
			assert.Equal(t, tt.priority, f.Priority)
			assert.Equal(t, 0.95, f.Confidence)
			assert.Equal(t, 7*24*time.Hour, f.ExpiresIn)
		})
	}
}

func TestFailedAuditsRule(t *testing.T) {
	e := NewEvaluator(logger.NewTestLogger(t))

	t.Run("no failures emits nothing", func(t *testing.T) {
		assert.Nil(t, findingByRule(e.Evaluate(healthySnapshot()), RuleFailedAudits))
	})

	t.Run("any failure is high", func(t *testing.T) {
		snapshot := healthySnapshot()
		snapshot.FailedAudits = 1

		f := findingByRule(e.Evaluate(snapshot), RuleFailedAudits)
		assert.NotNil(t, f)
		assert.Equal(t, models.InsightTypeComplianceAlert, f.Type)
		assert.Equal(t, models.PriorityHigh, f.Priority)
		assert.Equal(t, 0.9, f.Confidence)
		assert.Equal(t, 14*24*time.Hour, f.ExpiresIn)
	})
}

func TestCompletionRateRule(t *testing.T) {
	e := NewEvaluator(logger.NewTestLogger(t))

	tests := []struct {
		name     string
		rate     float64
		emitted  bool
		priority models.InsightPriority
	}{
		{name: "at threshold emits nothing", rate: 0.7, emitted: false},
		{name: "just below threshold is medium", rate: 0.69, emitted: true, priority: models.PriorityMedium},
		{name: "at severe threshold stays medium", rate: 0.5, emitted: true, priority: models.PriorityMedium},
		{name: "below severe threshold is high", rate: 0.49, emitted: true, priority: models.PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := healthySnapshot()
			snapshot.CompletionRate = tt.rate

			f := findingByRule(e.Evaluate(snapshot), RuleLowCompletion)
			if !tt.emitted {
				assert.Nil(t, f)
				return
			}
			assert.NotNil(t, f)
			assert.Equal(t, models.InsightTypeRiskAssessment, f.Type)
			assert.Equal(t, tt.priority, f.Priority)
			assert.Equal(t, 0.85, f.Confidence)
			assert.Equal(t, 7*24*time.Hour, f.ExpiresIn)
		})
	}
}

func TestTaskDurationRule(t *testing.T) {
	e := NewEvaluator(logger.NewTestLogger(t))

	tests := []struct {
		name      string
		avg       float64
		benchmark float64
		emitted   bool
	}{
		{name: "at 1.5x emits nothing", avg: 6, benchmark: 4, emitted: false},
		{name: "beyond 1.5x flags workflow drag", avg: 6.1, benchmark: 4, emitted: true},
		{name: "no benchmark emits nothing", avg: 100, benchmark: 0, emitted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := healthySnapshot()
			snapshot.AvgTaskDurationHours = tt.avg
			snapshot.BenchmarkDurationHours = tt.benchmark

			f := findingByRule(e.Evaluate(snapshot), RuleSlowTaskDuration)
			if !tt.emitted {
				assert.Nil(t, f)
				return
			}
			assert.NotNil(t, f)
			assert.Equal(t, models.InsightTypeWorkflowImprovement, f.Type)
			assert.Equal(t, models.PriorityMedium, f.Priority)
			assert.Equal(t, 0.8, f.Confidence)
			assert.Equal(t, 14*24*time.Hour, f.ExpiresIn)
		})
	}
}

func TestEvaluate_MultipleRulesFireTogether(t *testing.T) {
	e := NewEvaluator(logger.NewTestLogger(t))

	snapshot := healthySnapshot()
	snapshot.OverdueMandatoryCourses = 4
	snapshot.FailedAudits = 2
	snapshot.CompletionRate = 0.4
	snapshot.AvgTaskDurationHours = 10
	snapshot.BenchmarkDurationHours = 4

	findings := e.Evaluate(snapshot)
	assert.Len(t, findings, 4)
}
