// internal/engine/risk/rules.go
package risk

import (
	"fmt"
	"time"

	"insight-engine/internal/common/logger"
	"insight-engine/internal/models"
)

// Rule cut points. These are business policy fixed at build time, not tunable
// runtime constants.
const (
	criticalOverdueCount    = 2   // overdue mandatory courses above this escalate to critical
	lowCompletionRate       = 0.7 // completion rate below this raises a risk assessment
	severeCompletionRate    = 0.5 // completion rate below this raises priority to high
	durationBenchmarkFactor = 1.5 // average duration beyond benchmark*factor flags workflow drag
)

// Rule identifiers, used by the insight builder to select templates.
const (
	RuleOverdueTraining  = "overdue-mandatory-training"
	RuleFailedAudits     = "failed-audits"
	RuleLowCompletion    = "low-completion-rate"
	RuleSlowTaskDuration = "slow-task-duration"
)

// Finding is one graded risk signal emitted by a rule. Each rule emits zero
// or one finding per snapshot.
type Finding struct {
	RuleID         string
	Type           models.InsightType
	Priority       models.InsightPriority
	Confidence     float64
	ExpiresIn      time.Duration
	SupportingData map[string]string
}

// Evaluator applies the stateless risk rules to an activity snapshot.
type Evaluator struct {
	logger logger.Logger
}

func NewEvaluator(log logger.Logger) *Evaluator {
	return &Evaluator{
		logger: log.WithFields(map[string]interface{}{"component": "risk-evaluator"}),
	}
}

// Evaluate runs every rule against the snapshot and returns the findings.
func (e *Evaluator) Evaluate(snapshot models.ActivitySnapshot) []Finding {
	var findings []Finding

	if f := evaluateOverdueTraining(snapshot); f != nil {
		findings = append(findings, *f)
	}
	if f := evaluateFailedAudits(snapshot); f != nil {
		findings = append(findings, *f)
	}
	if f := evaluateCompletionRate(snapshot); f != nil {
		findings = append(findings, *f)
	}
	if f := evaluateTaskDuration(snapshot); f != nil {
		findings = append(findings, *f)
	}

	e.logger.Debug("risk rules evaluated", map[string]interface{}{
		"entityId": snapshot.EntityID,
		"findings": len(findings),
	})

	return findings
}

func evaluateOverdueTraining(s models.ActivitySnapshot) *Finding {
	if s.OverdueMandatoryCourses <= 0 {
		return nil
	}

	priority := models.PriorityHigh
	if s.OverdueMandatoryCourses > criticalOverdueCount {
		priority = models.PriorityCritical
	}

	return &Finding{
		RuleID:     RuleOverdueTraining,
		Type:       models.InsightTypeComplianceAlert,
		Priority:   priority,
		Confidence: 0.95,
		ExpiresIn:  7 * 24 * time.Hour,
		SupportingData: map[string]string{
			"overdueCount": fmt.Sprintf("%d", s.OverdueMandatoryCourses),
		},
	}
}

func evaluateFailedAudits(s models.ActivitySnapshot) *Finding {
	if s.FailedAudits <= 0 {
		return nil
	}

	return &Finding{
		RuleID:     RuleFailedAudits,
		Type:       models.InsightTypeComplianceAlert,
		Priority:   models.PriorityHigh,
		Confidence: 0.9,
		ExpiresIn:  14 * 24 * time.Hour,
		SupportingData: map[string]string{
			"failedAudits": fmt.Sprintf("%d", s.FailedAudits),
		},
	}
}

func evaluateCompletionRate(s models.ActivitySnapshot) *Finding {
	if s.CompletionRate >= lowCompletionRate {
		return nil
	}

	priority := models.PriorityMedium
	if s.CompletionRate < severeCompletionRate {
		priority = models.PriorityHigh
	}

	return &Finding{
		RuleID:     RuleLowCompletion,
		Type:       models.InsightTypeRiskAssessment,
		Priority:   priority,
		Confidence: 0.85,
		ExpiresIn:  7 * 24 * time.Hour,
		SupportingData: map[string]string{
			"completionRate": fmt.Sprintf("%.2f", s.CompletionRate),
		},
	}
}

func evaluateTaskDuration(s models.ActivitySnapshot) *Finding {
	if s.BenchmarkDurationHours <= 0 {
		return nil
	}
	if s.AvgTaskDurationHours <= s.BenchmarkDurationHours*durationBenchmarkFactor {
		return nil
	}

	return &Finding{
		RuleID:     RuleSlowTaskDuration,
		Type:       models.InsightTypeWorkflowImprovement,
		Priority:   models.PriorityMedium,
		Confidence: 0.8,
		ExpiresIn:  14 * 24 * time.Hour,
		SupportingData: map[string]string{
			"avgDurationHours":       fmt.Sprintf("%.1f", s.AvgTaskDurationHours),
			"benchmarkDurationHours": fmt.Sprintf("%.1f", s.BenchmarkDurationHours),
		},
	}
}
