// internal/models/insight.go
package models

import "time"

// InsightType classifies what a generated insight is about.
type InsightType string

const (
	InsightTypeDocumentRecommendation InsightType = "document-recommendation"
	InsightTypeTaskOptimization       InsightType = "task-optimization"
	InsightTypePerformancePrediction  InsightType = "performance-prediction"
	InsightTypeRiskAssessment         InsightType = "risk-assessment"
	InsightTypeResourceOptimization   InsightType = "resource-optimization"
	InsightTypeClientEngagement       InsightType = "client-engagement"
	InsightTypeAuditScheduling        InsightType = "audit-scheduling"
	InsightTypeTrainingRecommendation InsightType = "training-recommendation"
	InsightTypeWorkflowImprovement    InsightType = "workflow-improvement"
	InsightTypeComplianceAlert        InsightType = "compliance-alert"
)

// InsightPriority orders insights for display and ranking.
type InsightPriority string

const (
	PriorityCritical      InsightPriority = "critical"
	PriorityHigh          InsightPriority = "high"
	PriorityMedium        InsightPriority = "medium"
	PriorityLow           InsightPriority = "low"
	PriorityInformational InsightPriority = "informational"
)

// priorityRanks maps each priority to its fixed sort rank. Lower rank sorts first.
var priorityRanks = map[InsightPriority]int{
	PriorityCritical:      0,
	PriorityHigh:          1,
	PriorityMedium:        2,
	PriorityLow:           3,
	PriorityInformational: 4,
}

// Rank returns the fixed sort rank for the priority. Unknown priorities sort last.
func (p InsightPriority) Rank() int {
	if r, ok := priorityRanks[p]; ok {
		return r
	}
	return len(priorityRanks)
}

// Insight is a generated, ranked recommendation or alert tied to a specific entity.
type Insight struct {
	ID               string                 `json:"id"`
	Type             InsightType            `json:"type"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	Confidence       float64                `json:"confidence"`
	Priority         InsightPriority        `json:"priority"`
	Category         string                 `json:"category"`
	TargetEntityType string                 `json:"targetEntityType"`
	TargetEntityID   string                 `json:"targetEntityId"`
	Actions          []ActionRecommendation `json:"actions,omitempty"`
	SupportingData   map[string]string      `json:"supportingData,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	ExpiresAt        *time.Time             `json:"expiresAt,omitempty"`
	IsActionTaken    bool                   `json:"isActionTaken"`
	Feedback         *Feedback              `json:"feedback,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
}

// IsActive reports whether the insight has not yet expired at the given time.
func (i *Insight) IsActive(now time.Time) bool {
	return i.ExpiresAt == nil || i.ExpiresAt.After(now)
}

// ActionType describes the kind of follow-up an ActionRecommendation proposes.
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionCreate   ActionType = "create"
	ActionUpdate   ActionType = "update"
	ActionReview   ActionType = "review"
	ActionSchedule ActionType = "schedule"
	ActionAssign   ActionType = "assign"
	ActionNotify   ActionType = "notify"
	ActionArchive  ActionType = "archive"
)

// EffortLevel grades how much work an action is expected to take.
type EffortLevel string

const (
	EffortMinimal  EffortLevel = "minimal"
	EffortLow      EffortLevel = "low"
	EffortMedium   EffortLevel = "medium"
	EffortHigh     EffortLevel = "high"
	EffortPlanning EffortLevel = "planning"
)

// ActionRecommendation is a concrete follow-up owned by its parent insight.
type ActionRecommendation struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	ActionType      ActionType        `json:"actionType"`
	EstimatedImpact float64           `json:"estimatedImpact"`
	EstimatedEffort EffortLevel       `json:"estimatedEffort"`
	TargetType      string            `json:"targetType,omitempty"`
	TargetID        string            `json:"targetId,omitempty"`
	Parameters      map[string]string `json:"parameters,omitempty"`
	IsCompleted     bool              `json:"isCompleted"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
}

// Feedback is set at most once per insight by the consuming user.
// Replacement is whole-value; there is no partial update.
type Feedback struct {
	Rating      int       `json:"rating"` // 1-5
	IsHelpful   bool      `json:"isHelpful"`
	Comment     string    `json:"comment,omitempty"`
	ActionTaken bool      `json:"actionTaken"`
	SubmittedAt time.Time `json:"submittedAt"`
	SubmittedBy string    `json:"submittedBy,omitempty"`
}
