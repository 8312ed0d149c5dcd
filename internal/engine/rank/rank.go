// internal/engine/rank/rank.go
package rank

import (
	"sort"

	"insight-engine/internal/models"
)

// targetKey groups candidates that point at the same entity.
type targetKey struct {
	entityType string
	entityID   string
}

// Dedupe collapses candidates targeting the same (entityType, entityId) pair,
// keeping only the highest-confidence candidate per group. Input order does
// not matter; candidates typically arrive from parallel branches.
func Dedupe(candidates []models.Insight) []models.Insight {
	best := make(map[targetKey]models.Insight, len(candidates))
	order := make([]targetKey, 0, len(candidates))

	for _, c := range candidates {
		key := targetKey{entityType: c.TargetEntityType, entityID: c.TargetEntityID}
		existing, seen := best[key]
		if !seen {
			best[key] = c
			order = append(order, key)
			continue
		}
		if c.Confidence > existing.Confidence {
			best[key] = c
		}
	}

	out := make([]models.Insight, 0, len(best))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// SortByConfidence orders insights non-increasing in confidence, in place.
func SortByConfidence(insights []models.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Confidence > insights[j].Confidence
	})
}

// SortByPriority orders insights by the fixed priority rank (critical first),
// with confidence descending as the tiebreaker, in place.
func SortByPriority(insights []models.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		ri, rj := insights[i].Priority.Rank(), insights[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return insights[i].Confidence > insights[j].Confidence
	})
}

// Truncate caps the list length. A limit of 0 or below leaves the list unbounded.
func Truncate(insights []models.Insight, limit int) []models.Insight {
	if limit > 0 && len(insights) > limit {
		return insights[:limit]
	}
	return insights
}

// Recommendations runs the full dedup/rank stage for similarity-based
// candidates: collapse per-target duplicates, sort by confidence, cap.
func Recommendations(candidates []models.Insight, limit int) []models.Insight {
	out := Dedupe(candidates)
	SortByConfidence(out)
	return Truncate(out, limit)
}

// Graded runs the dedup/rank stage for priority-graded outputs (risk and
// forecast insights): collapse duplicates of the same type per target,
// priority order, unbounded. Consumers cap display separately. Distinct
// insight types for the same entity are all kept; a snapshot legitimately
// trips several rules at once.
func Graded(candidates []models.Insight) []models.Insight {
	out := DedupeByType(candidates)
	SortByPriority(out)
	return out
}

type typedTargetKey struct {
	insightType models.InsightType
	entityType  string
	entityID    string
}

// DedupeByType collapses candidates of the same type targeting the same
// entity, keeping the highest-confidence one per group.
func DedupeByType(candidates []models.Insight) []models.Insight {
	best := make(map[typedTargetKey]models.Insight, len(candidates))
	order := make([]typedTargetKey, 0, len(candidates))

	for _, c := range candidates {
		key := typedTargetKey{insightType: c.Type, entityType: c.TargetEntityType, entityID: c.TargetEntityID}
		existing, seen := best[key]
		if !seen {
			best[key] = c
			order = append(order, key)
			continue
		}
		if c.Confidence > existing.Confidence {
			best[key] = c
		}
	}

	out := make([]models.Insight, 0, len(best))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}
