package services

import (
	"sort"

	"github.com/hirestack-ai/knowledge-engine/pkg/models"
)

// Priority is the processing urgency tier of a learning event.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// priorityRank orders tiers for sorting; lower rank is more urgent.
var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Categories that mark an event as consequential for the organization.
const (
	CategoryBusinessContext     = "business_context"
	CategoryProcessOptimization = "process_optimization"
	CategoryRiskManagement      = "risk_management"
)

// CalculatePriority assigns a priority tier from the event's confidence,
// category, type, and source. Rules are evaluated top to bottom; the first
// match wins.
func CalculatePriority(event *models.LearningEvent) Priority {
	c := event.Confidence

	if c >= 90 {
		if event.Category == CategoryRiskManagement ||
			(event.Category == CategoryBusinessContext && event.Metadata.Bottleneck) ||
			event.EventType == models.EventInconsistencyFix {
			return PriorityCritical
		}
		if event.Metadata.SourceType == models.SourceJobDescription ||
			event.Metadata.SourceType == models.SourceChatConversation {
			return PriorityHigh
		}
	}

	if c >= 85 {
		switch event.Category {
		case CategoryBusinessContext, CategoryProcessOptimization, CategoryRiskManagement:
			return PriorityHigh
		}
		if event.EventType == models.EventInsightGenerated ||
			event.EventType == models.EventOptimizationFound {
			return PriorityHigh
		}
	}

	if c >= 80 {
		return PriorityMedium
	}

	return PriorityLow
}

// SortByPriority stably orders events most-urgent first; within a tier,
// higher confidence comes first. Equal events keep their relative order.
func SortByPriority(events []*models.LearningEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ri := priorityRank[CalculatePriority(events[i])]
		rj := priorityRank[CalculatePriority(events[j])]
		if ri != rj {
			return ri < rj
		}
		return events[i].Confidence > events[j].Confidence
	})
}

// GroupByPriority partitions events by tier, preserving relative order
// within each tier.
func GroupByPriority(events []*models.LearningEvent) map[Priority][]*models.LearningEvent {
	groups := make(map[Priority][]*models.LearningEvent)
	for _, e := range events {
		p := CalculatePriority(e)
		groups[p] = append(groups[p], e)
	}
	return groups
}
