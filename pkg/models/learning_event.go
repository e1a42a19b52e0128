package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a learning event.
type EventType string

const (
	EventInsightGenerated  EventType = "INSIGHT_GENERATED"
	EventInconsistencyFix  EventType = "INCONSISTENCY_FIXED"
	EventKnowledgeExpanded EventType = "KNOWLEDGE_EXPANDED"
	EventOptimizationFound EventType = "OPTIMIZATION_FOUND"
)

// SourceType identifies the kind of ingestion that produced an observation.
type SourceType string

const (
	SourceDocumentUpload   SourceType = "DOCUMENT_UPLOAD"
	SourceChatConversation SourceType = "CHAT_CONVERSATION"
	SourceJobDescription   SourceType = "JOB_DESCRIPTION"
)

// LearningEvent is an atomic, immutable observation about an organization,
// extracted from one source and awaiting (or having undergone) application to
// the knowledge base. Confidence is fixed at creation; all aging is computed
// on read, never persisted back.
// Stored in engine_learning_events table.
type LearningEvent struct {
	ID              uuid.UUID     `json:"id"`
	KnowledgeBaseID uuid.UUID     `json:"knowledge_base_id"`
	EventType       EventType     `json:"event_type"`
	Insight         string        `json:"insight"`
	Category        string        `json:"category"`
	Confidence      int           `json:"confidence"` // 1-100, immutable
	SourceIDs       []uuid.UUID   `json:"source_ids"`
	TriggeredBy     *uuid.UUID    `json:"triggered_by,omitempty"`
	Metadata        EventMetadata `json:"metadata"`
	Applied         bool          `json:"applied"`
	AppliedAt       *time.Time    `json:"applied_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// EventMetadata carries the diffing context for a deferred field suggestion.
type EventMetadata struct {
	// Field is the knowledge-base field this event suggests a value for.
	// Empty for events that are not field suggestions.
	Field string `json:"field,omitempty"`

	// CurrentValue is the field value at the time the event was recorded.
	CurrentValue string `json:"current_value,omitempty"`

	// SuggestedValue is the value the event proposes.
	SuggestedValue string `json:"suggested_value,omitempty"`

	// Action is the mapping action that produced this event (REPLACE/APPEND).
	Action string `json:"action,omitempty"`

	// SourceType is the kind of ingestion that raised the event.
	SourceType SourceType `json:"source_type,omitempty"`

	// Bottleneck marks business-context events describing an operational
	// bottleneck; it feeds the CRITICAL priority rule.
	Bottleneck bool `json:"bottleneck,omitempty"`
}

// CandidateInsight is the raw input to batch learning-event creation. Invalid
// candidates (missing insight, category, or event type) are skipped with a
// recorded error rather than failing the batch.
type CandidateInsight struct {
	Insight    string        `json:"insight"`
	Category   string        `json:"category"`
	EventType  EventType     `json:"event_type"`
	Confidence int           `json:"confidence"` // 0 means unspecified; defaults to 70
	Metadata   EventMetadata `json:"metadata"`
}
