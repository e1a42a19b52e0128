package models

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeSource is the audit record for one ingestion event: which fields it
// touched, what it contributed, and who triggered it. Append-only; never
// mutated after creation.
// Stored in engine_knowledge_sources table.
type KnowledgeSource struct {
	ID              uuid.UUID  `json:"id"`
	KnowledgeBaseID uuid.UUID  `json:"knowledge_base_id"`
	SourceType      SourceType `json:"source_type"`

	// ContributedFields are the KB field names this ingestion actually touched.
	// Empty when nothing cleared the high-confidence bar.
	ContributedFields []string `json:"contributed_fields"`

	// Data preserves the full mapping payload and the extracted-content
	// summary for later review.
	Data SourceData `json:"data"`

	// Confidence is the mean confidence of the high-confidence mappings that
	// were actually applied; 0 if none were.
	Confidence int `json:"confidence"`

	ContributedBy *uuid.UUID `json:"contributed_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SourceData is the persisted payload of a KnowledgeSource audit record.
type SourceData struct {
	FieldMappings  []FieldMapping `json:"field_mappings,omitempty"`
	NewInsights    []NewInsight   `json:"new_insights,omitempty"`
	ContentSummary string         `json:"content_summary,omitempty"`
}
