package models

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeBase is the versioned record of everything known about one
// organization. Core business facts live in Fields (open set of named values);
// AI-derived side channels and rolling histories are stored as structured
// JSONB sub-documents.
// Stored in engine_knowledge_bases table.
type KnowledgeBase struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`

	// Fields holds the open set of named business facts (identity, operational
	// defaults, brand voice, compliance flags). Absent key == null field.
	Fields map[string]string `json:"fields"`

	// AIInsights is the unstructured side channel for provisional and unmapped
	// observations. It never gates field-level truth.
	AIInsights AIInsights `json:"ai_insights"`

	// Rolling analytics sub-documents. Updating these does not bump Version;
	// they are derived analytics, not core identity.
	HiringHistory      HiringHistory      `json:"hiring_history"`
	ServicePreferences ServicePreferences `json:"service_preferences"`
	SkillRequirements  []SkillRequirement `json:"skill_requirements"`
	BottleneckHistory  []BottleneckEntry  `json:"bottleneck_history"`

	// Version strictly increases; incremented exactly once per accepted
	// mutation batch that touches core fields or AIInsights.
	Version int `json:"version"`

	// Contributors is append-only: every identity that has ever contributed an
	// accepted value.
	Contributors []uuid.UUID `json:"contributors"`

	LastEditedBy *uuid.UUID `json:"last_edited_by,omitempty"`
	LastEditedAt *time.Time `json:"last_edited_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldValue returns the named field's value and whether it is set non-empty.
func (kb *KnowledgeBase) FieldValue(name string) (string, bool) {
	if kb.Fields == nil {
		return "", false
	}
	v, ok := kb.Fields[name]
	return v, ok && v != ""
}

// HasContributor reports whether the identity already appears in Contributors.
func (kb *KnowledgeBase) HasContributor(id uuid.UUID) bool {
	for _, c := range kb.Contributors {
		if c == id {
			return true
		}
	}
	return false
}

// AIInsights holds low-confidence provisional notes and free-form patterns
// that did not map to any known field.
type AIInsights struct {
	DocumentInsights []DocumentInsight `json:"document_insights,omitempty"`
	Patterns         []Pattern         `json:"patterns,omitempty"`
}

// IsEmpty reports whether the side channel holds nothing.
func (a AIInsights) IsEmpty() bool {
	return len(a.DocumentInsights) == 0 && len(a.Patterns) == 0
}

// InsightStatusLowConfidence flags a provisional annotation that was archived
// instead of applied because its mapping fell below the medium threshold.
const InsightStatusLowConfidence = "low_confidence"

// DocumentInsight is a field-tagged provisional note from one ingestion.
type DocumentInsight struct {
	Field      string    `json:"field"`
	Insight    string    `json:"insight"`
	Confidence int       `json:"confidence"`
	SourceID   uuid.UUID `json:"source_id"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Pattern is a free-form insight that did not map to any known field.
type Pattern struct {
	Insight    string    `json:"insight"`
	Confidence int       `json:"confidence"`
	SourceID   uuid.UUID `json:"source_id"`
	CreatedAt  time.Time `json:"created_at"`
}
