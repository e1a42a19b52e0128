package models

// MappingAction determines how a mapped insight is applied to its field.
type MappingAction string

const (
	// ActionReplace overwrites the field's current value, whether or not the
	// field was previously populated.
	ActionReplace MappingAction = "REPLACE"

	// ActionAppend concatenates below a separator when the field already holds
	// text; otherwise it behaves like REPLACE.
	ActionAppend MappingAction = "APPEND"

	// ActionNewInsight does not touch a named field; the insight lands in the
	// AIInsights document-insight side channel instead.
	ActionNewInsight MappingAction = "NEW_INSIGHT"
)

// FieldMapping is one candidate assignment of an extracted insight to a
// knowledge-base field. Ephemeral; never persisted outside the audit payload.
type FieldMapping struct {
	Field      string        `json:"field"`
	Insight    string        `json:"insight"`
	Confidence int           `json:"confidence"` // 0-100
	Action     MappingAction `json:"action"`
	Reasoning  string        `json:"reasoning,omitempty"`
}

// NewInsight is an extracted observation that did not map to any known field.
type NewInsight struct {
	Insight    string `json:"insight"`
	Category   string `json:"category,omitempty"`
	Confidence int    `json:"confidence"` // 0-100
}

// MappingResult is the policy-filtered output of the field mapper for one
// ingestion: at most 15 field mappings and 10 unmapped insights, all with
// confidence of at least 50.
type MappingResult struct {
	FieldMappings []FieldMapping `json:"field_mappings"`
	NewInsights   []NewInsight   `json:"new_insights"`
}
