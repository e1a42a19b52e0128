// Package llm provides the insight-extraction service client.
//
// The extraction service takes raw content (document text or a conversation
// transcript) plus a snapshot of current knowledge-base field values, and
// returns candidate field mappings and unmapped insights. It is treated as a
// fallible, possibly slow remote call; the policy layer re-validates
// everything it returns.
package llm

import (
	"context"
	"encoding/json"
)

// ExtractionClient defines the interface for the insight-extraction service.
// Use this interface for dependency injection to enable mocking in tests.
type ExtractionClient interface {
	// ExtractInsights analyzes content against the current knowledge-base
	// snapshot and returns candidate mappings and insights.
	ExtractInsights(ctx context.Context, content string, currentFields map[string]string) (*ExtractionResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// ExtractionResult is the raw, untrusted output of the extraction service.
// Confidence values are RawMessage because models return them as ints,
// floats, or quoted strings interchangeably.
type ExtractionResult struct {
	FieldMappings []RawFieldMapping `json:"field_mappings"`
	NewInsights   []RawNewInsight   `json:"new_insights"`
}

// RawFieldMapping is one unvalidated candidate field assignment.
type RawFieldMapping struct {
	Field      string          `json:"field"`
	Insight    string          `json:"insight"`
	Confidence json.RawMessage `json:"confidence"`
	Action     string          `json:"action"`
	Reasoning  string          `json:"reasoning"`
}

// RawNewInsight is one unvalidated observation with no field mapping.
type RawNewInsight struct {
	Insight    string          `json:"insight"`
	Category   string          `json:"category"`
	Confidence json.RawMessage `json:"confidence"`
}

// Ensure implementations satisfy ExtractionClient at compile time.
var (
	_ ExtractionClient = (*OpenAIClient)(nil)
	_ ExtractionClient = (*AnthropicClient)(nil)
	_ ExtractionClient = (*MockExtractionClient)(nil)
)
