package llm

import (
	"context"
)

// MockExtractionClient is a configurable mock for testing extraction-driven
// flows. Set the function field to control behavior in tests.
type MockExtractionClient struct {
	// ExtractInsightsFunc is called when ExtractInsights is invoked.
	// If nil, returns an empty result and nil error.
	ExtractInsightsFunc func(ctx context.Context, content string, currentFields map[string]string) (*ExtractionResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	ExtractInsightsCalls int
	LastContent          string
	LastFields           map[string]string
}

// NewMockExtractionClient creates a new mock with sensible defaults.
func NewMockExtractionClient() *MockExtractionClient {
	return &MockExtractionClient{
		Model: "mock-model",
	}
}

// ExtractInsights implements ExtractionClient.
func (m *MockExtractionClient) ExtractInsights(ctx context.Context, content string, currentFields map[string]string) (*ExtractionResult, error) {
	m.ExtractInsightsCalls++
	m.LastContent = content
	m.LastFields = currentFields
	if m.ExtractInsightsFunc != nil {
		return m.ExtractInsightsFunc(ctx, content, currentFields)
	}
	return &ExtractionResult{}, nil
}

// GetModel implements ExtractionClient.
func (m *MockExtractionClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking.
func (m *MockExtractionClient) Reset() {
	m.ExtractInsightsCalls = 0
	m.LastContent = ""
	m.LastFields = nil
}
