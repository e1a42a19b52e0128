package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/apperrors"
	"github.com/hirestack-ai/knowledge-engine/pkg/config"
	"github.com/hirestack-ai/knowledge-engine/pkg/llm"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
)

func newTestIngestion(kbRepo *testKBRepo, sourceRepo *testSourceRepo, mock *llm.MockExtractionClient) IngestionService {
	logger := zap.NewNop()
	cfg := testPipelineConfig()
	applicator := NewKnowledgeApplicatorService(
		kbRepo, sourceRepo,
		NewLearningEventService(&testEventRepo{}, logger),
		&stubApplier{}, cfg, logger)
	mapper := NewFieldMapperService(cfg, logger)
	return NewIngestionService(kbRepo, mock, mapper, applicator,
		config.ExtractionConfig{Provider: "openai", Model: "mock-model", MaxRetries: 2}, logger)
}

func TestIngestDocument_EndToEnd(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	sourceRepo := &testSourceRepo{}
	mock := llm.NewMockExtractionClient()
	mock.ExtractInsightsFunc = func(ctx context.Context, content string, currentFields map[string]string) (*llm.ExtractionResult, error) {
		return &llm.ExtractionResult{
			FieldMappings: []llm.RawFieldMapping{
				{Field: "idealCustomer", Insight: "Mid-size law firms", Confidence: rawConf("90"), Action: "REPLACE"},
			},
			NewInsights: []llm.RawNewInsight{
				{Insight: "Growth is seasonal", Category: "business_context", Confidence: rawConf("84")},
			},
		}, nil
	}
	svc := newTestIngestion(kbRepo, sourceRepo, mock)

	userID := uuid.New()
	result, err := svc.IngestDocument(context.Background(), kbRepo.kb.ID, userID, models.SourceDocumentUpload, "We mostly serve mid-size law firms.")
	require.NoError(t, err)

	assert.Equal(t, "mock-model", result.Model)
	assert.Equal(t, []string{"idealCustomer"}, result.Apply.FieldsUpdated)
	assert.Equal(t, "Mid-size law firms", kbRepo.kb.Fields["idealCustomer"])
	assert.Equal(t, 2, kbRepo.kb.Version)
	require.Len(t, sourceRepo.sources, 1)
	assert.Equal(t, result.SourceID, sourceRepo.sources[0].ID)
	assert.Equal(t, "We mostly serve mid-size law firms.", sourceRepo.sources[0].Data.ContentSummary)

	// Extraction sees the current field snapshot.
	assert.Equal(t, 1, mock.ExtractInsightsCalls)
}

func TestIngestDocument_RetriesTransientExtractionFailures(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	mock := llm.NewMockExtractionClient()
	attempts := 0
	mock.ExtractInsightsFunc = func(ctx context.Context, content string, currentFields map[string]string) (*llm.ExtractionResult, error) {
		attempts++
		if attempts == 1 {
			return nil, &llm.Error{Type: llm.ErrorTypeEndpoint, Message: "rate limited", Retryable: true}
		}
		return &llm.ExtractionResult{}, nil
	}
	svc := newTestIngestion(kbRepo, &testSourceRepo{}, mock)

	_, err := svc.IngestDocument(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceDocumentUpload, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestIngestDocument_PermanentFailureWraps(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	mock := llm.NewMockExtractionClient()
	mock.ExtractInsightsFunc = func(ctx context.Context, content string, currentFields map[string]string) (*llm.ExtractionResult, error) {
		return nil, &llm.Error{Type: llm.ErrorTypeAuth, Message: "invalid api key", Retryable: false}
	}
	svc := newTestIngestion(kbRepo, &testSourceRepo{}, mock)

	_, err := svc.IngestDocument(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceDocumentUpload, "doc")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
	assert.Equal(t, 1, mock.ExtractInsightsCalls)
}

func TestIngestDocument_EmptyContent(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	svc := newTestIngestion(kbRepo, &testSourceRepo{}, llm.NewMockExtractionClient())

	_, err := svc.IngestDocument(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceDocumentUpload, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoValidInsights)
}

func TestIngestDocument_MissingKnowledgeBase(t *testing.T) {
	svc := newTestIngestion(&testKBRepo{}, &testSourceRepo{}, llm.NewMockExtractionClient())

	_, err := svc.IngestDocument(context.Background(), uuid.New(), uuid.New(), models.SourceDocumentUpload, "doc")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
