package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/apperrors"
	"github.com/hirestack-ai/knowledge-engine/pkg/config"
	"github.com/hirestack-ai/knowledge-engine/pkg/llm"
	"github.com/hirestack-ai/knowledge-engine/pkg/logging"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/repositories"
	"github.com/hirestack-ai/knowledge-engine/pkg/retry"
)

// summaryLength bounds the content excerpt stored on the audit record.
const summaryLength = 240

// IngestionService is the entry point for one full ingestion: extract
// insights from raw content, filter them through mapping policy, and apply
// them to the organization's knowledge base.
type IngestionService interface {
	IngestDocument(ctx context.Context, kbID, userID uuid.UUID, sourceType models.SourceType, content string) (*IngestResult, error)
}

// IngestResult describes one completed ingestion.
type IngestResult struct {
	SourceID uuid.UUID    `json:"source_id"`
	Model    string       `json:"model"`
	Apply    *ApplyResult `json:"apply"`
}

type ingestionService struct {
	kbRepo     repositories.KnowledgeBaseRepository
	extraction llm.ExtractionClient
	mapper     FieldMapperService
	applicator KnowledgeApplicatorService
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewIngestionService creates a new IngestionService. Extraction retries are
// bounded by the extraction config; everything downstream runs once.
func NewIngestionService(
	kbRepo repositories.KnowledgeBaseRepository,
	extraction llm.ExtractionClient,
	mapper FieldMapperService,
	applicator KnowledgeApplicatorService,
	extractionCfg config.ExtractionConfig,
	logger *zap.Logger,
) IngestionService {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = extractionCfg.MaxRetries

	return &ingestionService{
		kbRepo:     kbRepo,
		extraction: extraction,
		mapper:     mapper,
		applicator: applicator,
		retryCfg:   retryCfg,
		logger:     logger.Named("ingestion"),
	}
}

var _ IngestionService = (*ingestionService)(nil)

func (s *ingestionService) IngestDocument(ctx context.Context, kbID, userID uuid.UUID, sourceType models.SourceType, content string) (*IngestResult, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", apperrors.ErrNoValidInsights)
	}

	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	var raw *llm.ExtractionResult
	err = retry.DoIfRetryable(ctx, s.retryCfg, func() error {
		var extractErr error
		raw, extractErr = s.extraction.ExtractInsights(ctx, content, kb.Fields)
		return extractErr
	})
	if err != nil {
		s.logger.Error("extraction failed",
			zap.String("knowledge_base_id", kbID.String()),
			zap.String("model", s.extraction.GetModel()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %s", apperrors.ErrExtractionFailed, logging.SanitizeError(err))
	}

	mapping := s.mapper.FilterMappingResult(raw)

	sourceID := uuid.New()
	summary := logging.TruncateString(content, summaryLength)
	applied, err := s.applicator.ApplyInsights(ctx, kbID, sourceID, sourceType, userID, mapping, summary)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document ingested",
		zap.String("knowledge_base_id", kbID.String()),
		zap.String("source_id", sourceID.String()),
		zap.String("model", s.extraction.GetModel()),
		zap.Int("mappings", len(mapping.FieldMappings)),
		zap.Int("new_insights", len(mapping.NewInsights)))

	return &IngestResult{
		SourceID: sourceID,
		Model:    s.extraction.GetModel(),
		Apply:    applied,
	}, nil
}
