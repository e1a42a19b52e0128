package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/config"
	"github.com/hirestack-ai/knowledge-engine/pkg/logging"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/repositories"
)

// appendSeparator divides the existing field value from appended text.
const appendSeparator = "\n\n---\n\n"

// KnowledgeApplicatorService merges a validated mapping result into the
// knowledge base. Mappings are bucketed by confidence tier: high applies
// immediately, medium defers through learning events, low is archived as
// provisional annotations.
type KnowledgeApplicatorService interface {
	ApplyInsights(ctx context.Context, kbID, sourceID uuid.UUID, sourceType models.SourceType, actingUser uuid.UUID, mapping *models.MappingResult, contentSummary string) (*ApplyResult, error)
}

// ApplyResult reports what one ingestion actually did.
type ApplyResult struct {
	FieldsUpdated []string         `json:"fields_updated"`
	HighApplied   int              `json:"high_applied"`
	PatternsAdded int              `json:"patterns_added"`
	LowArchived   int              `json:"low_archived"`
	VersionBumped bool             `json:"version_bumped"`
	Deferred      *DeferredOutcome `json:"deferred,omitempty"`
}

// DeferredOutcome is the explicit result of the medium-confidence deferred
// pipeline. A non-empty Reason means the best-effort pass failed; the
// ingestion as a whole still succeeded.
type DeferredOutcome struct {
	EventsCreated int    `json:"events_created"`
	ReApplied     int    `json:"re_applied"`
	Reason        string `json:"reason,omitempty"`
}

type knowledgeApplicatorService struct {
	kbRepo     repositories.KnowledgeBaseRepository
	sourceRepo repositories.KnowledgeSourceRepository
	eventSvc   LearningEventService
	applier    EventsApplierService
	cfg        config.PipelineConfig
	logger     *zap.Logger
}

// NewKnowledgeApplicatorService creates a new KnowledgeApplicatorService.
func NewKnowledgeApplicatorService(
	kbRepo repositories.KnowledgeBaseRepository,
	sourceRepo repositories.KnowledgeSourceRepository,
	eventSvc LearningEventService,
	applier EventsApplierService,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) KnowledgeApplicatorService {
	return &knowledgeApplicatorService{
		kbRepo:     kbRepo,
		sourceRepo: sourceRepo,
		eventSvc:   eventSvc,
		applier:    applier,
		cfg:        cfg,
		logger:     logger.Named("kb-applicator"),
	}
}

var _ KnowledgeApplicatorService = (*knowledgeApplicatorService)(nil)

func (s *knowledgeApplicatorService) ApplyInsights(ctx context.Context, kbID, sourceID uuid.UUID, sourceType models.SourceType, actingUser uuid.UUID, mapping *models.MappingResult, contentSummary string) (*ApplyResult, error) {
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	high, medium, low := s.partition(mapping.FieldMappings)
	now := time.Now()

	result := &ApplyResult{FieldsUpdated: []string{}}
	changedFields := map[string]string{}
	insights := kb.AIInsights
	insightsChanged := false

	// High bucket: apply directly per action semantics.
	confidenceSum := 0
	for _, m := range high {
		confidenceSum += m.Confidence
		result.HighApplied++

		if m.Action == models.ActionNewInsight {
			insights.DocumentInsights = append(insights.DocumentInsights, models.DocumentInsight{
				Field:      m.Field,
				Insight:    m.Insight,
				Confidence: m.Confidence,
				SourceID:   sourceID,
				CreatedAt:  now,
			})
			insightsChanged = true
			continue
		}

		changedFields[m.Field] = s.applyAction(kb, changedFields, m)
		result.FieldsUpdated = appendUnique(result.FieldsUpdated, m.Field)
	}

	// Unmapped insights always land in the patterns side channel.
	for _, ni := range mapping.NewInsights {
		insights.Patterns = append(insights.Patterns, models.Pattern{
			Insight:    ni.Insight,
			Confidence: ni.Confidence,
			SourceID:   sourceID,
			CreatedAt:  now,
		})
		insightsChanged = true
		result.PatternsAdded++
	}

	// One batched write: version bump, editor stamp, contributor union.
	if len(changedFields) > 0 || insightsChanged {
		if err := s.kbRepo.ApplyUpdate(ctx, kbID, changedFields, insights, actingUser); err != nil {
			return nil, fmt.Errorf("apply knowledge base update: %w", err)
		}
		result.VersionBumped = true
	}

	// The audit record is always written, even for a no-op ingestion.
	meanConfidence := 0
	if result.HighApplied > 0 {
		meanConfidence = int(math.Round(float64(confidenceSum) / float64(result.HighApplied)))
	}
	source := &models.KnowledgeSource{
		ID:                sourceID,
		KnowledgeBaseID:   kbID,
		SourceType:        sourceType,
		ContributedFields: result.FieldsUpdated,
		Confidence:        meanConfidence,
		ContributedBy:     &actingUser,
		Data: models.SourceData{
			FieldMappings:  mapping.FieldMappings,
			NewInsights:    mapping.NewInsights,
			ContentSummary: contentSummary,
		},
	}
	if err := s.sourceRepo.Create(ctx, source); err != nil {
		return nil, fmt.Errorf("record knowledge source: %w", err)
	}

	// Medium bucket: defer via learning events, then opportunistically try to
	// re-apply at the high threshold. Failures here never fail the ingestion.
	if len(medium) > 0 {
		result.Deferred = s.deferMediumMappings(ctx, kb, sourceID, sourceType, actingUser, medium)
	}

	// Low bucket: archived as provisional annotations in a separate write.
	if len(low) > 0 {
		for _, m := range low {
			insights.DocumentInsights = append(insights.DocumentInsights, models.DocumentInsight{
				Field:      m.Field,
				Insight:    m.Insight,
				Confidence: m.Confidence,
				SourceID:   sourceID,
				Status:     models.InsightStatusLowConfidence,
				CreatedAt:  now,
			})
			result.LowArchived++
		}
		if err := s.kbRepo.UpdateAIInsights(ctx, kbID, insights); err != nil {
			return nil, fmt.Errorf("archive low-confidence insights: %w", err)
		}
	}

	s.logger.Info("insights applied",
		zap.String("knowledge_base_id", kbID.String()),
		zap.Int("high_applied", result.HighApplied),
		zap.Int("medium_deferred", len(medium)),
		zap.Int("low_archived", result.LowArchived),
		zap.Strings("fields", result.FieldsUpdated))

	return result, nil
}

// partition splits mappings into high/medium/low confidence buckets.
func (s *knowledgeApplicatorService) partition(mappings []models.FieldMapping) (high, medium, low []models.FieldMapping) {
	for _, m := range mappings {
		switch {
		case m.Confidence >= s.cfg.HighConfidence:
			high = append(high, m)
		case m.Confidence >= s.cfg.MediumConfidence:
			medium = append(medium, m)
		default:
			low = append(low, m)
		}
	}
	return high, medium, low
}

// applyAction computes the new field value. REPLACE always overwrites;
// APPEND concatenates below a separator when the field already holds text.
// Earlier mappings in the same batch are visible through changedFields.
func (s *knowledgeApplicatorService) applyAction(kb *models.KnowledgeBase, changedFields map[string]string, m models.FieldMapping) string {
	current, ok := changedFields[m.Field]
	if !ok {
		current, _ = kb.FieldValue(m.Field)
	}

	if m.Action == models.ActionAppend && current != "" {
		return current + appendSeparator + m.Insight
	}
	return m.Insight
}

func (s *knowledgeApplicatorService) deferMediumMappings(ctx context.Context, kb *models.KnowledgeBase, sourceID uuid.UUID, sourceType models.SourceType, actingUser uuid.UUID, medium []models.FieldMapping) *DeferredOutcome {
	outcome := &DeferredOutcome{}

	candidates := make([]models.CandidateInsight, 0, len(medium))
	for _, m := range medium {
		current, _ := kb.FieldValue(m.Field)
		candidates = append(candidates, models.CandidateInsight{
			Insight:    m.Insight,
			Category:   m.Field,
			EventType:  models.EventKnowledgeExpanded,
			Confidence: m.Confidence,
			Metadata: models.EventMetadata{
				Field:          m.Field,
				CurrentValue:   current,
				SuggestedValue: m.Insight,
				Action:         string(m.Action),
			},
		})
	}

	created := s.eventSvc.CreateLearningEvents(ctx, kb.ID, sourceType, sourceID, candidates, &actingUser)
	outcome.EventsCreated = created.EventsCreated
	if !created.Success {
		outcome.Reason = fmt.Sprintf("learning event creation failed: %d errors", len(created.Errors))
		s.logger.Warn("deferred pipeline: event creation failed",
			zap.String("knowledge_base_id", kb.ID.String()),
			zap.Strings("errors", created.Errors))
		return outcome
	}

	// Second pass: events created just now may already clear the high bar.
	applied, err := s.applier.ApplyPendingEvents(ctx, kb.ID, s.cfg.HighConfidence)
	if err != nil {
		outcome.Reason = fmt.Sprintf("re-apply pass failed: %s", logging.SanitizeError(err))
		s.logger.Warn("deferred pipeline: re-apply pass failed",
			zap.String("knowledge_base_id", kb.ID.String()),
			zap.Error(err))
		return outcome
	}
	outcome.ReApplied = applied

	return outcome
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
