package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/repositories"
)

// defaultEventConfidence is assumed when a candidate carries no confidence.
const defaultEventConfidence = 70

// LearningEventService is the single write path for deferred insights.
type LearningEventService interface {
	// CreateLearningEvents persists one event per valid candidate. Candidates
	// missing insight, category, or event type are skipped with a recorded
	// error; a partial batch failure is not fatal.
	CreateLearningEvents(ctx context.Context, kbID uuid.UUID, sourceType models.SourceType, sourceID uuid.UUID, insights []models.CandidateInsight, triggeredBy *uuid.UUID) *CreateEventsResult
}

// CreateEventsResult reports the outcome of one batch write.
type CreateEventsResult struct {
	Success       bool        `json:"success"`
	EventsCreated int         `json:"events_created"`
	EventIDs      []uuid.UUID `json:"event_ids"`
	Errors        []string    `json:"errors,omitempty"`
}

type learningEventService struct {
	eventRepo repositories.LearningEventRepository
	logger    *zap.Logger
}

// NewLearningEventService creates a new LearningEventService.
func NewLearningEventService(eventRepo repositories.LearningEventRepository, logger *zap.Logger) LearningEventService {
	return &learningEventService{
		eventRepo: eventRepo,
		logger:    logger.Named("learning-events"),
	}
}

var _ LearningEventService = (*learningEventService)(nil)

func (s *learningEventService) CreateLearningEvents(ctx context.Context, kbID uuid.UUID, sourceType models.SourceType, sourceID uuid.UUID, insights []models.CandidateInsight, triggeredBy *uuid.UUID) *CreateEventsResult {
	result := &CreateEventsResult{
		EventIDs: []uuid.UUID{},
	}

	for i, candidate := range insights {
		if err := validateCandidate(candidate); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("insight %d: %v", i, err))
			continue
		}

		confidence := candidate.Confidence
		if confidence == 0 {
			confidence = defaultEventConfidence
		}
		confidence = clampConfidence(confidence)

		metadata := candidate.Metadata
		metadata.SourceType = sourceType

		event := &models.LearningEvent{
			KnowledgeBaseID: kbID,
			EventType:       candidate.EventType,
			Insight:         candidate.Insight,
			Category:        candidate.Category,
			Confidence:      confidence,
			SourceIDs:       []uuid.UUID{sourceID},
			TriggeredBy:     triggeredBy,
			Metadata:        metadata,
		}

		if err := s.eventRepo.Create(ctx, event); err != nil {
			s.logger.Warn("failed to persist learning event",
				zap.String("knowledge_base_id", kbID.String()),
				zap.String("category", candidate.Category),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("insight %d: %v", i, err))
			continue
		}

		result.EventsCreated++
		result.EventIDs = append(result.EventIDs, event.ID)
	}

	// A batch succeeds if anything at all was recorded.
	result.Success = result.EventsCreated > 0

	s.logger.Debug("learning event batch processed",
		zap.String("knowledge_base_id", kbID.String()),
		zap.Int("created", result.EventsCreated),
		zap.Int("skipped", len(result.Errors)))

	return result
}

func validateCandidate(c models.CandidateInsight) error {
	if c.Insight == "" {
		return fmt.Errorf("missing insight")
	}
	if c.Category == "" {
		return fmt.Errorf("missing category")
	}
	if c.EventType == "" {
		return fmt.Errorf("missing event type")
	}
	return nil
}

func clampConfidence(c int) int {
	if c < 1 {
		return 1
	}
	if c > 100 {
		return 100
	}
	return c
}
