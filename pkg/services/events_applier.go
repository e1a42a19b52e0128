package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/config"
	"github.com/hirestack-ai/knowledge-engine/pkg/decay"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/repositories"
)

// EventsApplierService drains pending learning events into the knowledge
// base. Events are processed in priority order and gated by age-decayed
// confidence, so a stale suggestion quietly stays pending until superseded.
type EventsApplierService interface {
	// ApplyPendingEvents applies every pending field-suggestion event whose
	// decayed confidence still clears minConfidence, using one batched
	// knowledge base write. It returns the number of events applied.
	ApplyPendingEvents(ctx context.Context, kbID uuid.UUID, minConfidence int) (int, error)
}

type eventsApplierService struct {
	kbRepo    repositories.KnowledgeBaseRepository
	eventRepo repositories.LearningEventRepository
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

// NewEventsApplierService creates a new EventsApplierService.
func NewEventsApplierService(
	kbRepo repositories.KnowledgeBaseRepository,
	eventRepo repositories.LearningEventRepository,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) EventsApplierService {
	return &eventsApplierService{
		kbRepo:    kbRepo,
		eventRepo: eventRepo,
		cfg:       cfg,
		logger:    logger.Named("events-applier"),
	}
}

var _ EventsApplierService = (*eventsApplierService)(nil)

func (s *eventsApplierService) ApplyPendingEvents(ctx context.Context, kbID uuid.UUID, minConfidence int) (int, error) {
	pending, err := s.eventRepo.GetPending(ctx, kbID)
	if err != nil {
		return 0, fmt.Errorf("load pending events: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return 0, fmt.Errorf("load knowledge base: %w", err)
	}

	SortByPriority(pending)

	decayCfg := decay.Config{
		GracePeriodDays: s.cfg.DecayGracePeriodDays,
		MaxAgeDays:      s.cfg.DecayMaxAgeDays,
		MinRatio:        s.cfg.DecayMinRatio,
	}

	now := time.Now()
	changedFields := map[string]string{}
	appliedIDs := []uuid.UUID{}
	var editedBy uuid.UUID

	for _, event := range pending {
		if event.Metadata.Field == "" {
			continue
		}
		if !decay.MeetsConfidenceThreshold(event.Confidence, event.CreatedAt, now, minConfidence, decayCfg) {
			continue
		}

		current, seen := changedFields[event.Metadata.Field]
		if !seen {
			current, _ = kb.FieldValue(event.Metadata.Field)
		}
		switch {
		case event.Metadata.Action == string(models.ActionAppend) && current != "":
			changedFields[event.Metadata.Field] = current + appendSeparator + event.Metadata.SuggestedValue
		case seen:
			// A higher-priority event already decided this field; leave the
			// suggestion pending rather than overwrite it.
			continue
		default:
			changedFields[event.Metadata.Field] = event.Metadata.SuggestedValue
		}

		appliedIDs = append(appliedIDs, event.ID)
		if event.TriggeredBy != nil {
			editedBy = *event.TriggeredBy
		}
	}

	if len(appliedIDs) == 0 {
		return 0, nil
	}

	if err := s.kbRepo.ApplyUpdate(ctx, kbID, changedFields, kb.AIInsights, editedBy); err != nil {
		return 0, fmt.Errorf("apply event suggestions: %w", err)
	}
	if err := s.eventRepo.MarkApplied(ctx, appliedIDs); err != nil {
		return 0, fmt.Errorf("mark events applied: %w", err)
	}

	s.logger.Info("pending events applied",
		zap.String("knowledge_base_id", kbID.String()),
		zap.Int("applied", len(appliedIDs)),
		zap.Int("pending", len(pending)))

	return len(appliedIDs), nil
}
