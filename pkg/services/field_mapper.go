package services

import (
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/config"
	"github.com/hirestack-ai/knowledge-engine/pkg/jsonutil"
	"github.com/hirestack-ai/knowledge-engine/pkg/llm"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
)

// FieldMapperService turns raw extraction output into a validated
// MappingResult. The extraction service is told to filter and cap its own
// output; this layer enforces the same rules again because the service is
// remote and untrusted.
type FieldMapperService interface {
	FilterMappingResult(raw *llm.ExtractionResult) *models.MappingResult
}

type fieldMapperService struct {
	cfg    config.PipelineConfig
	logger *zap.Logger
}

// NewFieldMapperService creates a new FieldMapperService.
func NewFieldMapperService(cfg config.PipelineConfig, logger *zap.Logger) FieldMapperService {
	return &fieldMapperService{
		cfg:    cfg,
		logger: logger.Named("field-mapper"),
	}
}

var _ FieldMapperService = (*fieldMapperService)(nil)

func (s *fieldMapperService) FilterMappingResult(raw *llm.ExtractionResult) *models.MappingResult {
	result := &models.MappingResult{
		FieldMappings: []models.FieldMapping{},
		NewInsights:   []models.NewInsight{},
	}
	if raw == nil {
		return result
	}

	dropped := 0

	for i, rm := range raw.FieldMappings {
		if len(result.FieldMappings) >= s.cfg.MaxFieldMappings {
			dropped += len(raw.FieldMappings) - i
			break
		}

		confidence := jsonutil.FlexibleIntValue(rm.Confidence)
		action := parseAction(rm.Action)
		if rm.Field == "" || rm.Insight == "" || action == "" || confidence < s.cfg.MinMappingConfidence {
			dropped++
			continue
		}
		if confidence > 100 {
			confidence = 100
		}

		result.FieldMappings = append(result.FieldMappings, models.FieldMapping{
			Field:      rm.Field,
			Insight:    rm.Insight,
			Confidence: confidence,
			Action:     action,
			Reasoning:  rm.Reasoning,
		})
	}

	for _, ri := range raw.NewInsights {
		if len(result.NewInsights) >= s.cfg.MaxNewInsights {
			break
		}

		confidence := jsonutil.FlexibleIntValue(ri.Confidence)
		if ri.Insight == "" || confidence < s.cfg.MinMappingConfidence {
			dropped++
			continue
		}
		if confidence > 100 {
			confidence = 100
		}

		result.NewInsights = append(result.NewInsights, models.NewInsight{
			Insight:    ri.Insight,
			Category:   ri.Category,
			Confidence: confidence,
		})
	}

	if dropped > 0 {
		s.logger.Debug("filtered extraction output",
			zap.Int("kept_mappings", len(result.FieldMappings)),
			zap.Int("kept_insights", len(result.NewInsights)),
			zap.Int("dropped", dropped))
	}

	return result
}

// parseAction validates the action string from the extraction service.
// Unknown actions invalidate the mapping rather than defaulting, since a
// wrong default could overwrite good data.
func parseAction(s string) models.MappingAction {
	switch models.MappingAction(s) {
	case models.ActionReplace, models.ActionAppend, models.ActionNewInsight:
		return models.MappingAction(s)
	default:
		return ""
	}
}
