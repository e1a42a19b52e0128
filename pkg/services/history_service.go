package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/config"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/repositories"
	"github.com/hirestack-ai/knowledge-engine/pkg/similarity"
)

// recommendationBaseline is the anchor confidence a repeated service
// recommendation is smoothed toward.
const recommendationBaseline = 85

// RoleObservation is one observed hiring role from an ingestion.
type RoleObservation struct {
	Title        string `json:"title"`
	ServiceType  string `json:"service_type"`
	HoursPerWeek *int   `json:"hours_per_week,omitempty"`
}

// ServiceObservation is one observed service-type recommendation, optionally
// with a raw fit score.
type ServiceObservation struct {
	ServiceType string `json:"service_type"`
	FitScore    *int   `json:"fit_score,omitempty"`
}

// HistoryService folds observations into the knowledge base's bounded
// rolling-history sub-documents. These are derived analytics; none of the
// updates bump the knowledge base version.
type HistoryService interface {
	UpdateHiringHistory(ctx context.Context, kbID, sourceID uuid.UUID, roles []RoleObservation) error
	UpdateServicePreferences(ctx context.Context, kbID, sourceID uuid.UUID, observations []ServiceObservation) error
	UpdateSkillRequirements(ctx context.Context, kbID uuid.UUID, skills []string) error
	UpdateBottleneckHistory(ctx context.Context, kbID, sourceID uuid.UUID, descriptions []string) error
}

type historyService struct {
	kbRepo repositories.KnowledgeBaseRepository
	cfg    config.PipelineConfig
	logger *zap.Logger
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(kbRepo repositories.KnowledgeBaseRepository, cfg config.PipelineConfig, logger *zap.Logger) HistoryService {
	return &historyService{
		kbRepo: kbRepo,
		cfg:    cfg,
		logger: logger.Named("history"),
	}
}

var _ HistoryService = (*historyService)(nil)

func (s *historyService) UpdateHiringHistory(ctx context.Context, kbID, sourceID uuid.UUID, roles []RoleObservation) error {
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}

	history := kb.HiringHistory
	now := time.Now()

	for _, obs := range roles {
		if obs.Title == "" {
			continue
		}
		merged := false
		for i := range history.Roles {
			existing := &history.Roles[i]
			// Title similarity alone is not enough; "Paralegal" for intake
			// and "Paralegal" for litigation support are different needs.
			if existing.ServiceType != obs.ServiceType {
				continue
			}
			if !similarity.IsSimilar(existing.Title, obs.Title, s.cfg.SimilarityThreshold) {
				continue
			}
			existing.Count++
			existing.LastSeen = now
			existing.SourceIDs = appendUniqueID(existing.SourceIDs, sourceID)
			if obs.HoursPerWeek != nil {
				existing.HoursPerWeek = obs.HoursPerWeek
			}
			merged = true
			break
		}
		if !merged {
			history.Roles = append(history.Roles, models.HiringRole{
				Title:        obs.Title,
				ServiceType:  obs.ServiceType,
				Count:        1,
				HoursPerWeek: obs.HoursPerWeek,
				FirstSeen:    now,
				LastSeen:     now,
				SourceIDs:    []uuid.UUID{sourceID},
			})
		}
	}

	history.Roles = evictStalestRoles(history.Roles, s.cfg.MaxHiringRoles)
	history.Patterns = computeHiringPatterns(history.Roles)

	if err := s.kbRepo.UpdateHiringHistory(ctx, kbID, history); err != nil {
		return fmt.Errorf("update hiring history: %w", err)
	}

	s.logger.Debug("hiring history updated",
		zap.String("knowledge_base_id", kbID.String()),
		zap.Int("observations", len(roles)),
		zap.Int("total_roles", len(history.Roles)))
	return nil
}

func (s *historyService) UpdateServicePreferences(ctx context.Context, kbID, sourceID uuid.UUID, observations []ServiceObservation) error {
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}

	prefs := kb.ServicePreferences
	now := time.Now()

	for _, obs := range observations {
		if obs.ServiceType == "" {
			continue
		}

		merged := false
		for i := range prefs.Recommendations {
			rec := &prefs.Recommendations[i]
			if !strings.EqualFold(rec.ServiceType, obs.ServiceType) {
				continue
			}
			rec.Count++
			rec.LastSeen = now
			rec.SourceIDs = appendUniqueID(rec.SourceIDs, sourceID)
			// Smooth toward the baseline instead of overwriting, so one
			// noisy observation cannot swing the confidence.
			rec.Confidence = int(math.Round(float64(rec.Confidence+recommendationBaseline) / 2))
			merged = true
			break
		}
		if !merged {
			prefs.Recommendations = append(prefs.Recommendations, models.ServiceRecommendation{
				ServiceType: obs.ServiceType,
				Confidence:  recommendationBaseline,
				Count:       1,
				FirstSeen:   now,
				LastSeen:    now,
				SourceIDs:   []uuid.UUID{sourceID},
			})
		}

		if obs.FitScore != nil {
			if prefs.FitScores == nil {
				prefs.FitScores = map[string][]int{}
			}
			scores := append(prefs.FitScores[obs.ServiceType], *obs.FitScore)
			if len(scores) > s.cfg.MaxFitScores {
				scores = scores[len(scores)-s.cfg.MaxFitScores:]
			}
			prefs.FitScores[obs.ServiceType] = scores
		}
	}

	if err := s.kbRepo.UpdateServicePreferences(ctx, kbID, prefs); err != nil {
		return fmt.Errorf("update service preferences: %w", err)
	}
	return nil
}

func (s *historyService) UpdateSkillRequirements(ctx context.Context, kbID uuid.UUID, skills []string) error {
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}

	existing := kb.SkillRequirements
	now := time.Now()

	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		found := false
		for i := range existing {
			if strings.EqualFold(existing[i].Skill, skill) {
				// Frequency counts raw mentions; the same skill twice in one
				// batch increments twice.
				existing[i].Frequency++
				existing[i].LastSeen = now
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, models.SkillRequirement{
				Skill:     skill,
				Frequency: 1,
				FirstSeen: now,
				LastSeen:  now,
			})
		}
	}

	if err := s.kbRepo.UpdateSkillRequirements(ctx, kbID, existing); err != nil {
		return fmt.Errorf("update skill requirements: %w", err)
	}
	return nil
}

func (s *historyService) UpdateBottleneckHistory(ctx context.Context, kbID, sourceID uuid.UUID, descriptions []string) error {
	kb, err := s.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}

	bottlenecks := kb.BottleneckHistory
	now := time.Now()
	dedupWindow := time.Duration(s.cfg.BottleneckDedupDays) * 24 * time.Hour

	for _, desc := range descriptions {
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		merged := false
		for i := range bottlenecks {
			entry := &bottlenecks[i]
			// Only recent entries suppress a new record. A bottleneck last
			// seen outside the window may be a resolved issue recurring.
			if now.Sub(entry.LastSeen) > dedupWindow {
				continue
			}
			if !similarity.IsSimilar(entry.Description, desc, s.cfg.SimilarityThreshold) {
				continue
			}
			entry.Count++
			entry.LastSeen = now
			entry.SourceIDs = appendUniqueID(entry.SourceIDs, sourceID)
			merged = true
			break
		}
		if !merged {
			bottlenecks = append(bottlenecks, models.BottleneckEntry{
				Description: desc,
				Count:       1,
				FirstSeen:   now,
				LastSeen:    now,
				SourceIDs:   []uuid.UUID{sourceID},
			})
		}
	}

	if len(bottlenecks) > s.cfg.MaxBottlenecks {
		sort.SliceStable(bottlenecks, func(i, j int) bool {
			return bottlenecks[i].LastSeen.After(bottlenecks[j].LastSeen)
		})
		bottlenecks = bottlenecks[:s.cfg.MaxBottlenecks]
	}

	if err := s.kbRepo.UpdateBottleneckHistory(ctx, kbID, bottlenecks); err != nil {
		return fmt.Errorf("update bottleneck history: %w", err)
	}
	return nil
}

func evictStalestRoles(roles []models.HiringRole, limit int) []models.HiringRole {
	if len(roles) <= limit {
		return roles
	}
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].LastSeen.After(roles[j].LastSeen)
	})
	return roles[:limit]
}

func computeHiringPatterns(roles []models.HiringRole) models.HiringPatterns {
	patterns := models.HiringPatterns{}
	if len(roles) == 0 {
		return patterns
	}

	// Counts are cumulative per title: the same title tracked under
	// several service types ranks as one role.
	titleCounts := map[string]int{}
	for _, r := range roles {
		titleCounts[r.Title] += r.Count
	}
	titles := make([]string, 0, len(titleCounts))
	for t := range titleCounts {
		titles = append(titles, t)
	}
	sort.Slice(titles, func(i, j int) bool {
		if titleCounts[titles[i]] != titleCounts[titles[j]] {
			return titleCounts[titles[i]] > titleCounts[titles[j]]
		}
		return titles[i] < titles[j]
	})
	if len(titles) > 5 {
		titles = titles[:5]
	}
	for _, t := range titles {
		patterns.TopRoles = append(patterns.TopRoles, models.RoleCount{
			Title: t,
			Count: titleCounts[t],
		})
	}

	serviceCounts := map[string]int{}
	for _, r := range roles {
		if r.ServiceType != "" {
			serviceCounts[r.ServiceType] += r.Count
		}
	}
	types := make([]string, 0, len(serviceCounts))
	for t := range serviceCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if serviceCounts[types[i]] != serviceCounts[types[j]] {
			return serviceCounts[types[i]] > serviceCounts[types[j]]
		}
		return types[i] < types[j]
	})
	if len(types) > 3 {
		types = types[:3]
	}
	patterns.PreferredServiceTypes = types

	hoursSum, hoursCount := 0, 0
	for _, r := range roles {
		if r.HoursPerWeek != nil {
			hoursSum += *r.HoursPerWeek
			hoursCount++
		}
	}
	if hoursCount > 0 {
		avg := float64(hoursSum) / float64(hoursCount)
		patterns.AvgHoursPerWeek = &avg
	}

	return patterns
}

func appendUniqueID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
