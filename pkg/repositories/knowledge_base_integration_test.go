package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirestack-ai/knowledge-engine/pkg/apperrors"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/testhelpers"
)

func TestKnowledgeBaseRepository_Lifecycle(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	orgID := uuid.New()
	ctx, cleanup := testhelpers.TenantContext(t, engineDB.DB, orgID)
	defer cleanup()

	repo := NewKnowledgeBaseRepository()

	kb := &models.KnowledgeBase{
		OrganizationID: orgID,
		Fields:         map[string]string{"idealCustomer": "SMBs"},
		Version:        1,
	}
	require.NoError(t, repo.Create(ctx, kb))

	loaded, err := repo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, orgID, loaded.OrganizationID)
	assert.Equal(t, "SMBs", loaded.Fields["idealCustomer"])
	assert.Equal(t, 1, loaded.Version)

	byOrg, err := repo.GetByOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, kb.ID, byOrg.ID)

	editor := uuid.New()
	insights := models.AIInsights{
		Patterns: []models.Pattern{{Insight: "Growth is seasonal", Confidence: 82, SourceID: uuid.New(), CreatedAt: time.Now()}},
	}
	require.NoError(t, repo.ApplyUpdate(ctx, kb.ID, map[string]string{
		"idealCustomer": "Mid-size law firms",
		"techStack":     "Go and Postgres",
	}, insights, editor))

	updated, err := repo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Mid-size law firms", updated.Fields["idealCustomer"])
	assert.Equal(t, "Go and Postgres", updated.Fields["techStack"])
	assert.Equal(t, []uuid.UUID{editor}, updated.Contributors)
	require.NotNil(t, updated.LastEditedBy)
	assert.Equal(t, editor, *updated.LastEditedBy)
	require.Len(t, updated.AIInsights.Patterns, 1)

	// Repeated edits by the same identity must not duplicate the contributor.
	require.NoError(t, repo.ApplyUpdate(ctx, kb.ID, map[string]string{"techStack": "Go, Postgres, Redis"}, insights, editor))
	updated, err = repo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
	assert.Equal(t, []uuid.UUID{editor}, updated.Contributors)

	// A zero editor still applies the update but leaves the editor stamp
	// and contributor list as they were.
	require.NoError(t, repo.ApplyUpdate(ctx, kb.ID, map[string]string{"salesProcess": "Inbound only"}, insights, uuid.Nil))
	updated, err = repo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Version)
	assert.Equal(t, "Inbound only", updated.Fields["salesProcess"])
	assert.Equal(t, []uuid.UUID{editor}, updated.Contributors)
	require.NotNil(t, updated.LastEditedBy)
	assert.Equal(t, editor, *updated.LastEditedBy)

	// Insight-only writes leave version and editor bookkeeping alone.
	insights.DocumentInsights = append(insights.DocumentInsights, models.DocumentInsight{
		Field: "companyCulture", Insight: "Possibly remote-first", Confidence: 55,
		SourceID: uuid.New(), Status: models.InsightStatusLowConfidence, CreatedAt: time.Now(),
	})
	require.NoError(t, repo.UpdateAIInsights(ctx, kb.ID, insights))
	updated, err = repo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Version)
	require.Len(t, updated.AIInsights.DocumentInsights, 1)
}

func TestKnowledgeBaseRepository_NotFound(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx, cleanup := testhelpers.TenantContext(t, engineDB.DB, uuid.New())
	defer cleanup()

	repo := NewKnowledgeBaseRepository()
	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestKnowledgeBaseRepository_HistoryColumns(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	orgID := uuid.New()
	ctx, cleanup := testhelpers.TenantContext(t, engineDB.DB, orgID)
	defer cleanup()

	repo := NewKnowledgeBaseRepository()
	kb := &models.KnowledgeBase{OrganizationID: orgID, Version: 1}
	require.NoError(t, repo.Create(ctx, kb))

	now := time.Now()
	require.NoError(t, repo.UpdateHiringHistory(ctx, kb.ID, models.HiringHistory{
		Roles: []models.HiringRole{{Title: "Paralegal", ServiceType: "legal_support", Count: 1, FirstSeen: now, LastSeen: now, SourceIDs: []uuid.UUID{uuid.New()}}},
	}))
	require.NoError(t, repo.UpdateSkillRequirements(ctx, kb.ID, []models.SkillRequirement{
		{Skill: "QuickBooks", Frequency: 2, FirstSeen: now, LastSeen: now},
	}))

	loaded, err := repo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	require.Len(t, loaded.HiringHistory.Roles, 1)
	assert.Equal(t, "Paralegal", loaded.HiringHistory.Roles[0].Title)
	require.Len(t, loaded.SkillRequirements, 1)
	assert.Equal(t, 2, loaded.SkillRequirements[0].Frequency)

	// Rolling-history writes never bump version.
	assert.Equal(t, 1, loaded.Version)
}

func TestLearningEventRepository_PendingFlow(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	orgID := uuid.New()
	ctx, cleanup := testhelpers.TenantContext(t, engineDB.DB, orgID)
	defer cleanup()

	kbRepo := NewKnowledgeBaseRepository()
	kb := &models.KnowledgeBase{OrganizationID: orgID, Version: 1}
	require.NoError(t, kbRepo.Create(ctx, kb))

	repo := NewLearningEventRepository()
	first := &models.LearningEvent{
		KnowledgeBaseID: kb.ID,
		EventType:       models.EventKnowledgeExpanded,
		Insight:         "Shifting to inbound sales",
		Category:        "salesProcess",
		Confidence:      70,
		SourceIDs:       []uuid.UUID{uuid.New()},
		Metadata:        models.EventMetadata{Field: "salesProcess", SuggestedValue: "Shifting to inbound", Action: "REPLACE"},
		CreatedAt:       time.Now().Add(-time.Minute),
	}
	second := &models.LearningEvent{
		KnowledgeBaseID: kb.ID,
		EventType:       models.EventInsightGenerated,
		Insight:         "Hiring spikes in Q1",
		Category:        "business_context",
		Confidence:      88,
		SourceIDs:       []uuid.UUID{uuid.New()},
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	pending, err := repo.GetPending(ctx, kb.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Oldest first.
	assert.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, repo.MarkApplied(ctx, []uuid.UUID{first.ID}))

	pending, err = repo.GetPending(ctx, kb.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	all, err := repo.GetByKnowledgeBase(ctx, kb.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, e := range all {
		if e.ID == first.ID {
			assert.True(t, e.Applied)
			assert.NotNil(t, e.AppliedAt)
		}
	}
}

func TestKnowledgeSourceRepository_Audit(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	orgID := uuid.New()
	ctx, cleanup := testhelpers.TenantContext(t, engineDB.DB, orgID)
	defer cleanup()

	kbRepo := NewKnowledgeBaseRepository()
	kb := &models.KnowledgeBase{OrganizationID: orgID, Version: 1}
	require.NoError(t, kbRepo.Create(ctx, kb))

	repo := NewKnowledgeSourceRepository()
	contributor := uuid.New()
	source := &models.KnowledgeSource{
		ID:                uuid.New(),
		KnowledgeBaseID:   kb.ID,
		SourceType:        models.SourceDocumentUpload,
		ContributedFields: []string{"idealCustomer"},
		Confidence:        90,
		ContributedBy:     &contributor,
		Data: models.SourceData{
			ContentSummary: "onboarding doc",
		},
	}
	require.NoError(t, repo.Create(ctx, source))

	sources, err := repo.GetByKnowledgeBase(ctx, kb.ID)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, []string{"idealCustomer"}, sources[0].ContributedFields)
	assert.Equal(t, 90, sources[0].Confidence)
	require.NotNil(t, sources[0].ContributedBy)
	assert.Equal(t, contributor, *sources[0].ContributedBy)
}
