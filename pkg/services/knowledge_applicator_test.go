package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/apperrors"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
)

// testKBRepo is an in-memory KnowledgeBaseRepository mirroring the write
// semantics of the real one (merge, version bump, contributor union).
type testKBRepo struct {
	kb           *models.KnowledgeBase
	getErr       error
	applyErr     error
	applyCalls   int
	insightCalls int
}

func (r *testKBRepo) Create(ctx context.Context, kb *models.KnowledgeBase) error {
	r.kb = kb
	return nil
}

func (r *testKBRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.kb == nil || r.kb.ID != id {
		return nil, apperrors.ErrNotFound
	}
	copied := *r.kb
	return &copied, nil
}

func (r *testKBRepo) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.KnowledgeBase, error) {
	if r.kb == nil || r.kb.OrganizationID != orgID {
		return nil, apperrors.ErrNotFound
	}
	return r.kb, nil
}

func (r *testKBRepo) ApplyUpdate(ctx context.Context, id uuid.UUID, changedFields map[string]string, insights models.AIInsights, editedBy uuid.UUID) error {
	r.applyCalls++
	if r.applyErr != nil {
		return r.applyErr
	}
	if r.kb.Fields == nil {
		r.kb.Fields = map[string]string{}
	}
	for k, v := range changedFields {
		r.kb.Fields[k] = v
	}
	r.kb.AIInsights = insights
	r.kb.Version++
	if editedBy != uuid.Nil {
		r.kb.LastEditedBy = &editedBy
		if !r.kb.HasContributor(editedBy) {
			r.kb.Contributors = append(r.kb.Contributors, editedBy)
		}
	}
	return nil
}

func (r *testKBRepo) UpdateAIInsights(ctx context.Context, id uuid.UUID, insights models.AIInsights) error {
	r.insightCalls++
	r.kb.AIInsights = insights
	return nil
}

func (r *testKBRepo) UpdateHiringHistory(ctx context.Context, id uuid.UUID, history models.HiringHistory) error {
	r.kb.HiringHistory = history
	return nil
}

func (r *testKBRepo) UpdateServicePreferences(ctx context.Context, id uuid.UUID, prefs models.ServicePreferences) error {
	r.kb.ServicePreferences = prefs
	return nil
}

func (r *testKBRepo) UpdateSkillRequirements(ctx context.Context, id uuid.UUID, skills []models.SkillRequirement) error {
	r.kb.SkillRequirements = skills
	return nil
}

func (r *testKBRepo) UpdateBottleneckHistory(ctx context.Context, id uuid.UUID, bottlenecks []models.BottleneckEntry) error {
	r.kb.BottleneckHistory = bottlenecks
	return nil
}

// testSourceRepo is an in-memory KnowledgeSourceRepository.
type testSourceRepo struct {
	sources   []*models.KnowledgeSource
	createErr error
}

func (r *testSourceRepo) Create(ctx context.Context, source *models.KnowledgeSource) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.sources = append(r.sources, source)
	return nil
}

func (r *testSourceRepo) GetByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.KnowledgeSource, error) {
	return r.sources, nil
}

// stubApplier records re-apply invocations.
type stubApplier struct {
	applied  int
	err      error
	calls    int
	minConfs []int
}

func (a *stubApplier) ApplyPendingEvents(ctx context.Context, kbID uuid.UUID, minConfidence int) (int, error) {
	a.calls++
	a.minConfs = append(a.minConfs, minConfidence)
	return a.applied, a.err
}

func newTestApplicator(kbRepo *testKBRepo, sourceRepo *testSourceRepo, eventRepo *testEventRepo, applier EventsApplierService) KnowledgeApplicatorService {
	logger := zap.NewNop()
	eventSvc := NewLearningEventService(eventRepo, logger)
	return NewKnowledgeApplicatorService(kbRepo, sourceRepo, eventSvc, applier, testPipelineConfig(), logger)
}

func seedKB() *models.KnowledgeBase {
	return &models.KnowledgeBase{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Fields:         map[string]string{},
		Version:        1,
	}
}

func TestApplyInsights_HighConfidenceDirectApply(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	sourceRepo := &testSourceRepo{}
	applier := &stubApplier{}
	svc := newTestApplicator(kbRepo, sourceRepo, &testEventRepo{}, applier)

	sourceID := uuid.New()
	userID := uuid.New()
	mapping := &models.MappingResult{
		FieldMappings: []models.FieldMapping{
			{Field: "idealCustomer", Insight: "Mid-size law firms in the US Northeast", Confidence: 90, Action: models.ActionReplace},
		},
		NewInsights: []models.NewInsight{
			{Insight: "Hiring spikes in Q1", Category: "process_optimization", Confidence: 82},
		},
	}

	result, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, sourceID, models.SourceDocumentUpload, userID, mapping, "onboarding doc")
	require.NoError(t, err)

	assert.Equal(t, []string{"idealCustomer"}, result.FieldsUpdated)
	assert.Equal(t, 1, result.HighApplied)
	assert.Equal(t, 1, result.PatternsAdded)
	assert.True(t, result.VersionBumped)
	assert.Nil(t, result.Deferred)

	assert.Equal(t, "Mid-size law firms in the US Northeast", kbRepo.kb.Fields["idealCustomer"])
	assert.Equal(t, 2, kbRepo.kb.Version)
	assert.Equal(t, []uuid.UUID{userID}, kbRepo.kb.Contributors)
	require.Len(t, kbRepo.kb.AIInsights.Patterns, 1)
	assert.Equal(t, "Hiring spikes in Q1", kbRepo.kb.AIInsights.Patterns[0].Insight)

	require.Len(t, sourceRepo.sources, 1)
	source := sourceRepo.sources[0]
	assert.Equal(t, sourceID, source.ID)
	assert.Equal(t, []string{"idealCustomer"}, source.ContributedFields)
	assert.Equal(t, 90, source.Confidence)
	assert.Equal(t, models.SourceDocumentUpload, source.SourceType)
}

func TestApplyInsights_SourceConfidenceRoundsMean(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	sourceRepo := &testSourceRepo{}
	svc := newTestApplicator(kbRepo, sourceRepo, &testEventRepo{}, &stubApplier{})

	mapping := &models.MappingResult{
		FieldMappings: []models.FieldMapping{
			{Field: "idealCustomer", Insight: "Regional credit unions", Confidence: 90, Action: models.ActionReplace},
			{Field: "salesProcess", Insight: "Founder-led demos", Confidence: 85, Action: models.ActionReplace},
		},
	}

	_, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceDocumentUpload, uuid.New(), mapping, "notes")
	require.NoError(t, err)

	// (90+85)/2 = 87.5 rounds to 88 rather than truncating.
	require.Len(t, sourceRepo.sources, 1)
	assert.Equal(t, 88, sourceRepo.sources[0].Confidence)
}

func TestApplyInsights_AppendAndReplaceSemantics(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	kbRepo.kb.Fields["teamStructure"] = "Two pods of five"
	kbRepo.kb.Fields["idealCustomer"] = "SMBs"
	svc := newTestApplicator(kbRepo, &testSourceRepo{}, &testEventRepo{}, &stubApplier{})

	mapping := &models.MappingResult{
		FieldMappings: []models.FieldMapping{
			{Field: "teamStructure", Insight: "Adding a third pod in Q3", Confidence: 85, Action: models.ActionAppend},
			{Field: "idealCustomer", Insight: "Enterprise accounts only", Confidence: 95, Action: models.ActionReplace},
		},
	}

	_, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceChatConversation, uuid.New(), mapping, "")
	require.NoError(t, err)

	assert.Equal(t, "Two pods of five\n\n---\n\nAdding a third pod in Q3", kbRepo.kb.Fields["teamStructure"])
	assert.Equal(t, "Enterprise accounts only", kbRepo.kb.Fields["idealCustomer"])
	assert.Equal(t, 1, kbRepo.applyCalls)
}

func TestApplyInsights_AppendToEmptyFieldSetsValue(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	svc := newTestApplicator(kbRepo, &testSourceRepo{}, &testEventRepo{}, &stubApplier{})

	mapping := &models.MappingResult{
		FieldMappings: []models.FieldMapping{
			{Field: "techStack", Insight: "Go and Postgres", Confidence: 88, Action: models.ActionAppend},
		},
	}

	_, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceDocumentUpload, uuid.New(), mapping, "")
	require.NoError(t, err)
	assert.Equal(t, "Go and Postgres", kbRepo.kb.Fields["techStack"])
}

func TestApplyInsights_MediumCreatesEventsAndReapplies(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	kbRepo.kb.Fields["salesProcess"] = "Outbound only"
	eventRepo := &testEventRepo{}
	applier := &stubApplier{applied: 1}
	svc := newTestApplicator(kbRepo, &testSourceRepo{}, eventRepo, applier)

	mapping := &models.MappingResult{
		FieldMappings: []models.FieldMapping{
			{Field: "salesProcess", Insight: "Shifting to inbound", Confidence: 70, Action: models.ActionReplace},
		},
	}

	result, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceDocumentUpload, uuid.New(), mapping, "")
	require.NoError(t, err)

	require.NotNil(t, result.Deferred)
	assert.Equal(t, 1, result.Deferred.EventsCreated)
	assert.Equal(t, 1, result.Deferred.ReApplied)
	assert.Empty(t, result.Deferred.Reason)

	require.Len(t, eventRepo.events, 1)
	event := eventRepo.events[0]
	assert.Equal(t, models.EventKnowledgeExpanded, event.EventType)
	assert.Equal(t, "salesProcess", event.Metadata.Field)
	assert.Equal(t, "Outbound only", event.Metadata.CurrentValue)
	assert.Equal(t, "Shifting to inbound", event.Metadata.SuggestedValue)
	assert.Equal(t, string(models.ActionReplace), event.Metadata.Action)

	// Re-apply runs at the high threshold, not the medium one.
	assert.Equal(t, []int{80}, applier.minConfs)

	// Medium alone never writes the knowledge base directly.
	assert.Equal(t, 0, kbRepo.applyCalls)
	assert.False(t, result.VersionBumped)
}

func TestApplyInsights_ReapplyFailureIsNotFatal(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	applier := &stubApplier{err: errors.New("events table unavailable")}
	svc := newTestApplicator(kbRepo, &testSourceRepo{}, &testEventRepo{}, applier)

	mapping := &models.MappingResult{
		FieldMappings: []models.FieldMapping{
			{Field: "hiringGoals", Insight: "Double engineering by December", Confidence: 68, Action: models.ActionReplace},
		},
	}

	result, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceDocumentUpload, uuid.New(), mapping, "")
	require.NoError(t, err)
	require.NotNil(t, result.Deferred)
	assert.Equal(t, 1, result.Deferred.EventsCreated)
	assert.Contains(t, result.Deferred.Reason, "re-apply pass failed")
}

func TestApplyInsights_LowConfidenceArchived(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	svc := newTestApplicator(kbRepo, &testSourceRepo{}, &testEventRepo{}, &stubApplier{})

	sourceID := uuid.New()
	mapping := &models.MappingResult{
		FieldMappings: []models.FieldMapping{
			{Field: "companyCulture", Insight: "Possibly remote-first", Confidence: 55, Action: models.ActionReplace},
		},
	}

	result, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, sourceID, models.SourceDocumentUpload, uuid.New(), mapping, "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.LowArchived)
	assert.False(t, result.VersionBumped)
	assert.Equal(t, 0, kbRepo.applyCalls)
	assert.Equal(t, 1, kbRepo.insightCalls)

	require.Len(t, kbRepo.kb.AIInsights.DocumentInsights, 1)
	archived := kbRepo.kb.AIInsights.DocumentInsights[0]
	assert.Equal(t, models.InsightStatusLowConfidence, archived.Status)
	assert.Equal(t, "companyCulture", archived.Field)
	assert.Equal(t, sourceID, archived.SourceID)
	assert.Empty(t, kbRepo.kb.Fields)
}

func TestApplyInsights_EmptyMappingStillRecordsSource(t *testing.T) {
	kbRepo := &testKBRepo{kb: seedKB()}
	sourceRepo := &testSourceRepo{}
	svc := newTestApplicator(kbRepo, sourceRepo, &testEventRepo{}, &stubApplier{})

	result, err := svc.ApplyInsights(context.Background(), kbRepo.kb.ID, uuid.New(), models.SourceJobDescription, uuid.New(), &models.MappingResult{}, "empty doc")
	require.NoError(t, err)

	assert.False(t, result.VersionBumped)
	assert.Equal(t, 1, kbRepo.kb.Version)
	require.Len(t, sourceRepo.sources, 1)
	assert.Equal(t, 0, sourceRepo.sources[0].Confidence)
	assert.Empty(t, sourceRepo.sources[0].ContributedFields)
}

func TestApplyInsights_MissingKnowledgeBase(t *testing.T) {
	kbRepo := &testKBRepo{}
	svc := newTestApplicator(kbRepo, &testSourceRepo{}, &testEventRepo{}, &stubApplier{})

	_, err := svc.ApplyInsights(context.Background(), uuid.New(), uuid.New(), models.SourceDocumentUpload, uuid.New(), &models.MappingResult{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
