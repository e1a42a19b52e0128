package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hirestack-ai/knowledge-engine/pkg/apperrors"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/services"
)

// passthroughTenant skips tenant scoping in handler tests.
func passthroughTenant(next http.HandlerFunc) http.HandlerFunc { return next }

type mockKBRepo struct {
	kb        *models.KnowledgeBase
	createErr error
}

func (m *mockKBRepo) Create(ctx context.Context, kb *models.KnowledgeBase) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.kb = kb
	return nil
}

func (m *mockKBRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error) {
	if m.kb == nil || m.kb.ID != id {
		return nil, apperrors.ErrNotFound
	}
	return m.kb, nil
}

func (m *mockKBRepo) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.KnowledgeBase, error) {
	if m.kb == nil || m.kb.OrganizationID != orgID {
		return nil, apperrors.ErrNotFound
	}
	return m.kb, nil
}

func (m *mockKBRepo) ApplyUpdate(ctx context.Context, id uuid.UUID, changedFields map[string]string, insights models.AIInsights, editedBy uuid.UUID) error {
	return nil
}

func (m *mockKBRepo) UpdateAIInsights(ctx context.Context, id uuid.UUID, insights models.AIInsights) error {
	return nil
}

func (m *mockKBRepo) UpdateHiringHistory(ctx context.Context, id uuid.UUID, history models.HiringHistory) error {
	return nil
}

func (m *mockKBRepo) UpdateServicePreferences(ctx context.Context, id uuid.UUID, prefs models.ServicePreferences) error {
	return nil
}

func (m *mockKBRepo) UpdateSkillRequirements(ctx context.Context, id uuid.UUID, skills []models.SkillRequirement) error {
	return nil
}

func (m *mockKBRepo) UpdateBottleneckHistory(ctx context.Context, id uuid.UUID, bottlenecks []models.BottleneckEntry) error {
	return nil
}

type mockEventRepo struct {
	events []*models.LearningEvent
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.LearningEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventRepo) GetByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.LearningEvent, error) {
	return m.events, nil
}

func (m *mockEventRepo) GetPending(ctx context.Context, kbID uuid.UUID) ([]*models.LearningEvent, error) {
	return m.events, nil
}

func (m *mockEventRepo) MarkApplied(ctx context.Context, ids []uuid.UUID) error {
	return nil
}

type mockSourceRepo struct {
	sources []*models.KnowledgeSource
}

func (m *mockSourceRepo) Create(ctx context.Context, source *models.KnowledgeSource) error {
	m.sources = append(m.sources, source)
	return nil
}

func (m *mockSourceRepo) GetByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.KnowledgeSource, error) {
	return m.sources, nil
}

type mockIngestion struct {
	result *services.IngestResult
	err    error
	calls  int
}

func (m *mockIngestion) IngestDocument(ctx context.Context, kbID, userID uuid.UUID, sourceType models.SourceType, content string) (*services.IngestResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockApplier struct {
	applied int
	err     error
}

func (m *mockApplier) ApplyPendingEvents(ctx context.Context, kbID uuid.UUID, minConfidence int) (int, error) {
	return m.applied, m.err
}

type mockHistory struct {
	hiringCalls     int
	serviceCalls    int
	skillCalls      int
	bottleneckCalls int
	err             error
}

func (m *mockHistory) UpdateHiringHistory(ctx context.Context, kbID, sourceID uuid.UUID, roles []services.RoleObservation) error {
	m.hiringCalls++
	return m.err
}

func (m *mockHistory) UpdateServicePreferences(ctx context.Context, kbID, sourceID uuid.UUID, observations []services.ServiceObservation) error {
	m.serviceCalls++
	return m.err
}

func (m *mockHistory) UpdateSkillRequirements(ctx context.Context, kbID uuid.UUID, skills []string) error {
	m.skillCalls++
	return m.err
}

func (m *mockHistory) UpdateBottleneckHistory(ctx context.Context, kbID, sourceID uuid.UUID, descriptions []string) error {
	m.bottleneckCalls++
	return m.err
}
