package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hirestack-ai/knowledge-engine/pkg/apperrors"
	"github.com/hirestack-ai/knowledge-engine/pkg/database"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
)

// KnowledgeBaseRepository provides data access for organization knowledge bases.
type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *models.KnowledgeBase) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error)
	GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.KnowledgeBase, error)

	// ApplyUpdate merges changedFields into the fields document, replaces the
	// AI-insights side channel, bumps version by exactly 1, stamps the editor,
	// and appends the editor to contributors if not already present. One call
	// per accepted mutation batch.
	ApplyUpdate(ctx context.Context, id uuid.UUID, changedFields map[string]string, insights models.AIInsights, editedBy uuid.UUID) error

	// UpdateAIInsights replaces the side channel without touching version or
	// editor bookkeeping. Used for provisional low-confidence annotations.
	UpdateAIInsights(ctx context.Context, id uuid.UUID, insights models.AIInsights) error

	// Rolling-history sub-documents are derived analytics; updating them never
	// bumps version.
	UpdateHiringHistory(ctx context.Context, id uuid.UUID, history models.HiringHistory) error
	UpdateServicePreferences(ctx context.Context, id uuid.UUID, prefs models.ServicePreferences) error
	UpdateSkillRequirements(ctx context.Context, id uuid.UUID, skills []models.SkillRequirement) error
	UpdateBottleneckHistory(ctx context.Context, id uuid.UUID, bottlenecks []models.BottleneckEntry) error
}

type knowledgeBaseRepository struct{}

// NewKnowledgeBaseRepository creates a new KnowledgeBaseRepository.
func NewKnowledgeBaseRepository() KnowledgeBaseRepository {
	return &knowledgeBaseRepository{}
}

var _ KnowledgeBaseRepository = (*knowledgeBaseRepository)(nil)

const knowledgeBaseColumns = `
	id, organization_id, fields, ai_insights, hiring_history,
	service_preferences, skill_requirements, bottleneck_history,
	version, contributors, last_edited_by, last_edited_at,
	created_at, updated_at`

func (r *knowledgeBaseRepository) Create(ctx context.Context, kb *models.KnowledgeBase) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	now := time.Now()
	if kb.ID == uuid.Nil {
		kb.ID = uuid.New()
	}
	kb.CreatedAt = now
	kb.UpdatedAt = now
	if kb.Fields == nil {
		kb.Fields = map[string]string{}
	}
	if kb.Contributors == nil {
		kb.Contributors = []uuid.UUID{}
	}

	query := `
		INSERT INTO engine_knowledge_bases (
			id, organization_id, fields, ai_insights, hiring_history,
			service_preferences, skill_requirements, bottleneck_history,
			version, contributors, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := scope.Conn.Exec(ctx, query,
		kb.ID, kb.OrganizationID, kb.Fields, kb.AIInsights, kb.HiringHistory,
		kb.ServicePreferences, kb.SkillRequirements, kb.BottleneckHistory,
		kb.Version, kb.Contributors, kb.CreatedAt, kb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	return nil
}

func (r *knowledgeBaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + knowledgeBaseColumns + `
		FROM engine_knowledge_bases
		WHERE id = $1`

	return scanKnowledgeBase(scope.Conn.QueryRow(ctx, query, id))
}

func (r *knowledgeBaseRepository) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.KnowledgeBase, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + knowledgeBaseColumns + `
		FROM engine_knowledge_bases
		WHERE organization_id = $1`

	return scanKnowledgeBase(scope.Conn.QueryRow(ctx, query, orgID))
}

func (r *knowledgeBaseRepository) ApplyUpdate(ctx context.Context, id uuid.UUID, changedFields map[string]string, insights models.AIInsights, editedBy uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if changedFields == nil {
		changedFields = map[string]string{}
	}

	// A zero editor means the update has no attributable identity, e.g.
	// system-triggered event application. The editor columns and the
	// contributor list stay untouched in that case.
	var editor *uuid.UUID
	if editedBy != uuid.Nil {
		editor = &editedBy
	}

	// The version bump and contributor union happen in SQL so they stay
	// atomic under concurrent writers even though field merging itself is
	// last-writer-wins.
	query := `
		UPDATE engine_knowledge_bases SET
			fields = fields || $2::jsonb,
			ai_insights = $3,
			version = version + 1,
			last_edited_by = COALESCE($4, last_edited_by),
			last_edited_at = $5,
			updated_at = $5,
			contributors = CASE
				WHEN $4 IS NULL OR $4 = ANY(contributors) THEN contributors
				ELSE array_append(contributors, $4)
			END
		WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query, id, changedFields, insights, editor, time.Now())
	if err != nil {
		return fmt.Errorf("failed to apply knowledge base update: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("knowledge base %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

func (r *knowledgeBaseRepository) UpdateAIInsights(ctx context.Context, id uuid.UUID, insights models.AIInsights) error {
	return r.updateColumn(ctx, id, "ai_insights", insights)
}

func (r *knowledgeBaseRepository) UpdateHiringHistory(ctx context.Context, id uuid.UUID, history models.HiringHistory) error {
	return r.updateColumn(ctx, id, "hiring_history", history)
}

func (r *knowledgeBaseRepository) UpdateServicePreferences(ctx context.Context, id uuid.UUID, prefs models.ServicePreferences) error {
	return r.updateColumn(ctx, id, "service_preferences", prefs)
}

func (r *knowledgeBaseRepository) UpdateSkillRequirements(ctx context.Context, id uuid.UUID, skills []models.SkillRequirement) error {
	return r.updateColumn(ctx, id, "skill_requirements", skills)
}

func (r *knowledgeBaseRepository) UpdateBottleneckHistory(ctx context.Context, id uuid.UUID, bottlenecks []models.BottleneckEntry) error {
	return r.updateColumn(ctx, id, "bottleneck_history", bottlenecks)
}

func (r *knowledgeBaseRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	// column is always one of the fixed jsonb column names above.
	query := fmt.Sprintf(`
		UPDATE engine_knowledge_bases SET %s = $2, updated_at = $3
		WHERE id = $1`, column)

	result, err := scope.Conn.Exec(ctx, query, id, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("knowledge base %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

func scanKnowledgeBase(row pgx.Row) (*models.KnowledgeBase, error) {
	var kb models.KnowledgeBase

	err := row.Scan(
		&kb.ID, &kb.OrganizationID, &kb.Fields, &kb.AIInsights, &kb.HiringHistory,
		&kb.ServicePreferences, &kb.SkillRequirements, &kb.BottleneckHistory,
		&kb.Version, &kb.Contributors, &kb.LastEditedBy, &kb.LastEditedAt,
		&kb.CreatedAt, &kb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("knowledge base: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
	}

	return &kb, nil
}
