package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hirestack-ai/knowledge-engine/pkg/database"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
)

// KnowledgeSourceRepository provides data access for the append-only
// ingestion audit trail.
type KnowledgeSourceRepository interface {
	Create(ctx context.Context, source *models.KnowledgeSource) error
	GetByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.KnowledgeSource, error)
}

type knowledgeSourceRepository struct{}

// NewKnowledgeSourceRepository creates a new KnowledgeSourceRepository.
func NewKnowledgeSourceRepository() KnowledgeSourceRepository {
	return &knowledgeSourceRepository{}
}

var _ KnowledgeSourceRepository = (*knowledgeSourceRepository)(nil)

func (r *knowledgeSourceRepository) Create(ctx context.Context, source *models.KnowledgeSource) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	if source.ContributedFields == nil {
		source.ContributedFields = []string{}
	}

	query := `
		INSERT INTO engine_knowledge_sources (
			id, knowledge_base_id, source_type, contributed_fields,
			data, confidence, contributed_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := scope.Conn.Exec(ctx, query,
		source.ID, source.KnowledgeBaseID, source.SourceType,
		source.ContributedFields, source.Data, source.Confidence,
		source.ContributedBy, source.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create knowledge source: %w", err)
	}

	return nil
}

func (r *knowledgeSourceRepository) GetByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.KnowledgeSource, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, knowledge_base_id, source_type, contributed_fields,
			data, confidence, contributed_by, created_at
		FROM engine_knowledge_sources
		WHERE knowledge_base_id = $1
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, kbID)
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge sources: %w", err)
	}
	defer rows.Close()

	sources := make([]*models.KnowledgeSource, 0)
	for rows.Next() {
		var s models.KnowledgeSource
		err := rows.Scan(
			&s.ID, &s.KnowledgeBaseID, &s.SourceType, &s.ContributedFields,
			&s.Data, &s.Confidence, &s.ContributedBy, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge source: %w", err)
		}
		sources = append(sources, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge sources: %w", err)
	}

	return sources, nil
}
