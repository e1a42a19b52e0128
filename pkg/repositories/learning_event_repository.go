package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hirestack-ai/knowledge-engine/pkg/database"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
)

// LearningEventRepository provides data access for learning events.
// Events are immutable after creation; the only permitted mutation is
// flagging them applied.
type LearningEventRepository interface {
	Create(ctx context.Context, event *models.LearningEvent) error
	GetByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.LearningEvent, error)

	// GetPending returns unapplied events, oldest first.
	GetPending(ctx context.Context, kbID uuid.UUID) ([]*models.LearningEvent, error)

	MarkApplied(ctx context.Context, ids []uuid.UUID) error
}

type learningEventRepository struct{}

// NewLearningEventRepository creates a new LearningEventRepository.
func NewLearningEventRepository() LearningEventRepository {
	return &learningEventRepository{}
}

var _ LearningEventRepository = (*learningEventRepository)(nil)

const learningEventColumns = `
	id, knowledge_base_id, event_type, insight, category, confidence,
	source_ids, triggered_by, metadata, applied, applied_at, created_at`

func (r *learningEventRepository) Create(ctx context.Context, event *models.LearningEvent) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO engine_learning_events (
			id, knowledge_base_id, event_type, insight, category, confidence,
			source_ids, triggered_by, metadata, applied, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := scope.Conn.Exec(ctx, query,
		event.ID, event.KnowledgeBaseID, event.EventType, event.Insight,
		event.Category, event.Confidence, event.SourceIDs, event.TriggeredBy,
		event.Metadata, event.Applied, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create learning event: %w", err)
	}

	return nil
}

func (r *learningEventRepository) GetByKnowledgeBase(ctx context.Context, kbID uuid.UUID) ([]*models.LearningEvent, error) {
	return r.query(ctx, `
		SELECT `+learningEventColumns+`
		FROM engine_learning_events
		WHERE knowledge_base_id = $1
		ORDER BY created_at`, kbID)
}

func (r *learningEventRepository) GetPending(ctx context.Context, kbID uuid.UUID) ([]*models.LearningEvent, error) {
	return r.query(ctx, `
		SELECT `+learningEventColumns+`
		FROM engine_learning_events
		WHERE knowledge_base_id = $1 AND NOT applied
		ORDER BY created_at`, kbID)
}

func (r *learningEventRepository) MarkApplied(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE engine_learning_events
		SET applied = TRUE, applied_at = $2
		WHERE id = ANY($1)`

	_, err := scope.Conn.Exec(ctx, query, ids, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark events applied: %w", err)
	}

	return nil
}

func (r *learningEventRepository) query(ctx context.Context, query string, kbID uuid.UUID) ([]*models.LearningEvent, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, query, kbID)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.LearningEvent, 0)
	for rows.Next() {
		e, err := scanLearningEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learning events: %w", err)
	}

	return events, nil
}

func scanLearningEvent(rows pgx.Rows) (*models.LearningEvent, error) {
	var e models.LearningEvent

	err := rows.Scan(
		&e.ID, &e.KnowledgeBaseID, &e.EventType, &e.Insight, &e.Category,
		&e.Confidence, &e.SourceIDs, &e.TriggeredBy, &e.Metadata,
		&e.Applied, &e.AppliedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan learning event: %w", err)
	}

	return &e, nil
}
