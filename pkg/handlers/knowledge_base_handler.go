package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/apperrors"
	"github.com/hirestack-ai/knowledge-engine/pkg/database"
	"github.com/hirestack-ai/knowledge-engine/pkg/models"
	"github.com/hirestack-ai/knowledge-engine/pkg/repositories"
	"github.com/hirestack-ai/knowledge-engine/pkg/services"
)

// TenantMiddleware wraps a handler with tenant scoping.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// IngestRequest for POST /knowledge-bases/{id}/ingest.
type IngestRequest struct {
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
	UserID     string `json:"user_id"`
}

// ApplyEventsRequest for POST /knowledge-bases/{id}/events/apply.
type ApplyEventsRequest struct {
	MinConfidence int `json:"min_confidence"`
}

// ApplyEventsResponse reports how many pending events were applied.
type ApplyEventsResponse struct {
	Applied int `json:"applied"`
}

// HiringObservationsRequest for POST /knowledge-bases/{id}/history/hiring.
type HiringObservationsRequest struct {
	SourceID string                     `json:"source_id"`
	Roles    []services.RoleObservation `json:"roles"`
}

// ServiceObservationsRequest for POST /knowledge-bases/{id}/history/services.
type ServiceObservationsRequest struct {
	SourceID     string                        `json:"source_id"`
	Observations []services.ServiceObservation `json:"observations"`
}

// SkillObservationsRequest for POST /knowledge-bases/{id}/history/skills.
type SkillObservationsRequest struct {
	Skills []string `json:"skills"`
}

// BottleneckObservationsRequest for POST /knowledge-bases/{id}/history/bottlenecks.
type BottleneckObservationsRequest struct {
	SourceID     string   `json:"source_id"`
	Descriptions []string `json:"descriptions"`
}

// EventListResponse for GET /knowledge-bases/{id}/events.
type EventListResponse struct {
	Events []*models.LearningEvent `json:"events"`
	Total  int                     `json:"total"`
}

// SourceListResponse for GET /knowledge-bases/{id}/sources.
type SourceListResponse struct {
	Sources []*models.KnowledgeSource `json:"sources"`
	Total   int                       `json:"total"`
}

// KnowledgeBaseHandler handles knowledge-base HTTP requests.
type KnowledgeBaseHandler struct {
	kbRepo     repositories.KnowledgeBaseRepository
	eventRepo  repositories.LearningEventRepository
	sourceRepo repositories.KnowledgeSourceRepository
	ingestion  services.IngestionService
	applier    services.EventsApplierService
	history    services.HistoryService
	logger     *zap.Logger
}

// NewKnowledgeBaseHandler creates a new knowledge-base handler.
func NewKnowledgeBaseHandler(
	kbRepo repositories.KnowledgeBaseRepository,
	eventRepo repositories.LearningEventRepository,
	sourceRepo repositories.KnowledgeSourceRepository,
	ingestion services.IngestionService,
	applier services.EventsApplierService,
	history services.HistoryService,
	logger *zap.Logger,
) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{
		kbRepo:     kbRepo,
		eventRepo:  eventRepo,
		sourceRepo: sourceRepo,
		ingestion:  ingestion,
		applier:    applier,
		history:    history,
		logger:     logger,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *KnowledgeBaseHandler) RegisterRoutes(mux *http.ServeMux, tenant TenantMiddleware) {
	base := "/api/knowledge-bases"

	mux.HandleFunc("POST "+base, tenant(h.Create))
	mux.HandleFunc("GET "+base+"/{id}", tenant(h.Get))
	mux.HandleFunc("POST "+base+"/{id}/ingest", tenant(h.Ingest))
	mux.HandleFunc("GET "+base+"/{id}/events", tenant(h.ListEvents))
	mux.HandleFunc("POST "+base+"/{id}/events/apply", tenant(h.ApplyEvents))
	mux.HandleFunc("GET "+base+"/{id}/sources", tenant(h.ListSources))
	mux.HandleFunc("POST "+base+"/{id}/history/hiring", tenant(h.RecordHiring))
	mux.HandleFunc("POST "+base+"/{id}/history/services", tenant(h.RecordServices))
	mux.HandleFunc("POST "+base+"/{id}/history/skills", tenant(h.RecordSkills))
	mux.HandleFunc("POST "+base+"/{id}/history/bottlenecks", tenant(h.RecordBottlenecks))
}

// Create handles POST /api/knowledge-bases. One knowledge base per
// organization, created at onboarding.
func (h *KnowledgeBaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := database.GetTenantScope(r.Context())
	if !ok {
		_ = ErrorResponse(w, http.StatusInternalServerError, "no_tenant", "no tenant scope")
		return
	}

	kb := &models.KnowledgeBase{
		ID:             uuid.New(),
		OrganizationID: scope.OrgID,
		Fields:         map[string]string{},
		Version:        1,
	}
	if err := h.kbRepo.Create(r.Context(), kb); err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, kb)
}

// Get handles GET /api/knowledge-bases/{id}.
func (h *KnowledgeBaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	kb, err := h.kbRepo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, kb)
}

// Ingest handles POST /api/knowledge-bases/{id}/ingest.
func (h *KnowledgeBaseHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_user", "user_id must be a uuid")
		return
	}
	sourceType := models.SourceType(req.SourceType)
	switch sourceType {
	case models.SourceDocumentUpload, models.SourceChatConversation, models.SourceJobDescription:
	default:
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_source_type", "unknown source_type")
		return
	}

	result, err := h.ingestion.IngestDocument(r.Context(), id, userID, sourceType, req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, result)
}

// ListEvents handles GET /api/knowledge-bases/{id}/events.
func (h *KnowledgeBaseHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	events, err := h.eventRepo.GetByKnowledgeBase(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, EventListResponse{Events: events, Total: len(events)})
}

// ApplyEvents handles POST /api/knowledge-bases/{id}/events/apply.
func (h *KnowledgeBaseHandler) ApplyEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req ApplyEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.MinConfidence < 1 || req.MinConfidence > 100 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_confidence", "min_confidence must be 1-100")
		return
	}

	applied, err := h.applier.ApplyPendingEvents(r.Context(), id, req.MinConfidence)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApplyEventsResponse{Applied: applied})
}

// ListSources handles GET /api/knowledge-bases/{id}/sources.
func (h *KnowledgeBaseHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sources, err := h.sourceRepo.GetByKnowledgeBase(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, SourceListResponse{Sources: sources, Total: len(sources)})
}

// RecordHiring handles POST /api/knowledge-bases/{id}/history/hiring.
func (h *KnowledgeBaseHandler) RecordHiring(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req HiringObservationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_source", "source_id must be a uuid")
		return
	}
	if err := h.history.UpdateHiringHistory(r.Context(), id, sourceID, req.Roles); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordServices handles POST /api/knowledge-bases/{id}/history/services.
func (h *KnowledgeBaseHandler) RecordServices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req ServiceObservationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_source", "source_id must be a uuid")
		return
	}
	if err := h.history.UpdateServicePreferences(r.Context(), id, sourceID, req.Observations); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordSkills handles POST /api/knowledge-bases/{id}/history/skills.
func (h *KnowledgeBaseHandler) RecordSkills(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req SkillObservationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if err := h.history.UpdateSkillRequirements(r.Context(), id, req.Skills); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordBottlenecks handles POST /api/knowledge-bases/{id}/history/bottlenecks.
func (h *KnowledgeBaseHandler) RecordBottlenecks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req BottleneckObservationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_source", "source_id must be a uuid")
		return
	}
	if err := h.history.UpdateBottleneckHistory(r.Context(), id, sourceID, req.Descriptions); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KnowledgeBaseHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "knowledge base id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func (h *KnowledgeBaseHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "knowledge base not found")
	case errors.Is(err, apperrors.ErrNoValidInsights):
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "no_valid_insights", err.Error())
	case errors.Is(err, apperrors.ErrExtractionFailed):
		_ = ErrorResponse(w, http.StatusBadGateway, "extraction_failed", "extraction service failed")
	case errors.Is(err, apperrors.ErrConflict):
		_ = ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
