package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/iudanet/vidsync/internal/models"
	"github.com/iudanet/vidsync/internal/server/storage"
	syncer "github.com/iudanet/vidsync/internal/sync"
	"github.com/iudanet/vidsync/internal/validation"
	"github.com/iudanet/vidsync/pkg/api"
)

// EntityStorage определяет подмножество хранилища, нужное CRUD-хендлерам.
// Мутации записи идут только через координатор, поэтому SaveEntity здесь
// отсутствует.
type EntityStorage interface {
	CreateEntity(ctx context.Context, rec *models.MetadataRecord) error
	GetEntity(ctx context.Context, id string) (*models.MetadataRecord, error)
	GetOperations(ctx context.Context, entityID string) ([]*models.Operation, error)
}

// EntityHandler handles metadata record CRUD requests
type EntityHandler struct {
	logger  *slog.Logger
	storage EntityStorage
	coord   Syncer
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(logger *slog.Logger, store EntityStorage, coord Syncer) *EntityHandler {
	return &EntityHandler{
		logger:  logger,
		storage: store,
		coord:   coord,
	}
}

// Create обрабатывает POST /api/v1/entities
// Создает новую запись метаданных. Пустой id в запросе означает, что
// сервер сгенерирует UUID сам. Часы новой записи стартуют с {creator: 1}.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, ok := GetActorID(ctx)
	if !ok {
		h.logger.Error("Actor ID not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CreateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode create request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateTitle(req.Title); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, tag := range req.Tags {
		if err := validation.ValidateTag(tag); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	rec := models.NewMetadataRecord(id, actorID, req.Title, req.Description, req.Category, req.Tags)

	if err := h.storage.CreateEntity(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrEntityExists) {
			writeJSON(w, h.logger, http.StatusConflict, &api.ErrorResponse{
				Error:   "entity already exists",
				Message: "a record with this id is already registered",
			})
			return
		}
		h.logger.Error("failed to create entity", "entity_id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("entity created", "entity_id", id, "actor_id", actorID)
	writeJSON(w, h.logger, http.StatusCreated, toAPIRecord(rec))
}

// Get обрабатывает GET /api/v1/entities/{entityID}
// Возвращает текущий снимок записи метаданных.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		http.Error(w, "Missing entity id", http.StatusBadRequest)
		return
	}

	rec, err := h.storage.GetEntity(r.Context(), entityID)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			http.Error(w, "Entity not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load entity", "entity_id", entityID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toAPIRecord(rec))
}

// Update обрабатывает PUT /api/v1/entities/{entityID}
// Прямое обновление скалярных полей вне батчевого протокола. Если сервер
// причинно впереди клиента, возвращается 409 с retryable=false и
// актуальными часами - клиент обязан перечитать состояние перед повтором.
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, ok := GetActorID(ctx)
	if !ok {
		h.logger.Error("Actor ID not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		http.Error(w, "Missing entity id", http.StatusBadRequest)
		return
	}

	var req api.UpdateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode update request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title != nil {
		if err := validation.ValidateTitle(*req.Title); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := h.coord.DirectUpdate(ctx, &syncer.UpdateRequest{
		EntityID:          entityID,
		ActorID:           actorID,
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		ClientVectorClock: toModelClock(req.ClientVectorClock),
		ClientVersion:     req.ClientVersion,
	})
	if err != nil {
		h.writeUpdateError(w, entityID, err)
		return
	}

	h.logger.Info("entity updated",
		"entity_id", entityID,
		"actor_id", actorID,
		"version", res.Record.Version)
	writeJSON(w, h.logger, http.StatusOK, toAPIRecord(res.Record))
}

func (h *EntityHandler) writeUpdateError(w http.ResponseWriter, entityID string, err error) {
	var stale *syncer.StaleError

	switch {
	case errors.Is(err, storage.ErrEntityNotFound):
		http.Error(w, "Entity not found", http.StatusNotFound)

	case errors.As(err, &stale):
		h.logger.Info("direct update rejected, client is stale",
			"entity_id", entityID,
			"server_version", stale.ServerVersion)
		writeJSON(w, h.logger, http.StatusConflict, staleConflictResponse(stale))

	case errors.Is(err, storage.ErrEntityModified):
		h.logger.Warn("direct update lost commit race", "entity_id", entityID)
		writeJSON(w, h.logger, http.StatusConflict, retryableConflictResponse())

	default:
		h.logger.Error("failed to update entity", "entity_id", entityID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Operations обрабатывает GET /api/v1/entities/{entityID}/operations
// Возвращает полный журнал операций записи в порядке (timestamp, actorId).
func (h *EntityHandler) Operations(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		http.Error(w, "Missing entity id", http.StatusBadRequest)
		return
	}

	if _, err := h.storage.GetEntity(r.Context(), entityID); err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			http.Error(w, "Entity not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load entity", "entity_id", entityID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ops, err := h.storage.GetOperations(r.Context(), entityID)
	if err != nil {
		h.logger.Error("failed to load operation log", "entity_id", entityID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, &api.OperationsResponse{
		Operations: toAPIOperations(ops),
	})
}
