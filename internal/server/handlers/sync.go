package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/vidsync/internal/server/storage"
	syncer "github.com/iudanet/vidsync/internal/sync"
	"github.com/iudanet/vidsync/pkg/api"
)

// Syncer определяет интерфейс координатора синхронизации
type Syncer interface {
	Sync(ctx context.Context, req *syncer.Request) (*syncer.Result, error)
	DirectUpdate(ctx context.Context, req *syncer.UpdateRequest) (*syncer.Result, error)
}

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger *slog.Logger
	coord  Syncer
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, coord Syncer) *SyncHandler {
	return &SyncHandler{
		logger: logger,
		coord:  coord,
	}
}

// HandleSync обрабатывает POST /api/v1/entities/{entityID}/sync
// Принимает батч операций клиента и возвращает результат одной из трех
// веток примирения: applied_operations, update_client, merged_concurrent.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
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

	var req api.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode sync request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.logger.Info("sync request",
		"entity_id", entityID,
		"actor_id", actorID,
		"operations_count", len(req.Operations),
		"client_version", req.ClientVersion)

	res, err := h.coord.Sync(ctx, &syncer.Request{
		EntityID:          entityID,
		ClientVectorClock: toModelClock(req.ClientVectorClock),
		ClientVersion:     req.ClientVersion,
		Operations:        toModelOperations(req.Operations),
	})
	if err != nil {
		h.writeSyncError(w, entityID, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, syncResponseOf(res))

	h.logger.Info("sync completed",
		"entity_id", entityID,
		"actor_id", actorID,
		"sync_type", res.SyncType.String(),
		"action", string(res.Action),
		"applied", len(res.AppliedOperations),
		"missed", len(res.MissedOperations),
		"conflicts_resolved", res.ConflictsResolved,
		"warnings", len(res.Warnings))
}

// writeSyncError транслирует ошибки координатора в HTTP статусы:
// 404 - сущности нет, 409 - проигранная гонка коммита (retryable),
// 500 + список закоммиченного - частичный сбой батча.
func (h *SyncHandler) writeSyncError(w http.ResponseWriter, entityID string, err error) {
	var partial *syncer.PartialApplyError

	switch {
	case errors.Is(err, storage.ErrEntityNotFound):
		http.Error(w, "Entity not found", http.StatusNotFound)

	case errors.As(err, &partial):
		h.logger.Error("sync batch partially applied",
			"entity_id", entityID,
			"committed", len(partial.Committed),
			"error", err)
		writeJSON(w, h.logger, http.StatusInternalServerError, partialResponseOf(partial))

	case errors.Is(err, storage.ErrEntityModified):
		h.logger.Warn("sync lost commit race", "entity_id", entityID)
		writeJSON(w, h.logger, http.StatusConflict, retryableConflictResponse())

	default:
		h.logger.Error("sync failed", "entity_id", entityID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
