package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	syncer "github.com/iudanet/vidsync/internal/sync"
	"github.com/iudanet/vidsync/pkg/api"
)

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func syncResponseOf(res *syncer.Result) *api.SyncResponse {
	return &api.SyncResponse{
		Record:            toAPIRecord(res.Record),
		SyncType:          res.SyncType.String(),
		Action:            string(res.Action),
		AppliedOperations: toAPIOperations(res.AppliedOperations),
		MissedOperations:  toAPIOperations(res.MissedOperations),
		Warnings:          toAPIWarnings(res.Warnings),
		ServerVectorClock: toAPIClock(res.Record.VectorClock),
		ServerVersion:     res.Record.Version,
		ConflictsResolved: res.ConflictsResolved,
	}
}

func partialResponseOf(partial *syncer.PartialApplyError) *api.PartialSyncResponse {
	return &api.PartialSyncResponse{
		Error:               partial.Error(),
		CommittedOperations: toAPIOperations(partial.Committed),
	}
}

func retryableConflictResponse() *api.ConflictResponse {
	return &api.ConflictResponse{
		Error:     "entity was modified concurrently, retry the request",
		Retryable: true,
	}
}

func staleConflictResponse(stale *syncer.StaleError) *api.ConflictResponse {
	return &api.ConflictResponse{
		Error:             stale.Error(),
		ServerVectorClock: toAPIClock(stale.ServerVectorClock),
		ServerVersion:     stale.ServerVersion,
		Retryable:         false,
	}
}
