package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardgraph/internal/adapter/http/dto"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

// SyncService defines the behavior needed by SyncHandler.
type SyncService interface {
	Enabled() bool
	Sync(ctx context.Context, input usecase.SyncInput) (*usecase.SyncResult, error)
}

// SyncHandler pushes dataset records to the graph database.
type SyncHandler struct {
	syncUC SyncService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncUC SyncService) *SyncHandler {
	return &SyncHandler{syncUC: syncUC}
}

// Sync upserts the selected records of a dataset. An empty body selects
// every record.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if !h.syncUC.Enabled() {
		writeDomainError(w, "graph sync unavailable", domain.ErrGraphSyncDisabled)
		return
	}

	var req dto.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "invalid sync request", err)
		return
	}

	result, err := h.syncUC.Sync(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to sync dataset", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SyncFromResult(result))
}
