package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardgraph/internal/adapter/http/dto"
	"github.com/iho/rewardgraph/internal/adapter/render"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

// GraphService defines the behavior needed by GraphHandler.
type GraphService interface {
	BuildGraph(ctx context.Context, input usecase.BuildGraphInput) (*domain.Dataset, *usecase.GraphResult, error)
}

// GraphHandler serves the relationship graph of a dataset.
type GraphHandler struct {
	graphUC GraphService
}

// NewGraphHandler creates a new GraphHandler.
func NewGraphHandler(graphUC GraphService) *GraphHandler {
	return &GraphHandler{graphUC: graphUC}
}

func (h *GraphHandler) build(r *http.Request) (*domain.Dataset, *usecase.GraphResult, error) {
	req, err := parseGraphRequest(r)
	if err != nil {
		return nil, nil, err
	}

	return h.graphUC.BuildGraph(r.Context(), usecase.BuildGraphInput{
		DatasetID: chi.URLParam(r, "id"),
		Request:   req,
	})
}

// Get returns the graph description as JSON.
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	dataset, result, err := h.build(r)
	if err != nil {
		writeDomainError(w, "failed to build graph", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GraphFromResult(dataset.ID, result))
}

// HTML renders the graph as an interactive page.
func (h *GraphHandler) HTML(w http.ResponseWriter, r *http.Request) {
	dataset, result, err := h.build(r)
	if err != nil {
		writeDomainError(w, "failed to build graph", err)
		return
	}

	caption := fmt.Sprintf("%d of %d records", result.Matched, result.Total)
	if result.Status == usecase.StatusEmpty {
		caption = result.Message
	}

	var buf bytes.Buffer
	if err := render.HTML(&buf, render.Page{
		Title:   dataset.Name,
		Caption: caption,
		Graph:   result.Graph,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render graph", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
