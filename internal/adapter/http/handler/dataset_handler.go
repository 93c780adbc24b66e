package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardgraph/internal/adapter/http/dto"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

// uploadField is the multipart form field carrying the CSV file.
const uploadField = "file"

// DatasetService defines the behavior needed by DatasetHandler.
type DatasetService interface {
	UploadDataset(ctx context.Context, input usecase.UploadDatasetInput) (*usecase.UploadDatasetResult, error)
	GetDataset(ctx context.Context, id string) (*domain.Dataset, error)
	ListDatasets(ctx context.Context, input usecase.ListDatasetsInput) ([]*domain.Dataset, error)
	DeleteDataset(ctx context.Context, id string) error
	ListActors(ctx context.Context, id string) ([]domain.Actor, error)
}

// DatasetHandler handles dataset-related HTTP requests.
type DatasetHandler struct {
	datasetUC DatasetService
	maxBytes  int64
}

// NewDatasetHandler creates a new DatasetHandler. Uploads larger than
// maxBytes are rejected.
func NewDatasetHandler(datasetUC DatasetService, maxBytes int64) *DatasetHandler {
	return &DatasetHandler{datasetUC: datasetUC, maxBytes: maxBytes}
}

// Upload stores a CSV file sent either as multipart form data or as the raw
// request body.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	name, content, err := h.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: limit is %d bytes", domain.ErrUploadTooLarge, tooLarge.Limit)
		}
		writeDomainError(w, "failed to read upload", err)
		return
	}

	result, err := h.datasetUC.UploadDataset(r.Context(), usecase.UploadDatasetInput{
		Name:    name,
		Content: content,
	})
	if err != nil {
		writeDomainError(w, "failed to upload dataset", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UploadFromResult(result))
}

func (h *DatasetHandler) readUpload(r *http.Request) (string, []byte, error) {
	name := r.URL.Query().Get("name")

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		content, err := io.ReadAll(r.Body)
		return name, content, err
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, domain.ErrEmptyUpload
		}
		return "", nil, err
	}
	defer file.Close()

	if name == "" {
		name = header.Filename
	}

	content, err := io.ReadAll(file)
	return name, content, err
}

// Get retrieves dataset metadata by ID.
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dataset ID", "")
		return
	}

	dataset, err := h.datasetUC.GetDataset(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get dataset", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DatasetFromDomain(dataset))
}

// List lists datasets, newest first.
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.datasetUC.ListDatasets(r.Context(), usecase.ListDatasetsInput{
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list datasets", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.DatasetsFromDomain(datasets))
}

// Delete removes a dataset.
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.datasetUC.DeleteDataset(r.Context(), id); err != nil {
		writeDomainError(w, "failed to delete dataset", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Actors lists the distinct actors of a dataset.
func (h *DatasetHandler) Actors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	actors, err := h.datasetUC.ListActors(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to list actors", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActorsFromDomain(actors))
}
