package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/infrastructure/metrics"
)

// DatasetUseCase handles uploaded datasets and access to their records.
type DatasetUseCase struct {
	datasetRepo DatasetRepository
	parser      RecordParser
	cache       RecordCache
	idGen       IDGenerator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	cacheTTL    time.Duration
}

// DatasetUseCaseConfig holds dependencies for DatasetUseCase.
// Cache and Metrics are optional.
type DatasetUseCaseConfig struct {
	DatasetRepo DatasetRepository
	Parser      RecordParser
	Cache       RecordCache
	IDGen       IDGenerator
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	CacheTTL    time.Duration
}

// NewDatasetUseCase creates a new DatasetUseCase.
func NewDatasetUseCase(cfg DatasetUseCaseConfig) *DatasetUseCase {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &DatasetUseCase{
		datasetRepo: cfg.DatasetRepo,
		parser:      cfg.Parser,
		cache:       cfg.Cache,
		idGen:       cfg.IDGen,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		cacheTTL:    cfg.CacheTTL,
	}
}

// UploadDatasetInput represents input for uploading a dataset.
type UploadDatasetInput struct {
	Name    string
	Content []byte
}

// UploadDatasetResult describes a stored dataset and the rows dropped while parsing it.
type UploadDatasetResult struct {
	Dataset  *domain.Dataset
	Problems []domain.MalformedValueError
}

// UploadDataset parses and stores a CSV file. Missing columns reject the
// upload; malformed rows are dropped and reported.
func (uc *DatasetUseCase) UploadDataset(ctx context.Context, input UploadDatasetInput) (*UploadDatasetResult, error) {
	name, err := domain.ValidateDatasetName(input.Name)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(input.Content)) == 0 {
		return nil, domain.ErrEmptyUpload
	}

	loaded, err := uc.parser.Parse(bytes.NewReader(input.Content))
	if err != nil {
		uc.recordLoadError(err)
		return nil, err
	}

	dataset := &domain.Dataset{
		ID:            uc.idGen.Generate(),
		Name:          name,
		Content:       input.Content,
		RowCount:      len(loaded.Records),
		DroppedRows:   loaded.Dropped,
		HasTimestamps: loaded.HasTimestamps,
		CreatedAt:     time.Now().UTC(),
	}

	if err := uc.datasetRepo.Create(ctx, dataset); err != nil {
		return nil, fmt.Errorf("failed to store dataset: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.DatasetsStored.Inc()
		uc.metrics.RecordsLoaded.Add(float64(len(loaded.Records)))
		uc.metrics.RowsDropped.Add(float64(loaded.Dropped))
	}

	if loaded.Dropped > 0 {
		uc.logger.Warn().
			Str("dataset_id", dataset.ID).
			Int("dropped_rows", loaded.Dropped).
			Int("records", len(loaded.Records)).
			Msg("dropped malformed rows")
	}

	uc.storeInCache(ctx, dataset.ID, loaded.Records)

	return &UploadDatasetResult{
		Dataset:  dataset,
		Problems: loaded.Problems,
	}, nil
}

// GetDataset returns dataset metadata.
func (uc *DatasetUseCase) GetDataset(ctx context.Context, id string) (*domain.Dataset, error) {
	return uc.datasetRepo.GetByID(ctx, id)
}

// ListDatasetsInput represents input for listing datasets.
type ListDatasetsInput struct {
	Limit  int
	Offset int
}

// ListDatasets lists datasets, newest first.
func (uc *DatasetUseCase) ListDatasets(ctx context.Context, input ListDatasetsInput) ([]*domain.Dataset, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return uc.datasetRepo.List(ctx, limit, offset)
}

// DeleteDataset removes a dataset and evicts its cached records.
func (uc *DatasetUseCase) DeleteDataset(ctx context.Context, id string) error {
	if err := uc.datasetRepo.Delete(ctx, id); err != nil {
		return err
	}

	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, id); err != nil {
			uc.cacheFailed("delete", id, err)
		}
	}

	return nil
}

// LoadRecords returns the records of a dataset. Every call returns a slice
// owned by the caller.
func (uc *DatasetUseCase) LoadRecords(ctx context.Context, id string) (*domain.Dataset, []domain.TransactionRecord, error) {
	dataset, err := uc.datasetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if uc.cache != nil {
		records, ok, err := uc.cache.Get(ctx, id)
		switch {
		case err != nil:
			uc.cacheFailed("get", id, err)
		case ok:
			if uc.metrics != nil {
				uc.metrics.CacheHits.Inc()
			}
			return dataset, records, nil
		}
		if uc.metrics != nil {
			uc.metrics.CacheMisses.Inc()
		}
	}

	content, err := uc.datasetRepo.GetContent(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	loaded, err := uc.parser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse dataset %s: %w", id, err)
	}

	uc.storeInCache(ctx, id, loaded.Records)

	return dataset, loaded.Records, nil
}

// ListActors returns the distinct actors of a dataset sorted by id.
func (uc *DatasetUseCase) ListActors(ctx context.Context, id string) ([]domain.Actor, error) {
	_, records, err := uc.LoadRecords(ctx, id)
	if err != nil {
		return nil, err
	}

	return DistinctActors(records), nil
}

// DistinctActors returns the actors of records sorted by id, then name.
func DistinctActors(records []domain.TransactionRecord) []domain.Actor {
	seen := make(map[domain.Actor]struct{})
	actors := make([]domain.Actor, 0)
	for _, r := range records {
		a := domain.Actor{ID: r.ActorID, Name: r.ActorName}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		actors = append(actors, a)
	}

	sort.Slice(actors, func(i, j int) bool {
		if actors[i].ID != actors[j].ID {
			return actors[i].ID < actors[j].ID
		}
		return actors[i].Name < actors[j].Name
	})

	return actors
}

func (uc *DatasetUseCase) storeInCache(ctx context.Context, id string, records []domain.TransactionRecord) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, id, records, uc.cacheTTL); err != nil {
		uc.cacheFailed("set", id, err)
	}
}

func (uc *DatasetUseCase) cacheFailed(operation, id string, err error) {
	uc.logger.Warn().Err(err).Str("dataset_id", id).Str("operation", operation).Msg("record cache unavailable")
	if uc.metrics != nil {
		uc.metrics.CacheErrors.WithLabelValues(operation).Inc()
	}
}

func (uc *DatasetUseCase) recordLoadError(err error) {
	if uc.metrics == nil {
		return
	}

	reason := "other"
	switch {
	case errors.Is(err, domain.ErrMissingColumns):
		reason = "missing_columns"
	case errors.Is(err, domain.ErrEmptyUpload):
		reason = "empty"
	}
	uc.metrics.LoadErrors.WithLabelValues(reason).Inc()
}
