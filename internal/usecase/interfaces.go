package usecase

import (
	"context"
	"io"
	"time"

	"github.com/iho/rewardgraph/internal/domain"
)

// DatasetRepository defines data access for uploaded datasets.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *domain.Dataset) error
	GetByID(ctx context.Context, id string) (*domain.Dataset, error)
	GetContent(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Dataset, error)
	Delete(ctx context.Context, id string) error
}

// RecordParser turns an uploaded file into transaction records.
type RecordParser interface {
	Parse(r io.Reader) (*domain.LoadResult, error)
}

// RecordCache keeps parsed record collections of datasets.
// Get returns a fresh copy on every call; callers own the returned slice.
type RecordCache interface {
	Get(ctx context.Context, datasetID string) ([]domain.TransactionRecord, bool, error)
	Set(ctx context.Context, datasetID string, records []domain.TransactionRecord, ttl time.Duration) error
	Delete(ctx context.Context, datasetID string) error
}

// GraphWriter upserts transaction records into the graph database.
// Writing the same record twice must be safe.
type GraphWriter interface {
	UpsertTransaction(ctx context.Context, record domain.TransactionRecord) error
	VerifyConnectivity(ctx context.Context) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request failed so it can be retried.
	Release(ctx context.Context, key string) error
}
