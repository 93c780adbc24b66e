package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardgraph/internal/domain"
)

// cachedRecord is the stored form of a domain.TransactionRecord. The layout
// is versioned through the key prefix.
type cachedRecord struct {
	OccurredAt      time.Time       `json:"t"`
	ActorID         string          `json:"a"`
	ActorName       string          `json:"an,omitempty"`
	CounterpartID   string          `json:"c"`
	CounterpartName string          `json:"cn,omitempty"`
	OrderID         string          `json:"o"`
	Currency        string          `json:"cur,omitempty"`
	Kind            string          `json:"k"`
	Amount          decimal.Decimal `json:"amt"`
	Points          decimal.Decimal `json:"pts"`
}

// RecordCache implements usecase.RecordCache using Redis.
type RecordCache struct {
	client *redis.Client
	prefix string
}

// NewRecordCache creates a new RecordCache.
func NewRecordCache(client *redis.Client) *RecordCache {
	return &RecordCache{
		client: client,
		prefix: "records:v1:",
	}
}

// Get returns the cached records of a dataset. Each call decodes a new slice.
func (c *RecordCache) Get(ctx context.Context, datasetID string) ([]domain.TransactionRecord, bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+datasetID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stored []cachedRecord
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached records: %w", err)
	}

	records := make([]domain.TransactionRecord, len(stored))
	for i, r := range stored {
		records[i] = domain.TransactionRecord{
			OccurredAt:      r.OccurredAt,
			ActorID:         r.ActorID,
			ActorName:       r.ActorName,
			CounterpartID:   r.CounterpartID,
			CounterpartName: r.CounterpartName,
			OrderID:         r.OrderID,
			Currency:        r.Currency,
			Kind:            domain.RelationshipKind(r.Kind),
			Amount:          r.Amount,
			Points:          r.Points,
		}
	}

	return records, true, nil
}

// Set stores the records of a dataset with ttl.
func (c *RecordCache) Set(ctx context.Context, datasetID string, records []domain.TransactionRecord, ttl time.Duration) error {
	stored := make([]cachedRecord, len(records))
	for i, r := range records {
		stored[i] = cachedRecord{
			OccurredAt:      r.OccurredAt,
			ActorID:         r.ActorID,
			ActorName:       r.ActorName,
			CounterpartID:   r.CounterpartID,
			CounterpartName: r.CounterpartName,
			OrderID:         r.OrderID,
			Currency:        r.Currency,
			Kind:            string(r.Kind),
			Amount:          r.Amount,
			Points:          r.Points,
		}
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	return c.client.Set(ctx, c.prefix+datasetID, payload, ttl).Err()
}

// Delete evicts the records of a dataset.
func (c *RecordCache) Delete(ctx context.Context, datasetID string) error {
	return c.client.Del(ctx, c.prefix+datasetID).Err()
}
