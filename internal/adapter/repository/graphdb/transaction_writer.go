// Package graphdb writes transaction records into the graph database.
package graphdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/infrastructure/graph"
)

var errIncompleteRecord = errors.New("record needs actor, counterpart and order ids")

// shape describes how one relationship kind is stored.
type shape struct {
	counterpartLabel string
	relationship     string
}

var shapes = map[domain.RelationshipKind]shape{
	domain.KindTransfer: {counterpartLabel: "Account", relationship: "TRANSFERRED_TO"},
	domain.KindSpend:    {counterpartLabel: "Merchant", relationship: "SPENT_AT"},
	domain.KindReceived: {counterpartLabel: "Source", relationship: "RECEIVED_FROM"},
}

// Relationships are keyed by order id so repeated syncs update in place.
const upsertTemplate = `
MERGE (a:Account {id: $actorId})
  SET a.name = CASE WHEN $actorName = '' THEN a.name ELSE $actorName END
MERGE (c:%s {id: $counterpartId})
  SET c.name = CASE WHEN $counterpartName = '' THEN c.name ELSE $counterpartName END
MERGE (a)-[r:%s {orderId: $orderId}]->(c)
SET r.amount = $amount,
    r.points = $points,
    r.currency = $currency,
    r.occurredAt = $occurredAt
`

var upsertCypher = func() map[domain.RelationshipKind]string {
	out := make(map[domain.RelationshipKind]string, len(shapes))
	for kind, s := range shapes {
		out[kind] = fmt.Sprintf(upsertTemplate, s.counterpartLabel, s.relationship)
	}
	return out
}()

// nodeLabels are the labels merged by id. MERGE only stays unique across
// concurrent writers when the id is backed by a constraint.
var nodeLabels = []string{"Account", "Merchant", "Source"}

const constraintTemplate = "CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE"

func constraintStatements() []string {
	out := make([]string, 0, len(nodeLabels))
	for _, label := range nodeLabels {
		out = append(out, fmt.Sprintf(constraintTemplate, strings.ToLower(label), label))
	}
	return out
}

// TransactionWriter implements usecase.GraphWriter.
type TransactionWriter struct {
	client graph.Client
	logger zerolog.Logger

	schemaMu    sync.Mutex
	schemaReady bool

	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
}

// NewTransactionWriter creates a new TransactionWriter.
func NewTransactionWriter(client graph.Client, logger zerolog.Logger) *TransactionWriter {
	return &TransactionWriter{
		client:          client,
		logger:          logger,
		maxRetries:      3,
		initialInterval: 100 * time.Millisecond,
		maxInterval:     2 * time.Second,
		maxElapsedTime:  15 * time.Second,
	}
}

// UpsertTransaction merges both endpoints and the relationship of record.
func (w *TransactionWriter) UpsertTransaction(ctx context.Context, record domain.TransactionRecord) error {
	if record.ActorID == "" || record.CounterpartID == "" || record.OrderID == "" {
		return fmt.Errorf("%w: order %q", errIncompleteRecord, record.OrderID)
	}

	cypher, ok := upsertCypher[record.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrInvalidKind, record.Kind)
	}

	if err := w.EnsureSchema(ctx); err != nil {
		return err
	}

	params := map[string]any{
		"actorId":         record.ActorID,
		"actorName":       record.ActorName,
		"counterpartId":   record.CounterpartID,
		"counterpartName": record.CounterpartName,
		"orderId":         record.OrderID,
		"amount":          record.Amount.InexactFloat64(),
		"points":          record.Points.InexactFloat64(),
		"currency":        record.Currency,
		"occurredAt":      formatTime(record.OccurredAt),
	}

	err := w.retry(ctx, func() error {
		_, err := w.client.ExecuteWrite(ctx, cypher, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", record.OrderID, err)
	}

	return nil
}

// EnsureSchema creates the node id constraints. It runs once per writer;
// a failed attempt is repeated on the next call.
func (w *TransactionWriter) EnsureSchema(ctx context.Context) error {
	w.schemaMu.Lock()
	defer w.schemaMu.Unlock()

	if w.schemaReady {
		return nil
	}

	for _, stmt := range constraintStatements() {
		err := w.retry(ctx, func() error {
			_, err := w.client.ExecuteWrite(ctx, stmt, nil)
			return err
		})
		if err != nil {
			return fmt.Errorf("create graph constraint: %w", err)
		}
	}

	w.schemaReady = true
	w.logger.Debug().Strs("labels", nodeLabels).Msg("graph id constraints ensured")
	return nil
}

// VerifyConnectivity checks the graph database connection.
func (w *TransactionWriter) VerifyConnectivity(ctx context.Context) error {
	return w.client.VerifyConnectivity(ctx)
}

func (w *TransactionWriter) retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initialInterval
	b.MaxInterval = w.maxInterval
	b.MaxElapsedTime = w.maxElapsedTime

	attempt := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !neo4j.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		attempt++
		if attempt > w.maxRetries {
			return backoff.Permanent(err)
		}

		w.logger.Warn().Err(err).Int("retry", attempt).Msg("transient graph error, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
