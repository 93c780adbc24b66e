package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/infrastructure/metrics"
	"github.com/iho/rewardgraph/internal/usecase"
)

type stubLoader struct {
	dataset *domain.Dataset
	records []domain.TransactionRecord
	err     error
}

func (s *stubLoader) LoadRecords(_ context.Context, id string) (*domain.Dataset, []domain.TransactionRecord, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	out := make([]domain.TransactionRecord, len(s.records))
	copy(out, s.records)
	return s.dataset, out, nil
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
}

func transfer(order string, points int64, at time.Time) domain.TransactionRecord {
	return domain.TransactionRecord{
		OccurredAt:      at,
		ActorID:         "A",
		ActorName:       "alice",
		CounterpartID:   "B",
		CounterpartName: "bob",
		OrderID:         order,
		Kind:            domain.KindTransfer,
		Points:          decimal.NewFromInt(points),
	}
}

func TestPipeline_Run(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	p := usecase.NewPipeline(m)

	records := []domain.TransactionRecord{
		transfer("o1", 100, day(1)),
		transfer("o2", 50, day(2)),
		{
			OccurredAt: day(3), ActorID: "C", ActorName: "carol", CounterpartID: "D", CounterpartName: "shop",
			OrderID: "o3", Kind: domain.KindSpend, Amount: decimal.RequireFromString("30.00"), Currency: "USD",
		},
	}

	result, err := p.Run(records, usecase.GraphRequest{
		Criteria:  domain.FilterCriteria{Actor: "A"},
		Highlight: "A",
	})
	require.NoError(t, err)

	assert.Equal(t, usecase.StatusOK, result.Status)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Matched)
	require.Len(t, result.Edges, 1)
	require.Len(t, result.Graph.Edges, 1)
	assert.Equal(t, "150RP (2)", result.Graph.Edges[0].Label)

	highlighted, ok := result.Graph.Highlighted()
	require.True(t, ok)
	assert.Equal(t, "A", highlighted.ID)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PipelineRuns.WithLabelValues(usecase.StatusOK)))
}

func TestPipeline_Run_NoMatches(t *testing.T) {
	p := usecase.NewPipeline(nil)

	start := day(10)
	result, err := p.Run([]domain.TransactionRecord{transfer("o1", 100, day(1))}, usecase.GraphRequest{
		Criteria:  domain.FilterCriteria{Start: &start},
		Highlight: "A",
	})
	require.NoError(t, err)

	assert.Equal(t, usecase.StatusEmpty, result.Status)
	assert.Equal(t, usecase.NoRecordsMatchedMessage, result.Message)
	assert.Empty(t, result.Graph.Nodes)
	assert.Empty(t, result.Graph.Edges)
	assert.NotNil(t, result.Graph.Nodes)
}

func TestPipeline_Run_InvalidWindow(t *testing.T) {
	p := usecase.NewPipeline(nil)

	start, end := day(5), day(1)
	_, err := p.Run(nil, usecase.GraphRequest{Criteria: domain.FilterCriteria{Start: &start, End: &end}})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestPipeline_Run_DoesNotMutateInput(t *testing.T) {
	p := usecase.NewPipeline(nil)

	records := []domain.TransactionRecord{transfer("o1", 100, day(1)), transfer("o2", 50, day(2))}
	before := make([]domain.TransactionRecord, len(records))
	copy(before, records)

	_, err := p.Run(records, usecase.GraphRequest{Criteria: domain.FilterCriteria{Kinds: []domain.RelationshipKind{domain.KindSpend}}})
	require.NoError(t, err)
	assert.Equal(t, before, records)
}

func TestGraphUseCase_BuildGraph(t *testing.T) {
	loader := &stubLoader{
		dataset: &domain.Dataset{ID: "ds-1", Name: "rewards.csv"},
		records: []domain.TransactionRecord{transfer("o1", 100, day(1)), transfer("o2", 50, day(2))},
	}
	uc := usecase.NewGraphUseCase(loader, usecase.NewPipeline(nil))

	dataset, result, err := uc.BuildGraph(context.Background(), usecase.BuildGraphInput{DatasetID: "ds-1"})
	require.NoError(t, err)
	assert.Equal(t, "rewards.csv", dataset.Name)
	assert.Len(t, result.Graph.Nodes, 2)
}

func TestGraphUseCase_BuildGraph_LoaderError(t *testing.T) {
	uc := usecase.NewGraphUseCase(&stubLoader{err: domain.ErrDatasetNotFound}, usecase.NewPipeline(nil))

	_, _, err := uc.BuildGraph(context.Background(), usecase.BuildGraphInput{DatasetID: "missing"})
	if !errors.Is(err, domain.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}
