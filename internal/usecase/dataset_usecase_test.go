package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/rewardgraph/internal/adapter/csvreader"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/infrastructure/metrics"
	"github.com/iho/rewardgraph/internal/usecase"
	"github.com/iho/rewardgraph/internal/usecase/mocks"
)

const sampleCSV = `user_id,username,type,receiver_id,receiver,amount,points,created_at,order_id
A,alice,transfer,B,bob,,100,2024-03-01,o1
A,alice,transfer,B,bob,,50,2024-03-02,o2
C,carol,spend,D,shop,30.00,,2024-03-03,o3
C,carol,spend,D,shop,oops,,2024-03-04,o4
`

type datasetFixture struct {
	repo    *mocks.MockDatasetRepository
	cache   *mocks.MockRecordCache
	idGen   *mocks.MockIDGenerator
	metrics *metrics.Metrics
	uc      *usecase.DatasetUseCase
}

func newDatasetFixture(t *testing.T) *datasetFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &datasetFixture{
		repo:    mocks.NewMockDatasetRepository(ctrl),
		cache:   mocks.NewMockRecordCache(ctrl),
		idGen:   mocks.NewMockIDGenerator(ctrl),
		metrics: metrics.NewWithRegisterer(prometheus.NewRegistry()),
	}
	f.uc = usecase.NewDatasetUseCase(usecase.DatasetUseCaseConfig{
		DatasetRepo: f.repo,
		Parser:      csvreader.NewParser(),
		Cache:       f.cache,
		IDGen:       f.idGen,
		Metrics:     f.metrics,
		Logger:      zerolog.Nop(),
	})
	return f
}

func TestDatasetUseCase_UploadDataset(t *testing.T) {
	f := newDatasetFixture(t)

	f.idGen.EXPECT().Generate().Return("ds-1")

	var stored *domain.Dataset
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d *domain.Dataset) error {
		stored = d
		return nil
	})
	f.cache.EXPECT().Set(gomock.Any(), "ds-1", gomock.Len(3), usecase.DefaultCacheTTL).Return(nil)

	result, err := f.uc.UploadDataset(context.Background(), usecase.UploadDatasetInput{
		Name:    "uploads/rewards.csv",
		Content: []byte(sampleCSV),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored == nil || stored.ID != "ds-1" || stored.Name != "rewards.csv" {
		t.Fatalf("unexpected stored dataset: %+v", stored)
	}
	if result.Dataset.RowCount != 3 || result.Dataset.DroppedRows != 1 {
		t.Fatalf("expected 3 rows and 1 dropped, got %d and %d", result.Dataset.RowCount, result.Dataset.DroppedRows)
	}
	if !result.Dataset.HasTimestamps {
		t.Fatal("expected timestamps to be detected")
	}
	if len(result.Problems) != 1 || result.Problems[0].Field != "amount" {
		t.Fatalf("expected one amount problem, got %+v", result.Problems)
	}
	if got := testutil.ToFloat64(f.metrics.RowsDropped); got != 1 {
		t.Fatalf("expected dropped rows metric 1, got %v", got)
	}
}

func TestDatasetUseCase_UploadDataset_MissingColumns(t *testing.T) {
	f := newDatasetFixture(t)

	_, err := f.uc.UploadDataset(context.Background(), usecase.UploadDatasetInput{
		Name:    "bad.csv",
		Content: []byte("user_id,note\nA,hello\n"),
	})

	var missing *domain.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if len(missing.Fields) != 5 {
		t.Fatalf("expected all five missing fields to be listed, got %v", missing.Fields)
	}
	if got := testutil.ToFloat64(f.metrics.LoadErrors.WithLabelValues("missing_columns")); got != 1 {
		t.Fatalf("expected missing_columns metric 1, got %v", got)
	}
}

func TestDatasetUseCase_UploadDataset_Empty(t *testing.T) {
	f := newDatasetFixture(t)

	_, err := f.uc.UploadDataset(context.Background(), usecase.UploadDatasetInput{Name: "x.csv", Content: []byte("  \n")})
	if !errors.Is(err, domain.ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload, got %v", err)
	}
}

func TestDatasetUseCase_UploadDataset_CacheFailureIsNotFatal(t *testing.T) {
	f := newDatasetFixture(t)

	f.idGen.EXPECT().Generate().Return("ds-1")
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.cache.EXPECT().Set(gomock.Any(), "ds-1", gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	if _, err := f.uc.UploadDataset(context.Background(), usecase.UploadDatasetInput{Name: "x.csv", Content: []byte(sampleCSV)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.CacheErrors.WithLabelValues("set")); got != 1 {
		t.Fatalf("expected cache error metric 1, got %v", got)
	}
}

func TestDatasetUseCase_LoadRecords_CacheHit(t *testing.T) {
	f := newDatasetFixture(t)

	cached := []domain.TransactionRecord{{ActorID: "A", CounterpartID: "B", Kind: domain.KindTransfer, Points: decimal.NewFromInt(1)}}
	f.repo.EXPECT().GetByID(gomock.Any(), "ds-1").Return(&domain.Dataset{ID: "ds-1"}, nil)
	f.cache.EXPECT().Get(gomock.Any(), "ds-1").Return(cached, true, nil)

	_, records, err := f.uc.LoadRecords(context.Background(), "ds-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected cached records, got %d", len(records))
	}
	if got := testutil.ToFloat64(f.metrics.CacheHits); got != 1 {
		t.Fatalf("expected one cache hit, got %v", got)
	}
}

func TestDatasetUseCase_LoadRecords_CacheMissReparses(t *testing.T) {
	f := newDatasetFixture(t)

	f.repo.EXPECT().GetByID(gomock.Any(), "ds-1").Return(&domain.Dataset{ID: "ds-1"}, nil)
	f.cache.EXPECT().Get(gomock.Any(), "ds-1").Return(nil, false, nil)
	f.repo.EXPECT().GetContent(gomock.Any(), "ds-1").Return([]byte(sampleCSV), nil)
	f.cache.EXPECT().Set(gomock.Any(), "ds-1", gomock.Len(3), usecase.DefaultCacheTTL).Return(nil)

	_, records, err := f.uc.LoadRecords(context.Background(), "ds-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestDatasetUseCase_LoadRecords_NotFound(t *testing.T) {
	f := newDatasetFixture(t)

	f.repo.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, domain.ErrDatasetNotFound)

	_, _, err := f.uc.LoadRecords(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestDatasetUseCase_DeleteDataset(t *testing.T) {
	f := newDatasetFixture(t)

	f.repo.EXPECT().Delete(gomock.Any(), "ds-1").Return(nil)
	f.cache.EXPECT().Delete(gomock.Any(), "ds-1").Return(nil)

	if err := f.uc.DeleteDataset(context.Background(), "ds-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDatasetUseCase_ListDatasets_AppliesPagination(t *testing.T) {
	f := newDatasetFixture(t)

	f.repo.EXPECT().List(gomock.Any(), 50, 0).Return([]*domain.Dataset{{ID: "ds-1"}}, nil)

	datasets, err := f.uc.ListDatasets(context.Background(), usecase.ListDatasetsInput{Limit: 0, Offset: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(datasets) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(datasets))
	}
}

func TestDatasetUseCase_ListActors(t *testing.T) {
	f := newDatasetFixture(t)

	f.repo.EXPECT().GetByID(gomock.Any(), "ds-1").Return(&domain.Dataset{ID: "ds-1"}, nil)
	f.cache.EXPECT().Get(gomock.Any(), "ds-1").Return([]domain.TransactionRecord{
		{ActorID: "C", ActorName: "carol"},
		{ActorID: "A", ActorName: "alice"},
		{ActorID: "C", ActorName: "carol"},
	}, true, nil)

	actors, err := f.uc.ListActors(context.Background(), "ds-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.Actor{{ID: "A", Name: "alice"}, {ID: "C", Name: "carol"}}
	if len(actors) != len(want) || actors[0] != want[0] || actors[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, actors)
	}
}
