package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/rewardgraph/internal/adapter/http/handler"
	apimiddleware "github.com/iho/rewardgraph/internal/adapter/http/middleware"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/ds-1/sync", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
	if rec.Code != http.StatusOK || !store.updateCalled {
		t.Fatalf("expected successful sync to be stored, got %d", rec.Code)
	}
}

func TestNewRouter_IdempotencySkipsReads(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/ds-1/graph", nil)
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if store.checkCalled {
		t.Fatalf("expected graph reads to bypass the idempotency store")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.AllowedOrigins = []string{"http://dashboard.local"}
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/datasets/", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://dashboard.local" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/datasets/",
		"GET /api/v1/datasets/",
		"GET /api/v1/datasets/{id}/",
		"DELETE /api/v1/datasets/{id}/",
		"GET /api/v1/datasets/{id}/actors",
		"GET /api/v1/datasets/{id}/graph",
		"GET /api/v1/datasets/{id}/graph.html",
		"POST /api/v1/datasets/{id}/sync",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		HealthHandler:  handler.NewHealthHandler(),
		DatasetHandler: handler.NewDatasetHandler(stubDatasetService{}, 1<<20),
		GraphHandler:   handler.NewGraphHandler(stubGraphService{}),
		SyncHandler:    handler.NewSyncHandler(stubSyncService{}),
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubDatasetService struct{}

func (stubDatasetService) UploadDataset(ctx context.Context, input usecase.UploadDatasetInput) (*usecase.UploadDatasetResult, error) {
	return &usecase.UploadDatasetResult{Dataset: &domain.Dataset{ID: "ds-1", Name: input.Name}}, nil
}

func (stubDatasetService) GetDataset(ctx context.Context, id string) (*domain.Dataset, error) {
	return &domain.Dataset{ID: id}, nil
}

func (stubDatasetService) ListDatasets(ctx context.Context, input usecase.ListDatasetsInput) ([]*domain.Dataset, error) {
	return []*domain.Dataset{}, nil
}

func (stubDatasetService) DeleteDataset(ctx context.Context, id string) error {
	return nil
}

func (stubDatasetService) ListActors(ctx context.Context, id string) ([]domain.Actor, error) {
	return []domain.Actor{}, nil
}

type stubGraphService struct{}

func (stubGraphService) BuildGraph(ctx context.Context, input usecase.BuildGraphInput) (*domain.Dataset, *usecase.GraphResult, error) {
	return &domain.Dataset{ID: input.DatasetID}, &usecase.GraphResult{Status: usecase.StatusEmpty}, nil
}

type stubSyncService struct{}

func (stubSyncService) Enabled() bool { return true }

func (stubSyncService) Sync(ctx context.Context, input usecase.SyncInput) (*usecase.SyncResult, error) {
	return &usecase.SyncResult{DatasetID: input.DatasetID}, nil
}

type stubIdempotencyStore struct {
	checkCalled  bool
	updateCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.updateCalled = true
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
