package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/rewardgraph/internal/adapter/http/dto"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

type syncServiceStub struct {
	enabled bool
	syncFn  func(ctx context.Context, input usecase.SyncInput) (*usecase.SyncResult, error)
}

func (s *syncServiceStub) Enabled() bool { return s.enabled }

func (s *syncServiceStub) Sync(ctx context.Context, input usecase.SyncInput) (*usecase.SyncResult, error) {
	return s.syncFn(ctx, input)
}

func TestSyncHandler_Disabled(t *testing.T) {
	handler := NewSyncHandler(&syncServiceStub{})

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/datasets/ds-1/sync", nil), "id", "ds-1")
	rec := httptest.NewRecorder()

	handler.Sync(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSyncHandler_EmptyBodySyncsEverything(t *testing.T) {
	var captured usecase.SyncInput
	handler := NewSyncHandler(&syncServiceStub{
		enabled: true,
		syncFn: func(ctx context.Context, input usecase.SyncInput) (*usecase.SyncResult, error) {
			captured = input
			return &usecase.SyncResult{DatasetID: input.DatasetID, Total: 3, Written: 3, Duration: 40 * time.Millisecond}, nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/datasets/ds-1/sync", http.NoBody), "id", "ds-1")
	rec := httptest.NewRecorder()

	handler.Sync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.DatasetID != "ds-1" || captured.Criteria.Actor != "" || len(captured.Criteria.Kinds) != 0 {
		t.Fatalf("expected unfiltered sync, got %+v", captured)
	}

	var resp dto.SyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Written != 3 || resp.DurationMS != 40 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSyncHandler_Filtered(t *testing.T) {
	var captured usecase.SyncInput
	handler := NewSyncHandler(&syncServiceStub{
		enabled: true,
		syncFn: func(ctx context.Context, input usecase.SyncInput) (*usecase.SyncResult, error) {
			captured = input
			return &usecase.SyncResult{DatasetID: input.DatasetID}, nil
		},
	})

	body := `{"actor":"A","kinds":["Spend"],"start":"2024-01-01T00:00:00Z"}`
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/datasets/ds-1/sync", strings.NewReader(body)), "id", "ds-1")
	rec := httptest.NewRecorder()

	handler.Sync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Criteria.Actor != "A" || captured.Criteria.Kinds[0] != domain.KindSpend || captured.Criteria.Start == nil {
		t.Fatalf("unexpected criteria %+v", captured.Criteria)
	}
}

func TestSyncHandler_InvalidKind(t *testing.T) {
	handler := NewSyncHandler(&syncServiceStub{enabled: true})

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/datasets/ds-1/sync", strings.NewReader(`{"kinds":["refund"]}`)), "id", "ds-1")
	rec := httptest.NewRecorder()

	handler.Sync(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
