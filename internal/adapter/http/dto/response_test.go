package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardgraph/internal/adapter/render"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

func TestUploadFromResult(t *testing.T) {
	result := &usecase.UploadDatasetResult{
		Dataset: &domain.Dataset{ID: "ds-1", Name: "rewards.csv", RowCount: 3, DroppedRows: 1},
		Problems: []domain.MalformedValueError{
			{Row: 4, Field: "amount", Value: "oops", Err: errors.New("not a number")},
		},
	}

	resp := UploadFromResult(result)
	if resp.Dataset.ID != "ds-1" || resp.Dataset.DroppedRows != 1 {
		t.Fatalf("unexpected dataset: %+v", resp.Dataset)
	}
	if len(resp.Problems) != 1 || resp.Problems[0].Reason != "not a number" || resp.Problems[0].Row != 4 {
		t.Fatalf("unexpected problems: %+v", resp.Problems)
	}
}

func TestGraphFromResult(t *testing.T) {
	result := &usecase.GraphResult{
		Status:  usecase.StatusOK,
		Total:   3,
		Matched: 2,
		Graph: domain.GraphDescription{
			Nodes: []domain.Node{
				{Key: "A|alice", ID: "A", Label: "alice", Category: domain.CategoryActor, Highlighted: true},
				{Key: "D|shop", ID: "D", Label: "shop", Category: domain.CategoryTarget},
			},
			Edges: []domain.Edge{
				{From: "A|alice", To: "D|shop", Label: "30 USD (1)", Kind: domain.KindSpend, Total: decimal.NewFromInt(30), Count: 1, Width: 2},
			},
		},
	}

	resp := GraphFromResult("ds-1", result)

	if resp.Nodes[0].Color != render.ColorHighlight || resp.Nodes[0].Size != render.SizeHighlight {
		t.Fatalf("expected highlighted styling, got %+v", resp.Nodes[0])
	}
	if resp.Nodes[1].Color != render.ColorTarget || resp.Nodes[1].Category != "counterparty-target" {
		t.Fatalf("expected target styling, got %+v", resp.Nodes[1])
	}
	if resp.Edges[0].Kind != "Spend" || resp.Edges[0].Label != "30 USD (1)" {
		t.Fatalf("unexpected edge: %+v", resp.Edges[0])
	}
}

func TestGraphFromResult_EmptyUsesEmptyArrays(t *testing.T) {
	resp := GraphFromResult("ds-1", &usecase.GraphResult{Status: usecase.StatusEmpty})

	if resp.Nodes == nil || resp.Edges == nil {
		t.Fatalf("expected empty arrays, got nil")
	}
}

func TestSyncRequest_ToUseCaseInput(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	req := &SyncRequest{Actor: "A", Kinds: []string{"transfer", "", "spent"}, Start: &start}

	input, err := req.ToUseCaseInput("ds-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.DatasetID != "ds-1" || input.Criteria.Actor != "A" || input.Criteria.Start != &start {
		t.Fatalf("unexpected input: %+v", input)
	}
	if len(input.Criteria.Kinds) != 2 || input.Criteria.Kinds[1] != domain.KindSpend {
		t.Fatalf("unexpected kinds: %v", input.Criteria.Kinds)
	}

	bad := &SyncRequest{Kinds: []string{"gift"}}
	if _, err := bad.ToUseCaseInput("ds-1"); !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
