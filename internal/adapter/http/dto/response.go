package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardgraph/internal/adapter/render"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

// DatasetResponse represents a dataset in API responses.
type DatasetResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RowCount      int       `json:"row_count"`
	DroppedRows   int       `json:"dropped_rows"`
	HasTimestamps bool      `json:"has_timestamps"`
	CreatedAt     time.Time `json:"created_at"`
}

// DatasetFromDomain converts a domain dataset to a response.
func DatasetFromDomain(d *domain.Dataset) *DatasetResponse {
	return &DatasetResponse{
		ID:            d.ID,
		Name:          d.Name,
		RowCount:      d.RowCount,
		DroppedRows:   d.DroppedRows,
		HasTimestamps: d.HasTimestamps,
		CreatedAt:     d.CreatedAt,
	}
}

// DatasetsFromDomain converts domain datasets to responses.
func DatasetsFromDomain(datasets []*domain.Dataset) []*DatasetResponse {
	result := make([]*DatasetResponse, len(datasets))
	for i, d := range datasets {
		result[i] = DatasetFromDomain(d)
	}
	return result
}

// ProblemResponse describes a dropped row.
type ProblemResponse struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// UploadResponse is returned after a dataset upload.
type UploadResponse struct {
	Dataset  *DatasetResponse  `json:"dataset"`
	Problems []ProblemResponse `json:"problems"`
}

// UploadFromResult converts an upload result to a response.
func UploadFromResult(r *usecase.UploadDatasetResult) *UploadResponse {
	problems := make([]ProblemResponse, len(r.Problems))
	for i, p := range r.Problems {
		reason := ""
		if p.Err != nil {
			reason = p.Err.Error()
		}
		problems[i] = ProblemResponse{Row: p.Row, Field: p.Field, Value: p.Value, Reason: reason}
	}

	return &UploadResponse{
		Dataset:  DatasetFromDomain(r.Dataset),
		Problems: problems,
	}
}

// ActorResponse is an entry of the actor selector.
type ActorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ActorsFromDomain converts actors to responses.
func ActorsFromDomain(actors []domain.Actor) []ActorResponse {
	result := make([]ActorResponse, len(actors))
	for i, a := range actors {
		result[i] = ActorResponse{ID: a.ID, Name: a.Name}
	}
	return result
}

// NodeResponse is a graph node with rendering hints.
type NodeResponse struct {
	Key         string `json:"key"`
	ID          string `json:"id"`
	Label       string `json:"label"`
	Category    string `json:"category"`
	Highlighted bool   `json:"highlighted"`
	Color       string `json:"color"`
	Size        int    `json:"size"`
}

// EdgeResponse is a directed graph edge.
type EdgeResponse struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Label   string          `json:"label"`
	Tooltip string          `json:"tooltip"`
	Kind    string          `json:"kind,omitempty"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Width   float64         `json:"width"`
}

// GraphResponse is the graph of a dataset.
type GraphResponse struct {
	DatasetID string         `json:"dataset_id"`
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Total     int            `json:"total_records"`
	Matched   int            `json:"matched_records"`
	Nodes     []NodeResponse `json:"nodes"`
	Edges     []EdgeResponse `json:"edges"`
}

// GraphFromResult converts a pipeline result to a response.
func GraphFromResult(datasetID string, r *usecase.GraphResult) *GraphResponse {
	resp := &GraphResponse{
		DatasetID: datasetID,
		Status:    r.Status,
		Message:   r.Message,
		Total:     r.Total,
		Matched:   r.Matched,
		Nodes:     make([]NodeResponse, len(r.Graph.Nodes)),
		Edges:     make([]EdgeResponse, len(r.Graph.Edges)),
	}

	for i, n := range r.Graph.Nodes {
		color, size := render.NodeStyle(n)
		resp.Nodes[i] = NodeResponse{
			Key:         n.Key,
			ID:          n.ID,
			Label:       n.Label,
			Category:    string(n.Category),
			Highlighted: n.Highlighted,
			Color:       color,
			Size:        size,
		}
	}

	for i, e := range r.Graph.Edges {
		resp.Edges[i] = EdgeResponse{
			From:    e.From,
			To:      e.To,
			Label:   e.Label,
			Tooltip: e.Tooltip,
			Kind:    string(e.Kind),
			Total:   e.Total,
			Count:   e.Count,
			Width:   e.Width,
		}
	}

	return resp
}

// SyncResponse reports a finished graph database sync.
type SyncResponse struct {
	DatasetID  string `json:"dataset_id"`
	Total      int    `json:"total"`
	Written    int    `json:"written"`
	DurationMS int64  `json:"duration_ms"`
}

// SyncFromResult converts a sync result to a response.
func SyncFromResult(r *usecase.SyncResult) *SyncResponse {
	return &SyncResponse{
		DatasetID:  r.DatasetID,
		Total:      r.Total,
		Written:    r.Written,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}
