package usecase

import (
	"context"
	"time"

	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/infrastructure/metrics"
)

// Pipeline statuses.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
)

// NoRecordsMatchedMessage is reported when the filter leaves nothing to draw.
const NoRecordsMatchedMessage = "no records matched"

// GraphRequest is the request-scoped selection driving one pipeline run.
type GraphRequest struct {
	Criteria  domain.FilterCriteria
	Highlight string
	Links     []domain.Link
}

// GraphResult is the outcome of one pipeline run.
type GraphResult struct {
	Graph   domain.GraphDescription
	Edges   []domain.AggregatedEdge
	Status  string
	Message string
	Total   int
	Matched int
}

// Pipeline runs filter, aggregate and assemble over an in-memory record collection.
type Pipeline struct {
	metrics *metrics.Metrics
}

// NewPipeline creates a new Pipeline. m may be nil.
func NewPipeline(m *metrics.Metrics) *Pipeline {
	return &Pipeline{metrics: m}
}

// Run executes the pipeline. Zero matching records is reported through
// Status, not as an error.
func (p *Pipeline) Run(records []domain.TransactionRecord, req GraphRequest) (*GraphResult, error) {
	if err := req.Criteria.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	filtered := domain.Filter(records, req.Criteria)
	result := &GraphResult{
		Total:   len(records),
		Matched: len(filtered),
		Status:  StatusOK,
	}

	if len(filtered) == 0 {
		result.Status = StatusEmpty
		result.Message = NoRecordsMatchedMessage
		result.Edges = []domain.AggregatedEdge{}
		result.Graph = domain.GraphDescription{Nodes: []domain.Node{}, Edges: []domain.Edge{}}
	} else {
		result.Edges = domain.Aggregate(filtered)
		result.Graph = domain.Assemble(result.Edges, req.Highlight, req.Links...)
	}

	if p.metrics != nil {
		p.metrics.PipelineRuns.WithLabelValues(result.Status).Inc()
		p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		p.metrics.GraphNodes.Observe(float64(len(result.Graph.Nodes)))
		p.metrics.GraphEdges.Observe(float64(len(result.Graph.Edges)))
	}

	return result, nil
}

// RecordLoader provides the records of a dataset.
type RecordLoader interface {
	LoadRecords(ctx context.Context, id string) (*domain.Dataset, []domain.TransactionRecord, error)
}

// GraphUseCase builds graph descriptions for stored datasets.
type GraphUseCase struct {
	loader   RecordLoader
	pipeline *Pipeline
}

// NewGraphUseCase creates a new GraphUseCase.
func NewGraphUseCase(loader RecordLoader, pipeline *Pipeline) *GraphUseCase {
	return &GraphUseCase{
		loader:   loader,
		pipeline: pipeline,
	}
}

// BuildGraphInput represents input for building a dataset graph.
type BuildGraphInput struct {
	DatasetID string
	Request   GraphRequest
}

// BuildGraph loads the dataset records and runs the pipeline over them.
func (uc *GraphUseCase) BuildGraph(ctx context.Context, input BuildGraphInput) (*domain.Dataset, *GraphResult, error) {
	dataset, records, err := uc.loader.LoadRecords(ctx, input.DatasetID)
	if err != nil {
		return nil, nil, err
	}

	result, err := uc.pipeline.Run(records, input.Request)
	if err != nil {
		return nil, nil, err
	}

	return dataset, result, nil
}
