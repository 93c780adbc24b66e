package dto

import (
	"time"

	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

// SyncRequest selects which records of a dataset are pushed to the graph database.
// An empty body syncs every record.
type SyncRequest struct {
	Actor string     `json:"actor,omitempty"`
	Kinds []string   `json:"kinds,omitempty"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *SyncRequest) ToUseCaseInput(datasetID string) (usecase.SyncInput, error) {
	kinds, err := ParseKinds(r.Kinds)
	if err != nil {
		return usecase.SyncInput{}, err
	}

	return usecase.SyncInput{
		DatasetID: datasetID,
		Criteria: domain.FilterCriteria{
			Start: r.Start,
			End:   r.End,
			Actor: r.Actor,
			Kinds: kinds,
		},
	}, nil
}

// ParseKinds parses relationship kind names, skipping blanks.
func ParseKinds(values []string) ([]domain.RelationshipKind, error) {
	kinds := make([]domain.RelationshipKind, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		kind, err := domain.ParseKind(v)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
