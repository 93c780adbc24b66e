package domain

import (
	"strings"
	"time"
)

// AllActors is the actor filter value that disables actor filtering.
const AllActors = "all"

// FilterCriteria selects a subset of records. The zero value matches everything.
type FilterCriteria struct {
	Start *time.Time
	End   *time.Time
	Actor string
	Kinds []RelationshipKind
}

// Validate checks that the time window is well formed.
func (c FilterCriteria) Validate() error {
	if c.Start != nil && c.End != nil && c.Start.After(*c.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Predicate reports whether a record should be kept.
type Predicate func(TransactionRecord) bool

// ByActor keeps records whose actor id or actor name equals actor.
// An empty actor or "all" keeps everything.
func ByActor(actor string) Predicate {
	actor = strings.TrimSpace(actor)
	if actor == "" || strings.EqualFold(actor, AllActors) {
		return nil
	}
	return func(r TransactionRecord) bool {
		return r.ActorID == actor || r.ActorName == actor
	}
}

// ByWindow keeps records inside [start, end], inclusive on both ends.
// Records without a timestamp always pass, so datasets lacking a timestamp
// column are unaffected.
func ByWindow(start, end *time.Time) Predicate {
	if start == nil && end == nil {
		return nil
	}
	return func(r TransactionRecord) bool {
		if r.OccurredAt.IsZero() {
			return true
		}
		if start != nil && r.OccurredAt.Before(*start) {
			return false
		}
		if end != nil && r.OccurredAt.After(*end) {
			return false
		}
		return true
	}
}

// ByKinds keeps records whose kind is in kinds. No kinds keeps everything.
func ByKinds(kinds []RelationshipKind) Predicate {
	if len(kinds) == 0 {
		return nil
	}
	allowed := make(map[RelationshipKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return func(r TransactionRecord) bool {
		_, ok := allowed[r.Kind]
		return ok
	}
}

// Predicates returns the active predicates of the criteria.
func (c FilterCriteria) Predicates() []Predicate {
	candidates := []Predicate{
		ByActor(c.Actor),
		ByWindow(c.Start, c.End),
		ByKinds(c.Kinds),
	}

	preds := make([]Predicate, 0, len(candidates))
	for _, p := range candidates {
		if p != nil {
			preds = append(preds, p)
		}
	}
	return preds
}

// Apply returns a new slice with the records that satisfy every predicate,
// in their original order. The input is never modified.
func Apply(records []TransactionRecord, preds ...Predicate) []TransactionRecord {
	out := make([]TransactionRecord, 0, len(records))
	for _, r := range records {
		keep := true
		for _, p := range preds {
			if p != nil && !p(r) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// Filter applies the criteria to records.
func Filter(records []TransactionRecord, c FilterCriteria) []TransactionRecord {
	return Apply(records, c.Predicates()...)
}
