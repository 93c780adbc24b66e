package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// totalPlaces is the number of decimal places aggregated totals are rounded to.
const totalPlaces = 2

// AggregatedEdge summarizes every record sharing kind, actor and counterpart.
type AggregatedEdge struct {
	Kind        RelationshipKind
	Actor       EntityKey
	Counterpart EntityKey
	Currency    string
	TotalAmount decimal.Decimal
	TotalPoints decimal.Decimal
	Count       int
}

// Total returns the meaningful total for the edge kind.
func (e AggregatedEdge) Total() decimal.Decimal {
	if e.Kind.UsesPoints() {
		return e.TotalPoints
	}
	return e.TotalAmount
}

type groupKey struct {
	kind        RelationshipKind
	actor       EntityKey
	counterpart EntityKey
}

// Aggregate groups records by (kind, actor, counterpart) and sums their values.
// Totals are rounded half-to-even to two places. The result is sorted by kind,
// actor key and counterpart key.
func Aggregate(records []TransactionRecord) []AggregatedEdge {
	groups := make(map[groupKey]*AggregatedEdge)
	for _, r := range records {
		k := groupKey{kind: r.Kind, actor: r.ActorKey(), counterpart: r.CounterpartKey()}
		g, ok := groups[k]
		if !ok {
			g = &AggregatedEdge{
				Kind:        k.kind,
				Actor:       k.actor,
				Counterpart: k.counterpart,
				Currency:    r.Currency,
			}
			groups[k] = g
		}
		g.TotalAmount = g.TotalAmount.Add(r.Amount)
		g.TotalPoints = g.TotalPoints.Add(r.Points)
		g.Count++
		if g.Currency != r.Currency {
			// mixed currencies in one group cannot be labelled with a single code
			g.Currency = ""
		}
	}

	edges := make([]AggregatedEdge, 0, len(groups))
	for _, g := range groups {
		g.TotalAmount = g.TotalAmount.RoundBank(totalPlaces)
		g.TotalPoints = g.TotalPoints.RoundBank(totalPlaces)
		edges = append(edges, *g)
	}

	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if ak, bk := a.Actor.String(), b.Actor.String(); ak != bk {
			return ak < bk
		}
		return a.Counterpart.String() < b.Counterpart.String()
	})

	return edges
}
