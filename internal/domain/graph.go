package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NodeCategory drives node styling in the rendered graph.
type NodeCategory string

const (
	CategoryActor  NodeCategory = "actor"
	CategoryTarget NodeCategory = "counterparty-target"
	CategorySource NodeCategory = "counterparty-source"
)

// Edge width bounds, scaled from the edge total.
const (
	minEdgeWidth   = 2.0
	maxEdgeWidth   = 10.0
	edgeWidthScale = 10000.0
)

// PointsUnit is appended to labels of point-carrying edges.
const PointsUnit = "RP"

// Node is a unique entity in the graph.
type Node struct {
	Key         string
	ID          string
	Label       string
	Category    NodeCategory
	Highlighted bool
}

// Edge is a directed, labelled relationship between two nodes.
type Edge struct {
	From    string
	To      string
	Label   string
	Tooltip string
	Kind    RelationshipKind
	Total   decimal.Decimal
	Count   int
	Width   float64
}

// GraphDescription is the node/edge list handed to a renderer.
type GraphDescription struct {
	Nodes []Node
	Edges []Edge
}

// Highlighted returns the flagged node, if any.
func (g GraphDescription) Highlighted() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Highlighted {
			return n, true
		}
	}
	return Node{}, false
}

// Link is an explicit extra edge requested by the caller, for example to
// connect a group of nodes to the highlighted actor.
type Link struct {
	From  EntityKey
	To    EntityKey
	Label string
}

type graphBuilder struct {
	nodes []Node
	index map[string]int
}

func (b *graphBuilder) add(key EntityKey, category NodeCategory) string {
	k := key.String()
	if _, ok := b.index[k]; ok {
		return k
	}
	b.index[k] = len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Key:      k,
		ID:       key.ID,
		Label:    key.Label(),
		Category: category,
	})
	return k
}

func (b *graphBuilder) label(key string) string {
	return b.nodes[b.index[key]].Label
}

// find returns the index of the node whose key equals value, or else the
// first node whose id or label equals it.
func (b *graphBuilder) find(value string) (int, bool) {
	if i, ok := b.index[value]; ok {
		return i, true
	}
	for i, n := range b.nodes {
		if n.ID == value || n.Label == value {
			return i, true
		}
	}
	return 0, false
}

// endpoint resolves a link endpoint. Keys without a name match existing
// nodes by id or label; anything unknown becomes an actor node.
func (b *graphBuilder) endpoint(key EntityKey) string {
	if key.Name == "" {
		if i, ok := b.find(key.ID); ok {
			return b.nodes[i].Key
		}
	}
	return b.add(key, CategoryActor)
}

// highlight flags the node matching actor, inserting it when absent.
func (b *graphBuilder) highlight(actor string) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return
	}

	i, ok := b.find(actor)
	if !ok {
		b.add(NewEntityKey(actor, ""), CategoryActor)
		i = len(b.nodes) - 1
	}
	b.nodes[i].Highlighted = true
}

// CounterpartCategory returns the node category of the counterpart of kind.
func CounterpartCategory(kind RelationshipKind) NodeCategory {
	switch kind {
	case KindSpend:
		return CategoryTarget
	case KindReceived:
		return CategorySource
	default:
		return CategoryActor
	}
}

// EdgeLabel formats the total and record count of an aggregated edge.
func EdgeLabel(e AggregatedEdge) string {
	unit := PointsUnit
	if !e.Kind.UsesPoints() {
		unit = ""
		if e.Currency != "" {
			unit = " " + e.Currency
		}
	}
	return fmt.Sprintf("%s%s (%d)", FormatTotal(e.Total().InexactFloat64()), unit, e.Count)
}

func edgeWidth(total decimal.Decimal) float64 {
	w := total.Abs().InexactFloat64() / edgeWidthScale
	if w < minEdgeWidth {
		return minEdgeWidth
	}
	if w > maxEdgeWidth {
		return maxEdgeWidth
	}
	return w
}

// Assemble converts aggregated edges into a deduplicated node set and an edge
// list. Nodes keep the category and label of their first appearance. The
// highlighted actor is always present and flagged. Links are appended after
// the aggregated edges.
func Assemble(edges []AggregatedEdge, highlighted string, links ...Link) GraphDescription {
	b := &graphBuilder{nodes: make([]Node, 0), index: make(map[string]int)}
	out := make([]Edge, 0, len(edges)+len(links))

	for _, e := range edges {
		from := b.add(e.Actor, CategoryActor)
		to := b.add(e.Counterpart, CounterpartCategory(e.Kind))

		label := EdgeLabel(e)
		total := e.Total()
		out = append(out, Edge{
			From:    from,
			To:      to,
			Label:   label,
			Tooltip: fmt.Sprintf("%s → %s\n%s\n%s", e.Actor.Label(), e.Counterpart.Label(), e.Kind.Human(), label),
			Kind:    e.Kind,
			Total:   total,
			Count:   e.Count,
			Width:   edgeWidth(total),
		})
	}

	for _, l := range links {
		from := b.endpoint(l.From)
		to := b.endpoint(l.To)
		out = append(out, Edge{
			From:    from,
			To:      to,
			Label:   l.Label,
			Tooltip: fmt.Sprintf("%s → %s", b.label(from), b.label(to)),
			Width:   minEdgeWidth,
		})
	}

	b.highlight(highlighted)

	return GraphDescription{
		Nodes: b.nodes,
		Edges: out,
	}
}
