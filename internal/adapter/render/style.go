// Package render turns graph descriptions into browser-ready output.
package render

import "github.com/iho/rewardgraph/internal/domain"

// Node and edge styling.
const (
	ColorActor     = "#87CEFA"
	ColorTarget    = "#90EE90"
	ColorSource    = "#FFB6C1"
	ColorHighlight = "#FFD700"
	ColorEdge      = "rgba(80,80,80,0.85)"

	SizeDefault   = 18
	SizeHighlight = 30
)

// NodeStyle returns the color and size of a node.
func NodeStyle(n domain.Node) (string, int) {
	if n.Highlighted {
		return ColorHighlight, SizeHighlight
	}

	switch n.Category {
	case domain.CategoryTarget:
		return ColorTarget, SizeDefault
	case domain.CategorySource:
		return ColorSource, SizeDefault
	default:
		return ColorActor, SizeDefault
	}
}

// ForceAtlas2 holds the physics settings handed to vis-network.
type ForceAtlas2 struct {
	GravitationalConstant float64 `json:"gravitationalConstant"`
	CentralGravity        float64 `json:"centralGravity"`
	SpringLength          float64 `json:"springLength"`
	SpringConstant        float64 `json:"springConstant"`
	Damping               float64 `json:"damping"`
}

// DefaultPhysics is the layout used by the dashboard.
var DefaultPhysics = ForceAtlas2{
	GravitationalConstant: -100,
	CentralGravity:        0.01,
	SpringLength:          220,
	SpringConstant:        0.03,
	Damping:               0.6,
}
