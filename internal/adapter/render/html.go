package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/iho/rewardgraph/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/graph.html"))

type visNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
	Color string `json:"color"`
	Size  int    `json:"size"`
}

type visEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Label  string  `json:"label,omitempty"`
	Title  string  `json:"title,omitempty"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Arrows string  `json:"arrows"`
}

// Page is the data of one rendered graph page.
type Page struct {
	Title   string
	Caption string
	Graph   domain.GraphDescription
}

type pageData struct {
	Title   string
	Caption string
	Empty   bool
	Nodes   []visNode
	Edges   []visEdge
	Physics ForceAtlas2
}

// HTML writes a self-contained vis-network page for p.
func HTML(w io.Writer, p Page) error {
	data := pageData{
		Title:   p.Title,
		Caption: p.Caption,
		Empty:   len(p.Graph.Nodes) == 0,
		Nodes:   make([]visNode, 0, len(p.Graph.Nodes)),
		Edges:   make([]visEdge, 0, len(p.Graph.Edges)),
		Physics: DefaultPhysics,
	}

	for _, n := range p.Graph.Nodes {
		color, size := NodeStyle(n)
		data.Nodes = append(data.Nodes, visNode{
			ID:    n.Key,
			Label: n.Label,
			Title: n.ID,
			Color: color,
			Size:  size,
		})
	}

	for _, e := range p.Graph.Edges {
		data.Edges = append(data.Edges, visEdge{
			From:   e.From,
			To:     e.To,
			Label:  e.Label,
			Title:  e.Tooltip,
			Color:  ColorEdge,
			Width:  e.Width,
			Arrows: "to",
		})
	}

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render graph page: %w", err)
	}
	return nil
}
