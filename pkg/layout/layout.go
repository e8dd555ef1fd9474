package layout

import (
	"math"

	"github.com/ritzau/siteflow/pkg/model"
)

// Spacing and sizing constants for the hierarchical layout. Columns run left
// to right by level; rows are sequenced top to bottom.
const (
	ColumnSpacing = 260.0
	RowSpacing    = 120.0
	CanvasPadding = 80.0
	NodeWidth     = 180.0
	NodeHeight    = 64.0

	// FitZoom is the constant zoom recommended after a re-layout.
	FitZoom = 0.75
)

// Workspace is the recommended canvas size. Sizes only ever grow across
// repeated layout calls within one editing session.
type Workspace struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the recommended zoom and pan after a re-layout.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// Result carries the repositioned graph plus canvas recommendations.
type Result struct {
	Graph     model.Graph `json:"graph"`
	Workspace Workspace   `json:"workspace"`
	Viewport  Viewport    `json:"viewport"`
}

// Apply computes fresh coordinates for every node from the resolved levels
// and the rendered hierarchy. It is a pure function: all state lives in the
// arguments, and repeated calls with the same input yield the same output.
// The prior workspace is folded into the result so the canvas never shrinks
// mid-session.
func Apply(g model.Graph, nodeLevels map[string]int, rendered []model.RenderedConnection, prior Workspace) Result {
	out := g.Clone()
	if len(out.Nodes) == 0 {
		return Result{
			Graph:     out,
			Workspace: prior,
			Viewport:  Viewport{Zoom: FitZoom},
		}
	}

	children := layoutChildren(out, nodeLevels, rendered)

	// Column placement is direct: one column per level.
	for i := range out.Nodes {
		out.Nodes[i].X = CanvasPadding + float64(nodeLevels[out.Nodes[i].ID])*ColumnSpacing
	}

	p := &placer{
		graph:    &out,
		children: children,
		assigned: make(map[string]float64, len(out.Nodes)),
	}

	// Roots first, then every node not yet reached. Visiting leftovers with
	// the same rule guarantees no orphan is dropped, and the shared slot
	// counter keeps disconnected components from overlapping.
	for _, node := range out.Nodes {
		if nodeLevels[node.ID] == 0 {
			p.place(node.ID)
		}
	}
	for _, node := range out.Nodes {
		p.place(node.ID)
	}

	for i := range out.Nodes {
		out.Nodes[i].Y = p.assigned[out.Nodes[i].ID]
	}

	translateToPadding(&out)

	maxX, maxY := 0.0, 0.0
	for _, node := range out.Nodes {
		maxX = math.Max(maxX, node.X)
		maxY = math.Max(maxY, node.Y)
	}
	workspace := Workspace{
		Width:  math.Max(prior.Width, maxX+NodeWidth+CanvasPadding),
		Height: math.Max(prior.Height, maxY+NodeHeight+CanvasPadding),
	}

	return Result{
		Graph:     out,
		Workspace: workspace,
		Viewport:  Viewport{Zoom: FitZoom},
	}
}

// layoutChildren builds the strict positioning tree: each node is claimed by
// exactly one parent one level above it. Real edges win over synthetic ones,
// earlier edges over later ones.
func layoutChildren(g model.Graph, nodeLevels map[string]int, rendered []model.RenderedConnection) map[string][]string {
	parentOf := make(map[string]string, len(g.Nodes))
	for _, synthetic := range []bool{false, true} {
		for _, edge := range rendered {
			if edge.Synthetic != synthetic {
				continue
			}
			if nodeLevels[edge.To] != nodeLevels[edge.From]+1 {
				continue
			}
			if _, claimed := parentOf[edge.To]; !claimed {
				parentOf[edge.To] = edge.From
			}
		}
	}

	children := make(map[string][]string)
	// Children in node order keeps placement deterministic.
	for _, node := range g.Nodes {
		if parent, ok := parentOf[node.ID]; ok {
			children[parent] = append(children[parent], node.ID)
		}
	}
	return children
}

// placer assigns vertical positions: leaves take the next slot in a shared
// monotonic sequence, internal nodes center on their children's span.
type placer struct {
	graph    *model.Graph
	children map[string][]string
	assigned map[string]float64
	nextSlot int
}

func (p *placer) place(id string) float64 {
	if y, done := p.assigned[id]; done {
		return y
	}

	kids := p.children[id]
	if len(kids) == 0 {
		y := CanvasPadding + float64(p.nextSlot)*RowSpacing
		p.nextSlot++
		p.assigned[id] = y
		return y
	}

	minY := math.Inf(1)
	maxY := math.Inf(-1)
	for _, kid := range kids {
		y := p.place(kid)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	y := (minY + maxY) / 2
	p.assigned[id] = y
	return y
}

// translateToPadding shifts the whole layout so the minimum coordinates sit
// at the canvas padding.
func translateToPadding(g *model.Graph) {
	if len(g.Nodes) == 0 {
		return
	}
	minX := math.Inf(1)
	minY := math.Inf(1)
	for _, node := range g.Nodes {
		minX = math.Min(minX, node.X)
		minY = math.Min(minY, node.Y)
	}
	dx := CanvasPadding - minX
	dy := CanvasPadding - minY
	for i := range g.Nodes {
		g.Nodes[i].X += dx
		g.Nodes[i].Y += dy
	}
}
