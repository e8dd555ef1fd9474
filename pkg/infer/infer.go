package infer

import (
	"math"

	"github.com/ritzau/siteflow/pkg/model"
)

// Render derives the connection set actually drawn: every authoritative
// connection, plus a synthesized parent link for each non-root node that has
// no incoming connection from the level directly above it. Generators often
// emit levels without edges, or skip-level links; synthesis keeps the
// diagram looking connected without touching the authoritative list.
//
// The synthesized parent is the candidate at the level above whose vertical
// position is closest, ties broken by node order. When that level has no
// candidates at all, the node is attached to the first level-0 root so every
// node has at least one rendered incoming edge whenever a root exists.
func Render(g model.Graph, levels map[string]int) []model.RenderedConnection {
	rendered := make([]model.RenderedConnection, 0, len(g.Connections))
	for _, c := range g.Connections {
		rendered = append(rendered, model.RenderedConnection{From: c.From, To: c.To})
	}

	// Incoming sources per node, for checking satisfied parent levels.
	incoming := make(map[string][]string)
	for _, c := range g.Connections {
		incoming[c.To] = append(incoming[c.To], c.From)
	}

	for _, node := range g.Nodes {
		level := levels[node.ID]
		if level <= 0 {
			continue
		}

		if hasParentAt(incoming[node.ID], levels, level-1) {
			continue
		}

		parent := closestAtLevel(g, levels, level-1, node)
		if parent == "" {
			parent = firstRoot(g, levels, node.ID)
		}
		if parent == "" || parent == node.ID {
			continue
		}

		rendered = append(rendered, model.RenderedConnection{
			From:      parent,
			To:        node.ID,
			Synthetic: true,
		})
	}

	return rendered
}

// hasParentAt reports whether any of the sources sits exactly at the wanted
// level. A real edge from there suppresses synthesis for the node.
func hasParentAt(sources []string, levels map[string]int, want int) bool {
	for _, src := range sources {
		if levels[src] == want {
			return true
		}
	}
	return false
}

// closestAtLevel picks the candidate at the given level with the smallest
// vertical distance to the node. The first candidate in node order wins ties.
func closestAtLevel(g model.Graph, levels map[string]int, level int, node model.Node) string {
	best := ""
	bestDistance := math.Inf(1)
	for _, candidate := range g.Nodes {
		if candidate.ID == node.ID || levels[candidate.ID] != level {
			continue
		}
		distance := math.Abs(candidate.Y - node.Y)
		if distance < bestDistance {
			best = candidate.ID
			bestDistance = distance
		}
	}
	return best
}

// firstRoot returns the first level-0 node other than self, if any.
func firstRoot(g model.Graph, levels map[string]int, self string) string {
	for _, node := range g.Nodes {
		if node.ID != self && levels[node.ID] == 0 {
			return node.ID
		}
	}
	return ""
}
