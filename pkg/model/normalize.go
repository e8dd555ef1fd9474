package model

import (
	"errors"

	"github.com/google/uuid"
)

// PlaceholderName is used for nodes that arrive without a name.
const PlaceholderName = "Untitled"

// ErrNilGraph is returned when normalization is handed no graph at all.
// This is the only hard failure in the model layer; everything else is
// repaired silently.
var ErrNilGraph = errors.New("model: cannot normalize nil graph")

// Normalize returns a repaired copy of g: missing ids are synthesized,
// missing names and descriptions get defaults, negative stored levels are
// cleared, connections with unknown endpoints are dropped, and IsParent is
// recomputed from the surviving connections.
//
// Normalize is pure and idempotent. It is the mandatory gate before layout
// and persistence; callers must never hand an un-normalized graph to either.
func Normalize(g *Graph) (Graph, error) {
	if g == nil {
		return Graph{}, ErrNilGraph
	}

	out := g.Clone()
	if out.Nodes == nil {
		out.Nodes = make([]Node, 0)
	}

	seen := make(map[string]bool, len(out.Nodes))
	for i := range out.Nodes {
		node := &out.Nodes[i]
		for node.ID == "" || seen[node.ID] {
			node.ID = uuid.NewString()
		}
		seen[node.ID] = true

		if node.Name == "" {
			node.Name = PlaceholderName
		}
		if node.Level != nil && *node.Level < 0 {
			node.Level = nil
		}
	}

	// Drop connections whose endpoints are unknown. Invalid references come
	// from corrupted persisted data or sloppy generator output and must
	// never survive normalization.
	valid := make([]Connection, 0, len(out.Connections))
	for _, c := range out.Connections {
		if seen[c.From] && seen[c.To] {
			valid = append(valid, c)
		}
	}
	out.Connections = valid

	hasChildren := make(map[string]bool, len(out.Nodes))
	for _, c := range out.Connections {
		hasChildren[c.From] = true
	}
	for i := range out.Nodes {
		out.Nodes[i].IsParent = hasChildren[out.Nodes[i].ID]
	}

	return out, nil
}
