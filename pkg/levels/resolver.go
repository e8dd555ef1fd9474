package levels

import (
	"github.com/ritzau/siteflow/pkg/graph"
	"github.com/ritzau/siteflow/pkg/model"
)

// Resolve assigns each node an effective hierarchical depth derived from the
// connection set. Stored node levels are advisory: a node marked level 0 is
// treated as a root even when it has incoming connections, but resolved
// depths never mutate the graph.
//
// Root candidates are nodes with stored level 0 plus nodes with no incoming
// connection. If neither exists (fully cyclic graph) the first node in
// insertion order becomes the sole root. Each reachable node receives the
// minimum depth at which a simultaneous breadth-first walk from all roots
// first reaches it. Unreached nodes keep their stored level; without one a
// root candidate defaults to 0 and everything else to 1.
func Resolve(g model.Graph) map[string]int {
	result := make(map[string]int, len(g.Nodes))
	if len(g.Nodes) == 0 {
		return result
	}

	ix := graph.FromGraph(g)

	rootSet := make(map[string]bool)
	var roots []string
	for _, node := range g.Nodes {
		if node.Level != nil && *node.Level == 0 || ix.InDegree(node.ID) == 0 {
			rootSet[node.ID] = true
			roots = append(roots, node.ID)
		}
	}
	if len(roots) == 0 {
		roots = []string{g.Nodes[0].ID}
		rootSet[roots[0]] = true
	}

	reached := ix.LevelsFrom(roots)

	for _, node := range g.Nodes {
		if level, ok := reached[node.ID]; ok {
			result[node.ID] = level
			continue
		}
		// Disconnected from every root: fall back to the stored level.
		switch {
		case node.Level != nil:
			result[node.ID] = *node.Level
		case rootSet[node.ID]:
			result[node.ID] = 0
		default:
			result[node.ID] = 1
		}
	}

	return result
}
