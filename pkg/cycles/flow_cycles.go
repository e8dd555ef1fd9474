package cycles

import (
	"sort"

	"github.com/ritzau/siteflow/pkg/graph"
	"github.com/ritzau/siteflow/pkg/model"
)

// FlowCycle is a set of nodes whose navigation edges form a cycle. Site
// flows are expected to be mostly tree-like; cycles are reported as
// diagnostics, never rejected.
type FlowCycle struct {
	NodeIDs []string `json:"nodeIds"`
}

// FindFlowCycles returns every navigation cycle in the graph, ordered
// deterministically by node position for stable reports.
func FindFlowCycles(g model.Graph) []FlowCycle {
	ix := graph.FromGraph(g)

	position := make(map[string]int, len(g.Nodes))
	for i, node := range g.Nodes {
		position[node.ID] = i
	}

	tarjan := NewTarjanSCC(ix.Directed())
	sccs := tarjan.FindSCCs()

	cycles := make([]FlowCycle, 0, len(sccs))
	for _, scc := range sccs {
		ids := make([]string, 0, len(scc))
		for _, gid := range scc {
			ids = append(ids, ix.Name(gid))
		}
		sort.Slice(ids, func(a, b int) bool {
			return position[ids[a]] < position[ids[b]]
		})
		cycles = append(cycles, FlowCycle{NodeIDs: ids})
	}

	sort.Slice(cycles, func(a, b int) bool {
		return position[cycles[a].NodeIDs[0]] < position[cycles[b].NodeIDs[0]]
	})
	return cycles
}
