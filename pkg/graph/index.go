package graph

import (
	simplegraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/ritzau/siteflow/pkg/model"
)

// Index maps site-flow node ids onto a gonum directed graph so traversal and
// cycle algorithms can run over it. Node insertion order is preserved for
// deterministic tie-breaking by callers.
type Index struct {
	graph  *simple.DirectedGraph
	ids    map[string]int64
	names  map[int64]string
	order  []string
	nextID int64
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{
		graph:  simple.NewDirectedGraph(),
		ids:    make(map[string]int64),
		names:  make(map[int64]string),
		nextID: 0,
	}
}

// FromGraph builds an index over a normalized graph. Connections referencing
// unknown nodes are assumed to have been dropped already.
func FromGraph(g model.Graph) *Index {
	ix := NewIndex()
	for _, node := range g.Nodes {
		ix.AddNode(node.ID)
	}
	for _, c := range g.Connections {
		ix.AddConnection(c.From, c.To)
	}
	return ix
}

// AddNode adds a node to the index. Adding an existing id is a no-op.
func (ix *Index) AddNode(id string) {
	if _, exists := ix.ids[id]; exists {
		return
	}
	ix.ids[id] = ix.nextID
	ix.names[ix.nextID] = id
	ix.order = append(ix.order, id)
	ix.graph.AddNode(simple.Node(ix.nextID))
	ix.nextID++
}

// AddConnection adds a directed edge, creating missing endpoints. Self loops
// and duplicate edges are ignored.
func (ix *Index) AddConnection(from, to string) {
	if from == to {
		return
	}
	ix.AddNode(from)
	ix.AddNode(to)

	fromID := ix.ids[from]
	toID := ix.ids[to]
	if !ix.graph.HasEdgeFromTo(fromID, toID) {
		ix.graph.SetEdge(ix.graph.NewEdge(ix.graph.Node(fromID), ix.graph.Node(toID)))
	}
}

// Order returns node ids in insertion order.
func (ix *Index) Order() []string {
	return ix.order
}

// Name returns the site-flow id for a gonum node id.
func (ix *Index) Name(id int64) string {
	return ix.names[id]
}

// InDegree returns the number of incoming connections of a node.
func (ix *Index) InDegree(id string) int {
	gid, exists := ix.ids[id]
	if !exists {
		return 0
	}
	return ix.graph.To(gid).Len()
}

// Directed exposes the underlying gonum graph for algorithms that want the
// generic interface, such as the cycle finder.
func (ix *Index) Directed() simplegraph.Directed {
	return ix.graph
}

// LevelsFrom runs a breadth-first traversal from all roots simultaneously
// and returns the minimum depth at which each reachable node is first seen.
// Roots sit at depth 0. Nodes not reachable from any root are absent from
// the result.
func (ix *Index) LevelsFrom(roots []string) map[string]int {
	depths := make(map[string]int, len(ix.order))
	if len(roots) == 0 {
		return depths
	}

	// A virtual super-root turns the multi-source walk into a single
	// breadth-first traversal; it is removed again before returning.
	super := ix.nextID
	ix.graph.AddNode(simple.Node(super))
	for _, root := range roots {
		if gid, exists := ix.ids[root]; exists {
			ix.graph.SetEdge(ix.graph.NewEdge(ix.graph.Node(super), ix.graph.Node(gid)))
		}
	}

	bfs := traverse.BreadthFirst{}
	bfs.Walk(ix.graph, ix.graph.Node(super), func(n simplegraph.Node, depth int) bool {
		if n.ID() != super {
			depths[ix.names[n.ID()]] = depth - 1
		}
		return false
	})

	ix.graph.RemoveNode(super)
	return depths
}
