package model

// Node represents a single page or screen in a site flow.
type Node struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	IsParent    bool    `json:"isParent"`        // derived from outgoing connections
	Level       *int    `json:"level,omitempty"` // advisory depth; nil when unknown
}

// Connection is a directed "navigates to" edge between two nodes.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the authoritative unit of exchange and persistence.
// It carries no layout or editing state beyond node coordinates.
type Graph struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// RenderedConnection is a connection as drawn: an authoritative edge, or a
// parent link synthesized for display only. Synthetic edges are never
// written back to the graph.
type RenderedConnection struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// NewGraph creates a new empty graph.
func NewGraph() Graph {
	return Graph{
		Nodes:       make([]Node, 0),
		Connections: make([]Connection, 0),
	}
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	return g.NodeByID(id) != nil
}

// Connected reports whether an edge exists between a and b in either
// direction. Interactive connect uses this to reject duplicates.
func (g *Graph) Connected(a, b string) bool {
	for _, c := range g.Connections {
		if (c.From == a && c.To == b) || (c.From == b && c.To == a) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the graph. Level pointers are duplicated so
// the copy shares no memory with the original.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes:       make([]Node, len(g.Nodes)),
		Connections: make([]Connection, len(g.Connections)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Connections, g.Connections)
	for i := range out.Nodes {
		if out.Nodes[i].Level != nil {
			level := *out.Nodes[i].Level
			out.Nodes[i].Level = &level
		}
	}
	return out
}

// Equal reports structural equality of two graphs, comparing levels by value.
func (g Graph) Equal(other Graph) bool {
	if len(g.Nodes) != len(other.Nodes) || len(g.Connections) != len(other.Connections) {
		return false
	}
	for i := range g.Nodes {
		a, b := g.Nodes[i], other.Nodes[i]
		if a.ID != b.ID || a.Name != b.Name || a.Description != b.Description ||
			a.X != b.X || a.Y != b.Y || a.IsParent != b.IsParent {
			return false
		}
		if (a.Level == nil) != (b.Level == nil) {
			return false
		}
		if a.Level != nil && *a.Level != *b.Level {
			return false
		}
	}
	for i := range g.Connections {
		if g.Connections[i] != other.Connections[i] {
			return false
		}
	}
	return true
}

// IntPtr is a convenience for building graphs with stored levels.
func IntPtr(v int) *int {
	return &v
}
