package models

import "time"

// FlowGraph is the editable unit: the nodes and edges of one open flow.
type FlowGraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
	Dirty bool    `json:"dirty"`
}

// Clone returns a deep copy of the graph.
func (g *FlowGraph) Clone() *FlowGraph {
	clone := &FlowGraph{
		Nodes: make([]*Node, 0, len(g.Nodes)),
		Edges: make([]*Edge, 0, len(g.Edges)),
		Dirty: g.Dirty,
	}

	for _, node := range g.Nodes {
		clone.Nodes = append(clone.Nodes, node.Clone())
	}

	for _, edge := range g.Edges {
		e := *edge
		clone.Edges = append(clone.Edges, &e)
	}

	return clone
}

// Flow is a persisted agent flow.
type Flow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"       validate:"required,min=1"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []*Edge   `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Graph returns a clean (not dirty) graph holding copies of the flow's nodes and edges.
func (f *Flow) Graph() *FlowGraph {
	graph := &FlowGraph{Nodes: f.Nodes, Edges: f.Edges}

	return graph.Clone()
}
