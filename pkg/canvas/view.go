package canvas

import (
	"github.com/dukex/flowstudio/pkg/models"
)

// View is everything the browser needs to draw the flow.
type View struct {
	FlowID   string       `json:"flowId"`
	Revision uint64       `json:"revision"`
	Dirty    bool         `json:"dirty"`
	Nodes    []NodeView   `json:"nodes"`
	Edges    []EdgeView   `json:"edges"`
	Preview  *PreviewView `json:"preview,omitempty"`
}

type NodeView struct {
	ID       string          `json:"id"`
	Kind     models.NodeKind `json:"kind"`
	Label    string          `json:"label,omitempty"`
	Position models.Position `json:"position"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
}

// EdgeView is one drawn edge. Label is only set for branch edges.
type EdgeView struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	SourceHandle string          `json:"sourceHandle"`
	Target       string          `json:"target"`
	TargetHandle string          `json:"targetHandle"`
	Role         models.EdgeRole `json:"role"`
	Label        string          `json:"label,omitempty"`
	Color        string          `json:"color"`
	Path         string          `json:"path"`
	Midpoint     Point           `json:"midpoint"`
	ShowDelete   bool            `json:"showDelete"`
}

// PreviewView is the connection being dragged. It is not part of the graph.
type PreviewView struct {
	Source       string          `json:"source"`
	SourceHandle string          `json:"sourceHandle"`
	Role         models.EdgeRole `json:"role"`
	Color        string          `json:"color"`
	Path         string          `json:"path"`
}

// Render derives the current view from the editor snapshot and the canvas UI state.
func (c *Canvas) Render() View {
	snapshot := c.editor.Snapshot()

	nodes := make(map[string]*models.Node, len(snapshot.Nodes))
	view := View{
		FlowID: c.editor.FlowID(),
		Nodes:  make([]NodeView, 0, len(snapshot.Nodes)),
		Edges:  make([]EdgeView, 0, len(snapshot.Edges)),
	}

	for _, node := range snapshot.Nodes {
		nodes[node.ID] = node
		view.Nodes = append(view.Nodes, NodeView{
			ID:       node.ID,
			Kind:     node.Kind,
			Label:    node.Label,
			Position: node.Position,
			Width:    c.geometry.NodeWidth,
			Height:   c.geometry.NodeHeight,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	view.Revision = c.revision
	view.Dirty = c.dirty

	for _, edge := range snapshot.Edges {
		source, target := nodes[edge.Source], nodes[edge.Target]
		if source == nil || target == nil {
			continue
		}

		semantics := c.semantics(edge.SourceHandle)
		path := BezierPath(c.sourceAnchor(source, edge.SourceHandle), c.targetAnchor(target), c.geometry.Curvature)

		edgeView := EdgeView{
			ID:           edge.ID,
			Source:       edge.Source,
			SourceHandle: edge.SourceHandle,
			Target:       edge.Target,
			TargetHandle: edge.TargetHandle,
			Role:         semantics.Role,
			Color:        semantics.Color,
			Path:         path.SVG(),
			Midpoint:     path.Midpoint(),
			ShowDelete:   c.hovered == edge.ID,
		}

		if semantics.Role.IsBranch() && semantics.HasLabel {
			edgeView.Label = semantics.Label
		}

		view.Edges = append(view.Edges, edgeView)
	}

	view.Preview = c.previewLocked()

	return view
}

func (c *Canvas) previewLocked() *PreviewView {
	if c.pending == nil {
		return nil
	}

	semantics := c.semantics(c.pending.sourceHandle)

	return &PreviewView{
		Source:       c.pending.sourceNode,
		SourceHandle: c.pending.sourceHandle,
		Role:         semantics.Role,
		Color:        semantics.Color,
		Path:         BezierPath(c.pending.from, c.pending.to, c.geometry.Curvature).SVG(),
	}
}
