// Package canvas turns pointer gestures into graph edits and derives what the
// browser draws for an open flow.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/flowstudio/pkg/edges"
	"github.com/dukex/flowstudio/pkg/graph"
	"github.com/dukex/flowstudio/pkg/models"
)

// ErrNoConnection indicates a drag or commit without a connection in progress.
var ErrNoConnection = errors.New("no connection in progress")

// Geometry holds the node box size used to place handles.
type Geometry struct {
	NodeWidth     float64 `yaml:"node_width"     json:"nodeWidth"`
	NodeHeight    float64 `yaml:"node_height"    json:"nodeHeight"`
	HandleSpacing float64 `yaml:"handle_spacing" json:"handleSpacing"`
	Curvature     float64 `yaml:"curvature"      json:"curvature"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		NodeWidth:     300,
		NodeHeight:    60,
		HandleSpacing: 24,
		Curvature:     DefaultCurvature,
	}
}

type Config struct {
	Resolver *edges.Resolver
	Geometry Geometry
	Logger   *slog.Logger
}

// CommitResult reports the outcome of committing a connection gesture.
// Rejections are reported here rather than returned as errors.
type CommitResult struct {
	Accepted bool         `json:"accepted"`
	Edge     *models.Edge `json:"edge,omitempty"`
	Err      error        `json:"-"`
}

type connection struct {
	sourceNode   string
	sourceHandle string
	from         Point
	to           Point
}

// Canvas is the interaction layer over one editor. It never touches the node
// and edge collections directly.
type Canvas struct {
	editor   *graph.Editor
	resolver *edges.Resolver
	geometry Geometry
	logger   *slog.Logger

	mu       sync.Mutex
	hovered  string
	pending  *connection
	revision uint64
	dirty    bool
}

// New creates a canvas and subscribes it to the editor's notifications.
func New(config Config, editor *graph.Editor) *Canvas {
	geometry := config.Geometry
	if geometry.NodeWidth <= 0 || geometry.NodeHeight <= 0 {
		geometry = DefaultGeometry()
	}

	if geometry.Curvature <= 0 {
		geometry.Curvature = DefaultCurvature
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Canvas{
		editor:   editor,
		resolver: config.Resolver,
		geometry: geometry,
		logger:   logger.With("flow_id", editor.FlowID()),
		revision: editor.Revision(),
		dirty:    editor.IsDirty(),
	}

	editor.Subscribe(c)

	return c
}

// BeginConnection starts a connection drag from a source handle.
func (c *Canvas) BeginConnection(nodeID, sourceHandle string) (*PreviewView, error) {
	node, ok := c.editor.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, nodeID)
	}

	from := c.sourceAnchor(node, sourceHandle)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = &connection{
		sourceNode:   nodeID,
		sourceHandle: sourceHandle,
		from:         from,
		to:           from,
	}

	return c.previewLocked(), nil
}

// DragTo moves the loose end of the connection in progress.
func (c *Canvas) DragTo(point Point) (*PreviewView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return nil, ErrNoConnection
	}

	c.pending.to = point

	return c.previewLocked(), nil
}

// CommitConnection hands the connection in progress to the editor. The preview
// is dropped whatever the outcome, so a rejected connection leaves the canvas
// as it was before the drag.
func (c *Canvas) CommitConnection(ctx context.Context, target, targetHandle string) CommitResult {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending == nil {
		return CommitResult{Err: ErrNoConnection}
	}

	edge, err := c.editor.Connect(ctx, graph.ConnectRequest{
		Source:       pending.sourceNode,
		SourceHandle: pending.sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "Connection rejected",
			"source", pending.sourceNode,
			"source_handle", pending.sourceHandle,
			"target", target,
			"error", err,
		)

		return CommitResult{Err: err}
	}

	return CommitResult{Accepted: true, Edge: edge}
}

// CancelConnection drops the connection in progress. It reports whether there was one.
func (c *Canvas) CancelConnection() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	had := c.pending != nil
	c.pending = nil

	return had
}

// DeleteEdge handles the delete gesture on an edge marker.
func (c *Canvas) DeleteEdge(ctx context.Context, edgeID string) bool {
	removed := c.editor.DeleteEdge(ctx, edgeID)
	c.editor.MarkDirty(ctx)

	c.mu.Lock()
	if c.hovered == edgeID {
		c.hovered = ""
	}
	c.mu.Unlock()

	return removed
}

// HoverEdge shows the delete marker of an edge. Unknown edges are ignored.
func (c *Canvas) HoverEdge(edgeID string) bool {
	if !c.hasEdge(edgeID) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.hovered = edgeID

	return true
}

// LeaveEdge hides the delete marker of an edge if it is showing.
func (c *Canvas) LeaveEdge(edgeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hovered == edgeID {
		c.hovered = ""
	}
}

func (c *Canvas) hasEdge(edgeID string) bool {
	for _, edge := range c.editor.Snapshot().Edges {
		if edge.ID == edgeID {
			return true
		}
	}

	return false
}

// OnGraphChanged implements graph.Listener.
func (c *Canvas) OnGraphChanged(ctx context.Context, change graph.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.revision = change.Revision

	if change.Type == graph.ChangeNodeRemoved && c.pending != nil &&
		slices.Contains(change.NodeIDs, c.pending.sourceNode) {
		c.logger.DebugContext(ctx, "Dropping connection from removed node", "node_id", c.pending.sourceNode)
		c.pending = nil
	}

	if c.hovered != "" && slices.Contains(change.EdgeIDs, c.hovered) &&
		(change.Type == graph.ChangeEdgeRemoved || change.Type == graph.ChangeNodeRemoved) {
		c.hovered = ""
	}
}

// OnDirty implements graph.Listener.
func (c *Canvas) OnDirty(_ context.Context, _ string, dirty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirty = dirty
}

func (c *Canvas) semantics(sourceHandle string) edges.Semantics {
	if c.resolver == nil {
		return edges.Semantics{Role: edges.DecodeHandle(sourceHandle).Role()}
	}

	return c.resolver.Resolve(sourceHandle)
}

func (c *Canvas) sourceAnchor(node *models.Node, sourceHandle string) Point {
	anchor := Point{
		X: node.Position.X + c.geometry.NodeWidth,
		Y: node.Position.Y + c.geometry.NodeHeight/2,
	}

	handle := edges.DecodeHandle(sourceHandle)
	if handle.Role().IsBranch() {
		anchor.Y += float64(handle.Index) * c.geometry.HandleSpacing
	}

	return anchor
}

func (c *Canvas) targetAnchor(node *models.Node) Point {
	return Point{
		X: node.Position.X,
		Y: node.Position.Y + c.geometry.NodeHeight/2,
	}
}
