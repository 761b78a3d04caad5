package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowstudio/pkg/edges"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChangeType describes what a graph mutation did.
type ChangeType string

const (
	ChangeNodeAdded   ChangeType = "node_added"
	ChangeNodeMoved   ChangeType = "node_moved"
	ChangeNodeRemoved ChangeType = "node_removed"
	ChangeEdgeAdded   ChangeType = "edge_added"
	ChangeEdgeRemoved ChangeType = "edge_removed"
)

// Change is published after every successful mutation.
type Change struct {
	FlowID   string
	Type     ChangeType
	Revision uint64
	NodeIDs  []string
	EdgeIDs  []string
}

// Listener receives graph notifications. Calls happen outside the editor lock,
// in mutation order, so listeners may read the editor.
type Listener interface {
	OnGraphChanged(ctx context.Context, change Change)
	OnDirty(ctx context.Context, flowID string, dirty bool)
}

// NodeKinds validates node kinds and their data.
type NodeKinds interface {
	Lookup(kind models.NodeKind) (*models.NodeKindInfo, bool)
	ValidateData(kind models.NodeKind, data map[string]any) error
}

// Config holds the collaborators shared by every editor.
type Config struct {
	Resolver *edges.Resolver
	Kinds    NodeKinds
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// ConnectRequest describes a connection drawn between two handles.
type ConnectRequest struct {
	Source       string `json:"source"       validate:"required"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"       validate:"required"`
	TargetHandle string `json:"targetHandle"`
}

// Editor is the graph mutation service for one open flow. All reads and writes
// of the node and edge collections go through it.
type Editor struct {
	flowID   string
	resolver *edges.Resolver
	kinds    NodeKinds
	logger   *slog.Logger
	tracer   trace.Tracer

	mu        sync.Mutex
	graph     *models.FlowGraph
	revision  uint64
	listeners []Listener
	queue     []notification
	draining  bool
}

type notification struct {
	change *Change
	dirty  *bool
}

// NewEditor opens an editor over a copy of graph. The graph must not contain
// dangling edges or two edges claiming the same branch of a node.
func NewEditor(config Config, flowID string, graph *models.FlowGraph) (*Editor, error) {
	if graph == nil {
		graph = &models.FlowGraph{}
	}

	graph = graph.Clone()

	if err := checkIntegrity(graph); err != nil {
		return nil, &MutationError{Op: "Open", FlowID: flowID, Err: err}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Editor{
		flowID:   flowID,
		resolver: config.Resolver,
		kinds:    config.Kinds,
		logger:   logger.With("flow_id", flowID),
		tracer:   tracer,
		graph:    graph,
	}, nil
}

func checkIntegrity(graph *models.FlowGraph) error {
	nodes := make(map[string]struct{}, len(graph.Nodes))
	for _, node := range graph.Nodes {
		if _, exists := nodes[node.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
		}

		nodes[node.ID] = struct{}{}
	}

	edgeIDs := make(map[string]struct{}, len(graph.Edges))
	branches := make(map[string]string)
	for _, edge := range graph.Edges {
		if _, exists := edgeIDs[edge.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateEdge, edge.ID)
		}

		edgeIDs[edge.ID] = struct{}{}

		if _, ok := nodes[edge.Source]; !ok {
			return fmt.Errorf("%w: edge %s source %s", ErrDanglingEdge, edge.ID, edge.Source)
		}

		if _, ok := nodes[edge.Target]; !ok {
			return fmt.Errorf("%w: edge %s target %s", ErrDanglingEdge, edge.ID, edge.Target)
		}

		branch, ok := edges.DecodeHandle(edge.SourceHandle).Branch()
		if !ok {
			continue
		}

		key := edge.Source + "\x00" + branch
		if existing, claimed := branches[key]; claimed {
			return &DuplicateBranchError{Source: edge.Source, SourceHandle: edge.SourceHandle, ExistingEdgeID: existing}
		}

		branches[key] = edge.ID
	}

	return nil
}

// FlowID returns the id of the flow being edited.
func (e *Editor) FlowID() string {
	return e.flowID
}

// Subscribe registers a listener for graph and dirty notifications.
func (e *Editor) Subscribe(listener Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, listener)
}

// Snapshot returns a deep copy of the current graph.
func (e *Editor) Snapshot() *models.FlowGraph {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.graph.Clone()
}

// Revision returns the number of mutations applied since the editor was opened.
func (e *Editor) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.revision
}

// IsDirty reports whether the graph has unsaved mutations.
func (e *Editor) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.graph.Dirty
}

// Node returns a copy of the node with the given id.
func (e *Editor) Node(nodeID string) (*models.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := e.nodeIndex(nodeID)
	if index < 0 {
		return nil, false
	}

	return e.graph.Nodes[index].Clone(), true
}

// AddNode inserts a node after validating its id, kind and data.
func (e *Editor) AddNode(ctx context.Context, node *models.Node) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "graph.AddNode",
		attribute.String(otelhelper.FlowIDKey, e.flowID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
	)
	defer span.End()

	if err := e.validateNode(node); err != nil {
		return otelhelper.RecordError(span, &MutationError{Op: "AddNode", FlowID: e.flowID, Err: err})
	}

	e.mu.Lock()

	if e.nodeIndex(node.ID) >= 0 {
		e.mu.Unlock()

		return otelhelper.RecordError(span, &MutationError{
			Op:     "AddNode",
			FlowID: e.flowID,
			Err:    fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID),
		})
	}

	e.graph.Nodes = append(e.graph.Nodes, node.Clone())
	e.commit(ChangeNodeAdded, []string{node.ID}, nil)

	e.mu.Unlock()
	e.drain(ctx)

	return nil
}

func (e *Editor) validateNode(node *models.Node) error {
	if node.ID == "" {
		return fmt.Errorf("%w: node id is required", ErrInvalidNode)
	}

	if e.kinds == nil {
		return nil
	}

	if _, ok := e.kinds.Lookup(node.Kind); !ok {
		return fmt.Errorf("%w: unknown node kind %q", ErrInvalidNode, node.Kind)
	}

	if err := e.kinds.ValidateData(node.Kind, node.Data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNode, err)
	}

	return nil
}

// MoveNode updates the canvas position of a node.
func (e *Editor) MoveNode(ctx context.Context, nodeID string, position models.Position) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "graph.MoveNode",
		attribute.String(otelhelper.FlowIDKey, e.flowID),
		attribute.String(otelhelper.NodeIDKey, nodeID),
	)
	defer span.End()

	e.mu.Lock()

	index := e.nodeIndex(nodeID)
	if index < 0 {
		e.mu.Unlock()

		return otelhelper.RecordError(span, &MutationError{Op: "MoveNode", FlowID: e.flowID, Err: fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)})
	}

	e.graph.Nodes[index].Position = position
	e.commit(ChangeNodeMoved, []string{nodeID}, nil)

	e.mu.Unlock()
	e.drain(ctx)

	return nil
}

// Connect inserts the edge described by req. Validation happens before any
// change: both nodes must exist, the edge id must be free and a condition or
// human-input branch may be claimed by only one edge.
func (e *Editor) Connect(ctx context.Context, req ConnectRequest) (*models.Edge, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "graph.Connect",
		attribute.String(otelhelper.FlowIDKey, e.flowID),
		attribute.String(otelhelper.SourceHandleKey, req.SourceHandle),
	)
	defer span.End()

	e.mu.Lock()

	edge, err := e.validateConnection(req)
	if err != nil {
		e.mu.Unlock()

		return nil, otelhelper.RecordError(span, &MutationError{Op: "Connect", FlowID: e.flowID, Err: err})
	}

	e.graph.Edges = append(e.graph.Edges, edge)
	e.commit(ChangeEdgeAdded, nil, []string{edge.ID})

	e.mu.Unlock()

	span.SetAttributes(attribute.String(otelhelper.EdgeIDKey, edge.ID))
	e.drain(ctx)

	created := *edge

	return &created, nil
}

func (e *Editor) validateConnection(req ConnectRequest) (*models.Edge, error) {
	if e.nodeIndex(req.Source) < 0 {
		return nil, fmt.Errorf("%w: source %s", ErrNodeNotFound, req.Source)
	}

	if e.nodeIndex(req.Target) < 0 {
		return nil, fmt.Errorf("%w: target %s", ErrNodeNotFound, req.Target)
	}

	semantics := e.semantics(req.SourceHandle)

	if branch, ok := edges.DecodeHandle(req.SourceHandle).Branch(); ok {
		for _, existing := range e.graph.Edges {
			if existing.Source != req.Source {
				continue
			}

			if claimed, ok := edges.DecodeHandle(existing.SourceHandle).Branch(); ok && claimed == branch {
				return nil, &DuplicateBranchError{
					Source:         req.Source,
					SourceHandle:   req.SourceHandle,
					ExistingEdgeID: existing.ID,
				}
			}
		}

		if semantics.Malformed {
			e.logger.Warn("Connecting malformed branch handle",
				"source", req.Source,
				"source_handle", req.SourceHandle,
				"label", semantics.Label,
			)
		}
	}

	edge := &models.Edge{
		ID:           models.MakeEdgeID(req.Source, req.SourceHandle, req.Target, req.TargetHandle),
		Source:       req.Source,
		SourceHandle: req.SourceHandle,
		Target:       req.Target,
		TargetHandle: req.TargetHandle,
	}

	if e.edgeIndex(edge.ID) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEdge, edge.ID)
	}

	return edge, nil
}

func (e *Editor) semantics(sourceHandle string) edges.Semantics {
	if e.resolver == nil {
		handle := edges.DecodeHandle(sourceHandle)

		return edges.Semantics{Role: handle.Role(), Index: handle.Index}
	}

	return e.resolver.Resolve(sourceHandle)
}

// DeleteEdge removes the edge with the given id. Deleting an absent edge is a
// no-op and reports false.
func (e *Editor) DeleteEdge(ctx context.Context, edgeID string) bool {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "graph.DeleteEdge",
		attribute.String(otelhelper.FlowIDKey, e.flowID),
		attribute.String(otelhelper.EdgeIDKey, edgeID),
	)
	defer span.End()

	e.mu.Lock()

	index := e.edgeIndex(edgeID)
	if index < 0 {
		e.mu.Unlock()

		return false
	}

	e.graph.Edges = append(e.graph.Edges[:index], e.graph.Edges[index+1:]...)
	e.commit(ChangeEdgeRemoved, nil, []string{edgeID})

	e.mu.Unlock()
	e.drain(ctx)

	return true
}

// DeleteNode removes a node together with every edge that starts or ends at it.
func (e *Editor) DeleteNode(ctx context.Context, nodeID string) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "graph.DeleteNode",
		attribute.String(otelhelper.FlowIDKey, e.flowID),
		attribute.String(otelhelper.NodeIDKey, nodeID),
	)
	defer span.End()

	e.mu.Lock()

	index := e.nodeIndex(nodeID)
	if index < 0 {
		e.mu.Unlock()

		return otelhelper.RecordError(span, &MutationError{
			Op:     "DeleteNode",
			FlowID: e.flowID,
			Err:    fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID),
		})
	}

	var removed []string

	kept := make([]*models.Edge, 0, len(e.graph.Edges))

	for _, edge := range e.graph.Edges {
		if edge.Source == nodeID || edge.Target == nodeID {
			removed = append(removed, edge.ID)

			continue
		}

		kept = append(kept, edge)
	}

	e.graph.Edges = kept
	e.graph.Nodes = append(e.graph.Nodes[:index], e.graph.Nodes[index+1:]...)
	e.commit(ChangeNodeRemoved, []string{nodeID}, removed)

	e.mu.Unlock()
	e.drain(ctx)

	return nil
}

// MarkDirty flags the graph as having unsaved changes and notifies listeners.
func (e *Editor) MarkDirty(ctx context.Context) {
	e.setDirty(ctx, true)
}

// MarkSaved acknowledges that the current graph was persisted and clears the dirty flag.
func (e *Editor) MarkSaved(ctx context.Context) {
	e.setDirty(ctx, false)
}

func (e *Editor) setDirty(ctx context.Context, dirty bool) {
	e.mu.Lock()
	e.graph.Dirty = dirty
	e.queue = append(e.queue, notification{dirty: &dirty})
	e.mu.Unlock()

	e.drain(ctx)
}

// commit bumps the revision, marks the graph dirty and queues notifications.
// Must be called with e.mu held.
func (e *Editor) commit(changeType ChangeType, nodeIDs, edgeIDs []string) {
	e.revision++
	e.graph.Dirty = true

	dirty := true

	e.queue = append(e.queue,
		notification{change: &Change{
			FlowID:   e.flowID,
			Type:     changeType,
			Revision: e.revision,
			NodeIDs:  nodeIDs,
			EdgeIDs:  edgeIDs,
		}},
		notification{dirty: &dirty},
	)
}

// drain delivers queued notifications. Only one goroutine drains at a time, so
// listeners observe notifications in the order mutations were applied even when
// a listener mutates the editor itself.
func (e *Editor) drain(ctx context.Context) {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()

		return
	}

	e.draining = true

	for len(e.queue) > 0 {
		batch := e.queue
		listeners := e.listeners
		e.queue = nil
		e.mu.Unlock()

		for _, n := range batch {
			if n.change != nil {
				e.logger.DebugContext(ctx, "Graph changed", "change", n.change.Type, "revision", n.change.Revision)
			}

			for _, listener := range listeners {
				if n.change != nil {
					listener.OnGraphChanged(ctx, *n.change)
				}

				if n.dirty != nil {
					listener.OnDirty(ctx, e.flowID, *n.dirty)
				}
			}
		}

		e.mu.Lock()
	}

	e.draining = false
	e.mu.Unlock()
}

func (e *Editor) nodeIndex(nodeID string) int {
	for i, node := range e.graph.Nodes {
		if node.ID == nodeID {
			return i
		}
	}

	return -1
}

func (e *Editor) edgeIndex(edgeID string) int {
	for i, edge := range e.graph.Edges {
		if edge.ID == edgeID {
			return i
		}
	}

	return -1
}
