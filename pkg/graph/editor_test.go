package graph_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukex/flowstudio/pkg/edges"
	"github.com/dukex/flowstudio/pkg/graph"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingListener struct {
	mu      sync.Mutex
	changes []graph.Change
	dirty   []bool
	events  []string
}

func (l *recordingListener) OnGraphChanged(_ context.Context, change graph.Change) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.changes = append(l.changes, change)
	l.events = append(l.events, "change:"+string(change.Type))
}

func (l *recordingListener) OnDirty(_ context.Context, _ string, dirty bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dirty = append(l.dirty, dirty)

	if dirty {
		l.events = append(l.events, "dirty")
	} else {
		l.events = append(l.events, "clean")
	}
}

func newConfig(t *testing.T) graph.Config {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	return graph.Config{
		Resolver: edges.NewResolver(reg, "#2196f3"),
		Kinds:    reg,
		Logger:   slog.Default(),
	}
}

func sampleGraph() *models.FlowGraph {
	return &models.FlowGraph{
		Nodes: []*models.Node{
			{ID: "startAgentflow_0", Kind: models.NodeKindStart},
			{ID: "conditionAgentflow_0", Kind: models.NodeKindCondition},
			{ID: "llmAgentflow_0", Kind: models.NodeKindLLM},
			{ID: "llmAgentflow_1", Kind: models.NodeKindLLM},
			{ID: "humanInputAgentflow_0", Kind: models.NodeKindHumanInput},
		},
	}
}

func newEditor(t *testing.T) (*graph.Editor, *recordingListener) {
	t.Helper()

	editor, err := graph.NewEditor(newConfig(t), "flow-1", sampleGraph())
	require.NoError(t, err)

	listener := &recordingListener{}
	editor.Subscribe(listener)

	return editor, listener
}

func TestNewEditor_RejectsDanglingEdges(t *testing.T) {
	g := sampleGraph()
	g.Edges = []*models.Edge{{ID: "e1", Source: "startAgentflow_0", Target: "missing"}}

	_, err := graph.NewEditor(newConfig(t), "flow-1", g)

	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrDanglingEdge)
}

func TestNewEditor_CopiesInput(t *testing.T) {
	g := sampleGraph()

	editor, err := graph.NewEditor(newConfig(t), "flow-1", g)
	require.NoError(t, err)

	g.Nodes = nil

	assert.Len(t, editor.Snapshot().Nodes, 5)
	assert.False(t, editor.IsDirty())
}

func TestEditor_Connect(t *testing.T) {
	tests := []struct {
		name    string
		req     graph.ConnectRequest
		wantID  string
		wantErr error
	}{
		{
			name: "plain edge",
			req: graph.ConnectRequest{
				Source: "startAgentflow_0", SourceHandle: "startAgentflow_0-output-startAgentflow",
				Target: "llmAgentflow_0", TargetHandle: "llmAgentflow_0",
			},
			wantID: "startAgentflow_0-startAgentflow_0-output-startAgentflow-llmAgentflow_0-llmAgentflow_0",
		},
		{
			name: "condition branch",
			req: graph.ConnectRequest{
				Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-0",
				Target: "llmAgentflow_0", TargetHandle: "llmAgentflow_0",
			},
			wantID: "conditionAgentflow_0-conditionAgentflow_0-output-0-llmAgentflow_0-llmAgentflow_0",
		},
		{
			name:    "unknown source",
			req:     graph.ConnectRequest{Source: "ghost", Target: "llmAgentflow_0"},
			wantErr: graph.ErrNodeNotFound,
		},
		{
			name:    "unknown target",
			req:     graph.ConnectRequest{Source: "startAgentflow_0", Target: "ghost"},
			wantErr: graph.ErrNodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, listener := newEditor(t)

			edge, err := editor.Connect(context.Background(), tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, editor.Snapshot().Edges)
				assert.Empty(t, listener.changes)
				assert.False(t, editor.IsDirty())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, edge.ID)
			assert.Len(t, editor.Snapshot().Edges, 1)
			assert.True(t, editor.IsDirty())
			assert.Equal(t, []string{"change:edge_added", "dirty"}, listener.events)
		})
	}
}

func TestEditor_Connect_RejectsSecondEdgeFromSameBranch(t *testing.T) {
	tests := []struct {
		name   string
		source string
		handle string
		second string
	}{
		{name: "condition", source: "conditionAgentflow_0", handle: "conditionAgentflow_0-output-1"},
		{name: "human input proceed", source: "humanInputAgentflow_0", handle: "humanInputAgentflow_0-output-0"},
		{name: "human input reject", source: "humanInputAgentflow_0", handle: "humanInputAgentflow_0-output-1"},
		{
			name:   "condition index written with leading zero",
			source: "conditionAgentflow_0",
			handle: "conditionAgentflow_0-output-2",
			second: "conditionAgentflow_0-output-02",
		},
		{
			name:   "condition index from another handle prefix",
			source: "conditionAgentflow_0",
			handle: "conditionAgentflow_0-output-1",
			second: "conditionAgentflow_0-else-1",
		},
		{
			name:   "human input reject through out of range suffix",
			source: "humanInputAgentflow_0",
			handle: "humanInputAgentflow_0-output-1",
			second: "humanInputAgentflow_0-output-7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, listener := newEditor(t)
			ctx := context.Background()

			first, err := editor.Connect(ctx, graph.ConnectRequest{
				Source: tt.source, SourceHandle: tt.handle, Target: "llmAgentflow_0", TargetHandle: "llmAgentflow_0",
			})
			require.NoError(t, err)

			before := editor.Snapshot()
			revision := editor.Revision()

			second := tt.second
			if second == "" {
				second = tt.handle
			}

			_, err = editor.Connect(ctx, graph.ConnectRequest{
				Source: tt.source, SourceHandle: second, Target: "llmAgentflow_1", TargetHandle: "llmAgentflow_1",
			})

			require.Error(t, err)
			assert.True(t, graph.IsDuplicateBranch(err))
			assert.True(t, graph.IsConflict(err))

			var branchErr *graph.DuplicateBranchError
			require.True(t, errors.As(err, &branchErr))
			assert.Equal(t, first.ID, branchErr.ExistingEdgeID)

			assert.Equal(t, before.Edges, editor.Snapshot().Edges)
			assert.Equal(t, revision, editor.Revision())
			assert.Len(t, listener.changes, 1)
		})
	}
}

func TestEditor_Connect_PlainHandlesMayFanOut(t *testing.T) {
	editor, _ := newEditor(t)
	ctx := context.Background()

	for _, target := range []string{"llmAgentflow_0", "llmAgentflow_1"} {
		_, err := editor.Connect(ctx, graph.ConnectRequest{
			Source: "startAgentflow_0", SourceHandle: "startAgentflow_0-output-startAgentflow",
			Target: target, TargetHandle: target,
		})
		require.NoError(t, err)
	}

	assert.Len(t, editor.Snapshot().Edges, 2)
}

func TestEditor_Connect_RejectsIdenticalEdge(t *testing.T) {
	editor, _ := newEditor(t)
	ctx := context.Background()
	req := graph.ConnectRequest{
		Source: "startAgentflow_0", SourceHandle: "startAgentflow_0-output-startAgentflow",
		Target: "llmAgentflow_0", TargetHandle: "llmAgentflow_0",
	}

	_, err := editor.Connect(ctx, req)
	require.NoError(t, err)

	_, err = editor.Connect(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrDuplicateEdge)
}

func TestEditor_Connect_HumanInputHasTwoOutcomes(t *testing.T) {
	editor, _ := newEditor(t)
	ctx := context.Background()

	_, err := editor.Connect(ctx, graph.ConnectRequest{
		Source: "humanInputAgentflow_0", SourceHandle: "humanInputAgentflow_0-output-0",
		Target: "llmAgentflow_0", TargetHandle: "llmAgentflow_0",
	})
	require.NoError(t, err)

	_, err = editor.Connect(ctx, graph.ConnectRequest{
		Source: "humanInputAgentflow_0", SourceHandle: "humanInputAgentflow_0-output-1",
		Target: "llmAgentflow_1", TargetHandle: "llmAgentflow_1",
	})
	require.NoError(t, err)

	_, err = editor.Connect(ctx, graph.ConnectRequest{
		Source: "humanInputAgentflow_0", SourceHandle: "humanInputAgentflow_0-output-2",
		Target: "llmAgentflow_1", TargetHandle: "llmAgentflow_0",
	})
	assert.True(t, graph.IsDuplicateBranch(err))
	assert.Len(t, editor.Snapshot().Edges, 2)
}

func TestNewEditor_RejectsDuplicateBranches(t *testing.T) {
	nodes := []*models.Node{
		{ID: "conditionAgentflow_0", Kind: models.NodeKindCondition},
		{ID: "llmAgentflow_0", Kind: models.NodeKindLLM},
		{ID: "llmAgentflow_1", Kind: models.NodeKindLLM},
	}

	_, err := graph.NewEditor(graph.Config{}, "flow-1", &models.FlowGraph{
		Nodes: nodes,
		Edges: []*models.Edge{
			{ID: "a", Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-0", Target: "llmAgentflow_0"},
			{ID: "b", Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-00", Target: "llmAgentflow_1"},
		},
	})
	require.Error(t, err)
	assert.True(t, graph.IsDuplicateBranch(err))

	_, err = graph.NewEditor(graph.Config{}, "flow-1", &models.FlowGraph{
		Nodes: nodes,
		Edges: []*models.Edge{
			{ID: "a", Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-0", Target: "llmAgentflow_0"},
			{ID: "b", Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-1", Target: "llmAgentflow_1"},
		},
	})
	assert.NoError(t, err)
}

func TestEditor_Connect_MalformedHumanInputHandleIsAccepted(t *testing.T) {
	editor, _ := newEditor(t)

	_, err := editor.Connect(context.Background(), graph.ConnectRequest{
		Source: "humanInputAgentflow_0", SourceHandle: "humanInputAgentflow_0-output-7",
		Target: "llmAgentflow_0", TargetHandle: "llmAgentflow_0",
	})

	require.NoError(t, err)
}

func TestEditor_DeleteEdge(t *testing.T) {
	editor, listener := newEditor(t)
	ctx := context.Background()

	edge, err := editor.Connect(ctx, graph.ConnectRequest{
		Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-0",
		Target: "llmAgentflow_0", TargetHandle: "llmAgentflow_0",
	})
	require.NoError(t, err)

	assert.True(t, editor.DeleteEdge(ctx, edge.ID))
	assert.Empty(t, editor.Snapshot().Edges)
	assert.Equal(t, graph.ChangeEdgeRemoved, listener.changes[len(listener.changes)-1].Type)

	// The branch is free again.
	_, err = editor.Connect(ctx, graph.ConnectRequest{
		Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-0",
		Target: "llmAgentflow_1", TargetHandle: "llmAgentflow_1",
	})
	require.NoError(t, err)
}

func TestEditor_DeleteEdge_AbsentIsNoop(t *testing.T) {
	editor, listener := newEditor(t)

	assert.False(t, editor.DeleteEdge(context.Background(), "nope"))
	assert.Empty(t, listener.events)
	assert.False(t, editor.IsDirty())
	assert.Zero(t, editor.Revision())
}

func TestEditor_DeleteNode_CascadesEdges(t *testing.T) {
	editor, listener := newEditor(t)
	ctx := context.Background()

	connect := func(source, handle, target string) {
		t.Helper()

		_, err := editor.Connect(ctx, graph.ConnectRequest{
			Source: source, SourceHandle: handle, Target: target, TargetHandle: target,
		})
		require.NoError(t, err)
	}

	connect("startAgentflow_0", "startAgentflow_0-output-startAgentflow", "conditionAgentflow_0")
	connect("conditionAgentflow_0", "conditionAgentflow_0-output-0", "llmAgentflow_0")
	connect("conditionAgentflow_0", "conditionAgentflow_0-output-1", "llmAgentflow_1")
	connect("llmAgentflow_0", "llmAgentflow_0-output-llmAgentflow", "humanInputAgentflow_0")

	require.NoError(t, editor.DeleteNode(ctx, "conditionAgentflow_0"))

	snapshot := editor.Snapshot()
	assert.Len(t, snapshot.Nodes, 4)
	require.Len(t, snapshot.Edges, 1)
	assert.Equal(t, "llmAgentflow_0", snapshot.Edges[0].Source)

	for _, edge := range snapshot.Edges {
		assert.NotEqual(t, "conditionAgentflow_0", edge.Source)
		assert.NotEqual(t, "conditionAgentflow_0", edge.Target)
	}

	last := listener.changes[len(listener.changes)-1]
	assert.Equal(t, graph.ChangeNodeRemoved, last.Type)
	assert.Equal(t, []string{"conditionAgentflow_0"}, last.NodeIDs)
	assert.Len(t, last.EdgeIDs, 3)
}

func TestEditor_DeleteNode_Unknown(t *testing.T) {
	editor, listener := newEditor(t)

	err := editor.DeleteNode(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, graph.IsNodeNotFound(err))
	assert.Empty(t, listener.events)
}

func TestEditor_AddNode(t *testing.T) {
	tests := []struct {
		name    string
		node    *models.Node
		wantErr error
	}{
		{
			name: "valid http node",
			node: &models.Node{
				ID:   "httpAgentflow_0",
				Kind: models.NodeKindHTTP,
				Data: map[string]any{"method": "GET", "url": "https://example.com"},
			},
		},
		{
			name:    "missing id",
			node:    &models.Node{Kind: models.NodeKindLLM},
			wantErr: graph.ErrInvalidNode,
		},
		{
			name:    "unknown kind",
			node:    &models.Node{ID: "x_0", Kind: "madeUpAgentflow"},
			wantErr: graph.ErrInvalidNode,
		},
		{
			name: "invalid data",
			node: &models.Node{
				ID:   "httpAgentflow_0",
				Kind: models.NodeKindHTTP,
				Data: map[string]any{"method": "TRACE"},
			},
			wantErr: registry.ErrInvalidNodeData,
		},
		{
			name:    "duplicate id",
			node:    &models.Node{ID: "llmAgentflow_0", Kind: models.NodeKindLLM},
			wantErr: graph.ErrDuplicateNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, listener := newEditor(t)

			err := editor.AddNode(context.Background(), tt.node)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, editor.Snapshot().Nodes, 5)
				assert.Empty(t, listener.events)

				return
			}

			require.NoError(t, err)

			node, ok := editor.Node(tt.node.ID)
			require.True(t, ok)
			assert.Equal(t, tt.node.Kind, node.Kind)
			assert.Equal(t, []string{"change:node_added", "dirty"}, listener.events)
		})
	}
}

func TestEditor_MoveNode(t *testing.T) {
	editor, _ := newEditor(t)
	ctx := context.Background()

	require.NoError(t, editor.MoveNode(ctx, "llmAgentflow_0", models.Position{X: 120, Y: 40}))

	node, ok := editor.Node("llmAgentflow_0")
	require.True(t, ok)
	assert.Equal(t, models.Position{X: 120, Y: 40}, node.Position)

	err := editor.MoveNode(ctx, "ghost", models.Position{})
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestEditor_MoveNode_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	config := newConfig(t)
	config.Tracer = provider.Tracer("test")

	editor, err := graph.NewEditor(config, "flow-1", sampleGraph())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, editor.MoveNode(ctx, "llmAgentflow_0", models.Position{X: 1, Y: 2}))
	require.Error(t, editor.MoveNode(ctx, "ghost", models.Position{}))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	for _, span := range spans {
		assert.Equal(t, "graph.MoveNode", span.Name())
	}

	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestEditor_DirtyLifecycle(t *testing.T) {
	editor, listener := newEditor(t)
	ctx := context.Background()

	assert.False(t, editor.IsDirty())

	editor.MarkDirty(ctx)
	assert.True(t, editor.IsDirty())

	editor.MarkSaved(ctx)
	assert.False(t, editor.IsDirty())
	assert.False(t, editor.Snapshot().Dirty)

	assert.Equal(t, []bool{true, false}, listener.dirty)
}

type reentrantListener struct {
	recordingListener
	editor *graph.Editor
	once   sync.Once
}

func (l *reentrantListener) OnGraphChanged(ctx context.Context, change graph.Change) {
	l.recordingListener.OnGraphChanged(ctx, change)

	l.once.Do(func() {
		_ = l.editor.MoveNode(ctx, "llmAgentflow_1", models.Position{X: 1})
	})
}

func TestEditor_ListenerMayMutateEditor(t *testing.T) {
	editor, err := graph.NewEditor(newConfig(t), "flow-1", sampleGraph())
	require.NoError(t, err)

	listener := &reentrantListener{editor: editor}
	editor.Subscribe(listener)

	require.NoError(t, editor.MoveNode(context.Background(), "llmAgentflow_0", models.Position{X: 5}))

	require.Len(t, listener.changes, 2)
	assert.Equal(t, uint64(1), listener.changes[0].Revision)
	assert.Equal(t, uint64(2), listener.changes[1].Revision)
	assert.Equal(t, []string{"change:node_moved", "dirty", "change:node_moved", "dirty"}, listener.events)
}

func TestEditor_ConcurrentConnectsClaimBranchOnce(t *testing.T) {
	editor, _ := newEditor(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for _, target := range []string{"llmAgentflow_0", "llmAgentflow_1", "humanInputAgentflow_0", "startAgentflow_0"} {
		wg.Add(1)

		go func(target string) {
			defer wg.Done()

			_, err := editor.Connect(ctx, graph.ConnectRequest{
				Source: "conditionAgentflow_0", SourceHandle: "conditionAgentflow_0-output-0",
				Target: target, TargetHandle: target,
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(target)
	}

	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, editor.Snapshot().Edges, 1)
}
