package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowstudio/pkg/canvas"
	"github.com/dukex/flowstudio/pkg/edges"
	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/graph"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSessionIdleTimeout is how long a clean session may stay unused before the janitor closes it.
const DefaultSessionIdleTimeout = 30 * time.Minute

type FlowConfig struct {
	Persistence persistence.Persistence
	Resolver    *edges.Resolver
	Kinds       graph.NodeKinds
	Geometry    canvas.Geometry
	Publisher   eventbus.EventPublisher
	IdleTimeout time.Duration
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Tracer      trace.Tracer
}

// Session is one flow open for editing.
type Session struct {
	Editor *graph.Editor
	Canvas *canvas.Canvas

	name     string
	lastUsed time.Time
}

type Flow struct {
	persistence persistence.Persistence
	resolver    *edges.Resolver
	kinds       graph.NodeKinds
	geometry    canvas.Geometry
	publisher   eventbus.EventPublisher
	idleTimeout time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	tracer      trace.Tracer

	mu       sync.Mutex
	sessions map[string]*Session
	janitor  *cron.Cron
}

// NewFlow creates a new flow service.
func NewFlow(config FlowConfig) *Flow {
	idle := config.IdleTimeout
	if idle <= 0 {
		idle = DefaultSessionIdleTimeout
	}

	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Flow{
		persistence: config.Persistence,
		resolver:    config.Resolver,
		kinds:       config.Kinds,
		geometry:    config.Geometry,
		publisher:   config.Publisher,
		idleTimeout: idle,
		clock:       clock,
		logger:      logger,
		tracer:      tracer,
		sessions:    make(map[string]*Session),
	}
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (f *Flow) List(ctx context.Context) ([]*models.Flow, error) {
	flows, err := f.persistence.FlowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

func (f *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	return f.persistence.FlowRepository().GetByID(ctx, id)
}

// Create stores a new flow. Its graph must be free of dangling edges and
// unknown node kinds, and no two edges may claim the same branch of a node.
func (f *Flow) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, ErrFlowNil
	}

	flow.Name = strings.TrimSpace(flow.Name)
	if flow.Name == "" {
		return nil, ErrFlowNameRequired
	}

	flow.ID = uuid.New().String()

	if _, err := graph.NewEditor(f.editorConfig(), flow.ID, flow.Graph()); err != nil {
		if graph.IsConflict(err) {
			return nil, NewConflictError("Create", "graph_conflict", err)
		}

		return nil, NewValidationError("Create", "invalid_graph", "flow graph is invalid", err)
	}

	for _, node := range flow.Nodes {
		if _, ok := f.kinds.Lookup(node.Kind); !ok {
			return nil, NewValidationError("Create", "unknown_node_kind", "unknown node kind "+string(node.Kind), graph.ErrInvalidNode)
		}
	}

	if flow.Nodes == nil {
		flow.Nodes = []*models.Node{}
	}

	if flow.Edges == nil {
		flow.Edges = []*models.Edge{}
	}

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	return flow, nil
}

// Delete removes a flow and closes its editing session.
func (f *Flow) Delete(ctx context.Context, flowID string) error {
	if err := f.persistence.FlowRepository().Delete(ctx, flowID); err != nil {
		return err
	}

	f.Close(flowID)

	return nil
}

// Open loads a flow into a fresh editor. An already open session of the same
// flow is replaced and its unsaved changes are discarded.
func (f *Flow) Open(ctx context.Context, flowID string) (*Session, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "flow.Open", attribute.String(otelhelper.FlowIDKey, flowID))
	defer span.End()

	flow, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, otelhelper.RecordError(span, err)
	}

	editor, err := graph.NewEditor(f.editorConfig(), flowID, flow.Graph())
	if err != nil {
		return nil, otelhelper.RecordError(span, err)
	}

	if f.publisher != nil {
		editor.Subscribe(eventbus.NewGraphPublisher(f.publisher, f.logger))
	}

	session := &Session{
		Editor: editor,
		Canvas: canvas.New(canvas.Config{
			Resolver: f.resolver,
			Geometry: f.geometry,
			Logger:   f.logger,
		}, editor),
		name:     flow.Name,
		lastUsed: f.clock.Now(),
	}

	f.mu.Lock()
	_, replaced := f.sessions[flowID]
	f.sessions[flowID] = session
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "Opened flow", "flow_id", flowID, "replaced", replaced)

	return session, nil
}

func (f *Flow) editorConfig() graph.Config {
	return graph.Config{
		Resolver: f.resolver,
		Kinds:    f.kinds,
		Logger:   f.logger,
		Tracer:   f.tracer,
	}
}

// Session returns the open session of a flow.
func (f *Flow) Session(flowID string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[flowID]
	if !ok {
		return nil, &ServiceError{Op: "Session", Code: "not_open", Message: "flow " + flowID + " is not open", Err: ErrSessionNotOpen}
	}

	session.lastUsed = f.clock.Now()

	return session, nil
}

// Save persists the open graph and clears the dirty flag. The flag stays set
// when the graph was edited while the save was in progress.
func (f *Flow) Save(ctx context.Context, flowID string) (*models.Flow, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "flow.Save", attribute.String(otelhelper.FlowIDKey, flowID))
	defer span.End()

	session, err := f.Session(flowID)
	if err != nil {
		return nil, otelhelper.RecordError(span, err)
	}

	existing, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, otelhelper.RecordError(span, err)
	}

	revision := session.Editor.Revision()
	snapshot := session.Editor.Snapshot()

	existing.Nodes = snapshot.Nodes
	existing.Edges = snapshot.Edges

	if err := f.persistence.FlowRepository().Save(ctx, existing); err != nil {
		return nil, otelhelper.RecordError(span, fmt.Errorf("failed to save flow: %w", err))
	}

	if session.Editor.Revision() == revision {
		session.Editor.MarkSaved(ctx)
	} else {
		f.logger.WarnContext(ctx, "Flow changed while saving, keeping dirty flag", "flow_id", flowID)
	}

	f.publish(ctx, flowID, events.NewFlowSaved(flowID, existing.Name, len(existing.Nodes), len(existing.Edges)))

	return existing, nil
}

// Close drops the editing session of a flow without saving.
func (f *Flow) Close(flowID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.sessions[flowID]
	delete(f.sessions, flowID)

	return ok
}

// EvictIdle closes clean sessions that were not used within the idle timeout
// and returns their flow IDs. Dirty sessions are never evicted.
func (f *Flow) EvictIdle() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.clock.Now().Add(-f.idleTimeout)

	var evicted []string

	for flowID, session := range f.sessions {
		if session.lastUsed.After(cutoff) || session.Editor.IsDirty() {
			continue
		}

		delete(f.sessions, flowID)
		evicted = append(evicted, flowID)
	}

	if len(evicted) > 0 {
		f.logger.Info("Evicted idle flow sessions", "flow_ids", evicted)
	}

	return evicted
}

// StartJanitor runs EvictIdle on the given cron schedule until StopJanitor is called.
func (f *Flow) StartJanitor(schedule string) error {
	c := cron.New()

	if _, err := c.AddFunc(schedule, func() { f.EvictIdle() }); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	f.mu.Lock()
	f.janitor = c
	f.mu.Unlock()

	c.Start()

	return nil
}

func (f *Flow) StopJanitor() {
	f.mu.Lock()
	c := f.janitor
	f.janitor = nil
	f.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (f *Flow) publish(ctx context.Context, key string, event eventbus.Event) {
	if f.publisher == nil {
		return
	}

	if err := f.publisher.Publish(ctx, key, event); err != nil {
		f.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
