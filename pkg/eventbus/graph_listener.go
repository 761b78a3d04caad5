package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/graph"
)

// GraphPublisher forwards editor notifications to the bus, keyed by flow ID.
// Publish failures are logged and never reach the editor.
type GraphPublisher struct {
	publisher EventPublisher
	logger    *slog.Logger
}

func NewGraphPublisher(publisher EventPublisher, logger *slog.Logger) *GraphPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &GraphPublisher{publisher: publisher, logger: logger}
}

func (p *GraphPublisher) OnGraphChanged(ctx context.Context, change graph.Change) {
	event := events.NewGraphChanged(change.FlowID, string(change.Type), change.Revision, change.NodeIDs, change.EdgeIDs)
	p.publish(ctx, change.FlowID, event)
}

func (p *GraphPublisher) OnDirty(ctx context.Context, flowID string, dirty bool) {
	p.publish(ctx, flowID, events.NewFlowDirty(flowID, dirty))
}

func (p *GraphPublisher) publish(ctx context.Context, key string, event Event) {
	if err := p.publisher.Publish(ctx, key, event); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"key", key,
			"error", err,
		)
	}
}
