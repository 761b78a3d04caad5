package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/sharing"
	"github.com/dukex/flowstudio/pkg/viewer"
	"go.opentelemetry.io/otel/trace"
)

type ExecutionConfig struct {
	Repository persistence.ExecutionRepository
	Sharing    *sharing.Service
	Publisher  eventbus.EventPublisher
	Logger     *slog.Logger
	Tracer     trace.Tracer
}

// Execution serves execution views and the share dialog.
type Execution struct {
	repository persistence.ExecutionRepository
	sharing    *sharing.Service
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewExecution(config ExecutionConfig) *Execution {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Execution{
		repository: config.Repository,
		sharing:    config.Sharing,
		publisher:  config.Publisher,
		logger:     logger,
		tracer:     config.Tracer,
	}
}

// View loads an execution through a viewer in the given mode and returns the
// settled view. A view in the ERROR state is returned together with its cause.
func (s *Execution) View(ctx context.Context, executionID string, mode viewer.Mode) (viewer.View, error) {
	if strings.TrimSpace(executionID) == "" {
		return viewer.View{}, ErrExecutionIDNeeded
	}

	v := viewer.New(viewer.Config{
		Fetcher: s.repository,
		Logger:  s.logger,
		Tracer:  s.tracer,
	}, mode)
	defer v.Close()

	select {
	case <-v.Refresh(ctx, executionID):
	case <-ctx.Done():
		return viewer.View{}, ctx.Err()
	}

	view := v.View()

	return view, view.Error
}

func (s *Execution) ListByFlow(ctx context.Context, flowID string) ([]*models.Execution, error) {
	executions, err := s.repository.ListByFlow(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

func (s *Execution) OpenShare(executionID string) sharing.DialogState {
	return s.sharing.Open(executionID)
}

func (s *Execution) ShareState(executionID string) sharing.DialogState {
	return s.sharing.State(executionID)
}

func (s *Execution) CloseShare(executionID string) sharing.DialogState {
	return s.sharing.Close(executionID)
}

// Share copies the public link of an execution without changing its visibility.
func (s *Execution) Share(ctx context.Context, executionID string) (string, error) {
	link, err := s.sharing.Share(ctx, executionID)
	if err != nil {
		return "", err
	}

	s.publish(ctx, executionID, events.NewExecutionLinkCopied(executionID, link))

	return link, nil
}

func (s *Execution) Publish(ctx context.Context, executionID string) (string, error) {
	link, err := s.sharing.Publish(ctx, executionID)
	if err != nil {
		return "", err
	}

	s.publish(ctx, executionID, events.NewExecutionPublished(executionID, link))

	return link, nil
}

func (s *Execution) Unshare(ctx context.Context, executionID string) error {
	if err := s.sharing.Unshare(ctx, executionID); err != nil {
		return err
	}

	s.publish(ctx, executionID, events.NewExecutionUnshared(executionID))

	return nil
}

func (s *Execution) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
