// Package sharing issues and revokes public links to single executions.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DialogState is the state of the share dialog of one execution.
type DialogState string

const (
	StateClosed DialogState = "CLOSED"
	StateOpen   DialogState = "OPEN"
	StateCopied DialogState = "COPIED"
)

// CopiedDuration is how long the dialog shows the copied acknowledgement.
const CopiedDuration = 2 * time.Second

var (
	// ErrUpdateFailed indicates the store rejected a visibility change.
	ErrUpdateFailed = errors.New("execution visibility update failed")

	// ErrCopyFailed indicates the link could not be copied.
	ErrCopyFailed = errors.New("failed to copy link")
)

// UpdateFailure wraps a store error for a publish or unshare call.
type UpdateFailure struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *UpdateFailure) Error() string {
	return fmt.Sprintf("%s failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *UpdateFailure) Unwrap() error {
	return e.Err
}

func (e *UpdateFailure) Is(target error) bool {
	return target == ErrUpdateFailed
}

// Store changes the visibility of an execution.
type Store interface {
	Update(ctx context.Context, id string, update models.ExecutionUpdate) (*models.Execution, error)
}

// Clipboard receives copied links.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

type Config struct {
	Origin    string
	Store     Store
	Clipboard Clipboard
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

type dialog struct {
	state DialogState
	timer clockwork.Timer
	gen   uint64
}

// Service keeps one share dialog per execution.
type Service struct {
	origin    string
	store     Store
	clipboard Clipboard
	clock     clockwork.Clock
	logger    *slog.Logger
	tracer    trace.Tracer

	mu      sync.Mutex
	dialogs map[string]*dialog
}

func NewService(config Config) *Service {
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	clipboard := config.Clipboard
	if clipboard == nil {
		clipboard = NewMemoryClipboard()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Service{
		origin:    strings.TrimRight(config.Origin, "/"),
		store:     config.Store,
		clipboard: clipboard,
		clock:     clock,
		logger:    logger,
		tracer:    tracer,
		dialogs:   make(map[string]*dialog),
	}
}

// Link returns the public URL of an execution.
func (s *Service) Link(executionID string) string {
	return s.origin + "/execution/" + url.PathEscape(executionID)
}

// Open opens the share dialog. Opening an open dialog does nothing.
func (s *Service) Open(executionID string) DialogState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.dialogs[executionID]; ok {
		return d.state
	}

	s.dialogs[executionID] = &dialog{state: StateOpen}

	return StateOpen
}

// Share copies the public link and shows the copied acknowledgement. It does
// not change the visibility of the execution. Copying again before the
// acknowledgement expires restarts its timer.
func (s *Service) Share(ctx context.Context, executionID string) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "sharing.Share",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
	)
	defer span.End()

	link := s.Link(executionID)

	if err := s.clipboard.Copy(ctx, link); err != nil {
		return "", otelhelper.RecordError(span, fmt.Errorf("%w: %w", ErrCopyFailed, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogs[executionID]
	if !ok {
		d = &dialog{}
		s.dialogs[executionID] = d
	}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.state = StateCopied
	d.timer = s.clock.AfterFunc(CopiedDuration, func() {
		s.expire(executionID, gen)
	})

	s.logger.DebugContext(ctx, "Copied execution link", "execution_id", executionID)

	return link, nil
}

func (s *Service) expire(executionID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogs[executionID]
	if !ok || d.gen != gen || d.state != StateCopied {
		return
	}

	d.state = StateOpen
	d.timer = nil
}

// Publish makes the execution visible to unauthenticated viewers.
func (s *Service) Publish(ctx context.Context, executionID string) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "sharing.Publish",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
	)
	defer span.End()

	if err := s.setPublic(ctx, "Publish", executionID, true); err != nil {
		return "", otelhelper.RecordError(span, err)
	}

	return s.Link(executionID), nil
}

// Unshare hides the execution from unauthenticated viewers and closes its
// dialog. When the store fails the dialog is left as it was.
func (s *Service) Unshare(ctx context.Context, executionID string) error {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "sharing.Unshare",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
	)
	defer span.End()

	if err := s.setPublic(ctx, "Unshare", executionID, false); err != nil {
		return otelhelper.RecordError(span, err)
	}

	s.Close(executionID)

	return nil
}

func (s *Service) setPublic(ctx context.Context, op, executionID string, public bool) error {
	if _, err := s.store.Update(ctx, executionID, models.ExecutionUpdate{IsPublic: &public}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update execution visibility",
			"execution_id", executionID,
			"is_public", public,
			"error", err,
		)

		return &UpdateFailure{Op: op, ExecutionID: executionID, Err: err}
	}

	return nil
}

// Close closes the dialog and cancels a pending acknowledgement.
func (s *Service) Close(executionID string) DialogState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.dialogs[executionID]; ok {
		if d.timer != nil {
			d.timer.Stop()
		}

		delete(s.dialogs, executionID)
	}

	return StateClosed
}

func (s *Service) State(executionID string) DialogState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.dialogs[executionID]; ok {
		return d.state
	}

	return StateClosed
}
