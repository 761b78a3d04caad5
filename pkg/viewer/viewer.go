// Package viewer loads an execution record and exposes it as a read-only view.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowstudio/pkg/execution"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateLoading State = "LOADING"
	StateReady   State = "READY"
	StateError   State = "ERROR"
)

// Mode selects which affordances the view offers.
type Mode string

const (
	ModePublic  Mode = "public"
	ModePrivate Mode = "private"
)

func (m Mode) IsPublic() bool {
	return m == ModePublic
}

type Affordance string

const (
	AffordanceRefresh Affordance = "refresh"
	AffordanceShare   Affordance = "share"
	AffordanceUnshare Affordance = "unshare"
)

// InvalidExecutionNotice is shown instead of the trace when the viewer is in the ERROR state.
const InvalidExecutionNotice = "Invalid execution"

// ErrFetchFailed indicates the execution record could not be fetched.
var ErrFetchFailed = errors.New("execution fetch failed")

// FetchFailure wraps the error returned by the backing store.
type FetchFailure struct {
	ExecutionID string
	Err         error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("failed to fetch execution %s: %v", e.ExecutionID, e.Err)
}

func (e *FetchFailure) Unwrap() error {
	return e.Err
}

func (e *FetchFailure) Is(target error) bool {
	return target == ErrFetchFailed
}

// Fetcher loads execution records. FetchByIDPublic only returns records that are public.
type Fetcher interface {
	FetchByID(ctx context.Context, id string) (*models.Execution, error)
	FetchByIDPublic(ctx context.Context, id string) (*models.Execution, error)
}

type Config struct {
	Fetcher Fetcher
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// View is the renderable state of the viewer. Trace and Metadata are only set in READY.
type View struct {
	ExecutionID string              `json:"executionId"`
	Mode        Mode                `json:"mode"`
	State       State               `json:"state"`
	IsPublic    bool                `json:"isPublic"`
	Trace       *execution.Trace    `json:"executionData,omitempty"`
	Metadata    *execution.Metadata `json:"metadata,omitempty"`
	Notice      string              `json:"notice,omitempty"`
	Error       error               `json:"-"`
	Affordances []Affordance        `json:"affordances"`
}

// Viewer shows one execution at a time. Every Refresh is tagged with an
// increasing token and only the result of the latest one is kept.
type Viewer struct {
	fetcher Fetcher
	mode    Mode
	logger  *slog.Logger
	tracer  trace.Tracer

	lifetime context.Context
	cancel   context.CancelFunc

	mu          sync.Mutex
	token       uint64
	closed      bool
	executionID string
	state       State
	normalized  *execution.Normalized
	isPublic    bool
	err         error
}

func New(config Config, mode Mode) *Viewer {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	lifetime, cancel := context.WithCancel(context.Background())

	return &Viewer{
		fetcher:  config.Fetcher,
		mode:     mode,
		logger:   logger.With("mode", string(mode)),
		tracer:   tracer,
		lifetime: lifetime,
		cancel:   cancel,
		state:    StateLoading,
	}
}

// Refresh clears the current content and fetches executionID again. The
// returned channel is closed once this request has settled, whether its result
// was kept or discarded.
func (v *Viewer) Refresh(ctx context.Context, executionID string) <-chan struct{} {
	done := make(chan struct{})

	v.mu.Lock()

	if v.closed {
		v.mu.Unlock()
		close(done)

		return done
	}

	v.token++
	token := v.token
	v.executionID = executionID
	v.state = StateLoading
	v.normalized = nil
	v.isPublic = false
	v.err = nil

	v.mu.Unlock()

	go func() {
		defer close(done)

		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		stop := context.AfterFunc(v.lifetime, cancel)
		defer stop()

		normalized, isPublic, err := v.load(fetchCtx, executionID, token)
		v.commit(token, normalized, isPublic, err)
	}()

	return done
}

func (v *Viewer) load(ctx context.Context, executionID string, token uint64) (*execution.Normalized, bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, v.tracer, "viewer.Fetch",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.ViewerModeKey, string(v.mode)),
		attribute.Int64(otelhelper.RequestTokenKey, int64(token)),
	)
	defer span.End()

	var (
		record *models.Execution
		err    error
	)

	if v.mode.IsPublic() {
		record, err = v.fetcher.FetchByIDPublic(ctx, executionID)
	} else {
		record, err = v.fetcher.FetchByID(ctx, executionID)
	}

	if err != nil {
		return nil, false, otelhelper.RecordError(span, &FetchFailure{ExecutionID: executionID, Err: err})
	}

	if record == nil {
		return nil, false, otelhelper.RecordError(span, &FetchFailure{ExecutionID: executionID, Err: errors.New("empty response")})
	}

	normalized, err := execution.NormalizeExecution(record)
	if err != nil {
		return nil, false, otelhelper.RecordError(span, err)
	}

	return normalized, record.IsPublic, nil
}

func (v *Viewer) commit(token uint64, normalized *execution.Normalized, isPublic bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || token != v.token {
		v.logger.Debug("Discarding stale execution response", "token", token, "latest", v.token)

		return
	}

	if err != nil {
		v.logger.Warn("Execution could not be shown", "execution_id", v.executionID, "error", err)
		v.state = StateError
		v.err = err

		return
	}

	v.state = StateReady
	v.normalized = normalized
	v.isPublic = isPublic
}

// Close stops the viewer. Responses still in flight are dropped.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closed = true
	v.cancel()
}

func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.state
}

// Err returns why the viewer is in the ERROR state.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.err
}

func (v *Viewer) View() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	view := View{
		ExecutionID: v.executionID,
		Mode:        v.mode,
		State:       v.state,
		Affordances: affordances(v.mode),
	}

	switch v.state {
	case StateReady:
		view.Trace = v.normalized.Trace
		view.Metadata = v.normalized.Metadata
		view.IsPublic = v.isPublic
	case StateError:
		view.Notice = InvalidExecutionNotice
		view.Error = v.err
	case StateLoading:
	}

	return view
}

func affordances(mode Mode) []Affordance {
	if mode.IsPublic() {
		return []Affordance{AffordanceRefresh}
	}

	return []Affordance{AffordanceRefresh, AffordanceShare, AffordanceUnshare}
}
