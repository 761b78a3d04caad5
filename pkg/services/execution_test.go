package services

import (
	"errors"
	"testing"

	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/execution"
	"github.com/dukex/flowstudio/pkg/mocks"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/persistence/file"
	"github.com/dukex/flowstudio/pkg/sharing"
	"github.com/dukex/flowstudio/pkg/testutil"
	"github.com/dukex/flowstudio/pkg/viewer"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newExecutionService(t *testing.T) (*Execution, persistence.ExecutionRepository, *mocks.MockEventBus) {
	t.Helper()

	repository := file.NewPersistence(t.TempDir()).ExecutionRepository()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := NewExecution(ExecutionConfig{
		Repository: repository,
		Sharing: sharing.NewService(sharing.Config{
			Origin: "https://console.example.com",
			Store:  repository,
			Clock:  clockwork.NewFakeClock(),
		}),
		Publisher: bus,
	})

	return service, repository, bus
}

func TestExecution_ViewPrivate(t *testing.T) {
	service, repository, _ := newExecutionService(t)

	record := testutil.CreateTestExecution("flow-1")
	require.NoError(t, repository.Save(t.Context(), record))

	view, err := service.View(t.Context(), record.ID, viewer.ModePrivate)
	require.NoError(t, err)

	assert.Equal(t, viewer.StateReady, view.State)
	require.NotNil(t, view.Metadata)

	sessionID, ok := view.Metadata.Get("sessionId")
	assert.True(t, ok)
	assert.Equal(t, record.SessionID, sessionID)
}

func TestExecution_ViewPublicHidesPrivateRecords(t *testing.T) {
	service, repository, _ := newExecutionService(t)

	private := testutil.CreateTestExecution("flow-1")
	public := testutil.CreateTestExecution("flow-1", testutil.WithPublic())
	require.NoError(t, repository.Save(t.Context(), private))
	require.NoError(t, repository.Save(t.Context(), public))

	view, err := service.View(t.Context(), private.ID, viewer.ModePublic)
	require.Error(t, err)
	assert.Equal(t, viewer.StateError, view.State)
	assert.Equal(t, viewer.InvalidExecutionNotice, view.Notice)
	assert.True(t, persistence.IsExecutionNotFound(err))

	view, err = service.View(t.Context(), public.ID, viewer.ModePublic)
	require.NoError(t, err)
	assert.Equal(t, viewer.StateReady, view.State)

	_, ok := view.Metadata.Get("sessionId")
	assert.False(t, ok)
}

func TestExecution_ViewMalformedTrace(t *testing.T) {
	service, repository, _ := newExecutionService(t)

	record := testutil.CreateTestExecution("flow-1")
	record.ExecutionData = "{not json"
	require.NoError(t, repository.Save(t.Context(), record))

	view, err := service.View(t.Context(), record.ID, viewer.ModePrivate)

	assert.True(t, execution.IsMalformedTrace(err))
	assert.Equal(t, viewer.StateError, view.State)
}

func TestExecution_ViewRequiresID(t *testing.T) {
	service, _, _ := newExecutionService(t)

	_, err := service.View(t.Context(), " ", viewer.ModePrivate)

	assert.True(t, IsValidationError(err))
}

func TestExecution_ShareLifecycle(t *testing.T) {
	service, repository, bus := newExecutionService(t)

	record := testutil.CreateTestExecution("flow-1")
	require.NoError(t, repository.Save(t.Context(), record))

	assert.Equal(t, sharing.StateOpen, service.OpenShare(record.ID))

	link, err := service.Share(t.Context(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://console.example.com/execution/"+record.ID, link)
	assert.Equal(t, sharing.StateCopied, service.ShareState(record.ID))

	stored, err := repository.FetchByID(t.Context(), record.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPublic)

	_, err = service.Publish(t.Context(), record.ID)
	require.NoError(t, err)

	public, err := repository.FetchByIDPublic(t.Context(), record.ID)
	require.NoError(t, err)
	assert.True(t, public.IsPublic)

	require.NoError(t, service.Unshare(t.Context(), record.ID))
	assert.Equal(t, sharing.StateClosed, service.ShareState(record.ID))

	_, err = repository.FetchByIDPublic(t.Context(), record.ID)
	assert.True(t, persistence.IsExecutionNotFound(err))

	bus.AssertCalled(t, "Publish", mock.Anything, record.ID, mocks.EventOfType(events.ExecutionLinkCopiedEvent))
	bus.AssertCalled(t, "Publish", mock.Anything, record.ID, mocks.EventOfType(events.ExecutionPublishedEvent))
	bus.AssertCalled(t, "Publish", mock.Anything, record.ID, mocks.EventOfType(events.ExecutionUnsharedEvent))
}

func TestExecution_UnshareMissingExecution(t *testing.T) {
	service, _, bus := newExecutionService(t)

	service.OpenShare("missing")

	err := service.Unshare(t.Context(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, sharing.ErrUpdateFailed))
	assert.True(t, persistence.IsExecutionNotFound(err))
	assert.Equal(t, sharing.StateOpen, service.ShareState("missing"))
	bus.AssertNotCalled(t, "Publish", mock.Anything, "missing", mock.Anything)
}

func TestExecution_ListByFlow(t *testing.T) {
	service, repository, _ := newExecutionService(t)

	require.NoError(t, repository.Save(t.Context(), testutil.CreateTestExecution("flow-1")))
	require.NoError(t, repository.Save(t.Context(), testutil.CreateTestExecution("flow-1")))
	require.NoError(t, repository.Save(t.Context(), testutil.CreateTestExecution("flow-2")))

	executions, err := service.ListByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Len(t, executions, 2)
}
