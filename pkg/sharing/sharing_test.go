package sharing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/sharing"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Update(ctx context.Context, id string, update models.ExecutionUpdate) (*models.Execution, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func isPublic(want bool) any {
	return mock.MatchedBy(func(update models.ExecutionUpdate) bool {
		return update.IsPublic != nil && *update.IsPublic == want
	})
}

type failingClipboard struct{}

func (failingClipboard) Copy(context.Context, string) error {
	return errors.New("clipboard unavailable")
}

func newService(t *testing.T) (*sharing.Service, *mockStore, *sharing.MemoryClipboard, *clockwork.FakeClock) {
	t.Helper()

	store := &mockStore{}
	clipboard := sharing.NewMemoryClipboard()
	clock := clockwork.NewFakeClock()

	svc := sharing.NewService(sharing.Config{
		Origin:    "https://console.example.com/",
		Store:     store,
		Clipboard: clipboard,
		Clock:     clock,
	})

	return svc, store, clipboard, clock
}

func TestService_Link(t *testing.T) {
	svc, _, _, _ := newService(t)

	assert.Equal(t, "https://console.example.com/execution/e1", svc.Link("e1"))
	assert.Equal(t, svc.Link("e1"), svc.Link("e1"))
	assert.Equal(t, "https://console.example.com/execution/a%2Fb", svc.Link("a/b"))
}

func TestService_OpenIsIdempotent(t *testing.T) {
	svc, _, _, _ := newService(t)

	assert.Equal(t, sharing.StateClosed, svc.State("e1"))
	assert.Equal(t, sharing.StateOpen, svc.Open("e1"))
	assert.Equal(t, sharing.StateOpen, svc.Open("e1"))
	assert.Equal(t, sharing.StateClosed, svc.State("e2"))
}

func TestService_ShareCopiesAndReverts(t *testing.T) {
	svc, store, clipboard, clock := newService(t)
	ctx := context.Background()

	svc.Open("e1")

	link, err := svc.Share(ctx, "e1")
	require.NoError(t, err)

	assert.Equal(t, "https://console.example.com/execution/e1", link)
	assert.Equal(t, link, clipboard.Last())
	assert.Equal(t, sharing.StateCopied, svc.State("e1"))

	clock.Advance(sharing.CopiedDuration)

	assert.Eventually(t, func() bool {
		return svc.State("e1") == sharing.StateOpen
	}, time.Second, 5*time.Millisecond)

	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ShareAgainResetsTimer(t *testing.T) {
	svc, _, clipboard, clock := newService(t)
	ctx := context.Background()

	svc.Open("e1")

	_, err := svc.Share(ctx, "e1")
	require.NoError(t, err)

	clock.Advance(1500 * time.Millisecond)

	_, err = svc.Share(ctx, "e1")
	require.NoError(t, err)

	clock.Advance(time.Second)

	assert.Never(t, func() bool {
		return svc.State("e1") != sharing.StateCopied
	}, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Second)

	assert.Eventually(t, func() bool {
		return svc.State("e1") == sharing.StateOpen
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, clipboard.Copies())
}

func TestService_ShareClipboardFailure(t *testing.T) {
	svc := sharing.NewService(sharing.Config{
		Origin:    "https://console.example.com",
		Clipboard: failingClipboard{},
		Clock:     clockwork.NewFakeClock(),
	})

	svc.Open("e1")

	_, err := svc.Share(context.Background(), "e1")

	require.Error(t, err)
	assert.ErrorIs(t, err, sharing.ErrCopyFailed)
	assert.Equal(t, sharing.StateOpen, svc.State("e1"))
}

func TestService_Unshare(t *testing.T) {
	svc, store, _, _ := newService(t)
	ctx := context.Background()

	store.On("Update", mock.Anything, "e1", isPublic(false)).
		Return(&models.Execution{ID: "e1", IsPublic: false}, nil).Once()

	svc.Open("e1")
	_, err := svc.Share(ctx, "e1")
	require.NoError(t, err)

	require.NoError(t, svc.Unshare(ctx, "e1"))

	assert.Equal(t, sharing.StateClosed, svc.State("e1"))
	store.AssertExpectations(t)
}

func TestService_UnshareFailureKeepsDialog(t *testing.T) {
	svc, store, _, _ := newService(t)
	ctx := context.Background()

	store.On("Update", mock.Anything, "e1", isPublic(false)).
		Return(nil, errors.New("backend unavailable")).Once()

	svc.Open("e1")

	err := svc.Unshare(ctx, "e1")

	require.Error(t, err)
	assert.ErrorIs(t, err, sharing.ErrUpdateFailed)

	var failure *sharing.UpdateFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "e1", failure.ExecutionID)
	assert.Equal(t, sharing.StateOpen, svc.State("e1"))
}

func TestService_Publish(t *testing.T) {
	svc, store, _, _ := newService(t)
	ctx := context.Background()

	store.On("Update", mock.Anything, "e1", isPublic(true)).
		Return(&models.Execution{ID: "e1", IsPublic: true}, nil).Once()
	store.On("Update", mock.Anything, "e2", isPublic(true)).
		Return(nil, errors.New("not found")).Once()

	link, err := svc.Publish(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "https://console.example.com/execution/e1", link)

	_, err = svc.Publish(ctx, "e2")
	assert.ErrorIs(t, err, sharing.ErrUpdateFailed)

	store.AssertExpectations(t)
}

func TestService_CloseCancelsAcknowledgement(t *testing.T) {
	svc, _, _, clock := newService(t)
	ctx := context.Background()

	svc.Open("e1")
	_, err := svc.Share(ctx, "e1")
	require.NoError(t, err)

	assert.Equal(t, sharing.StateClosed, svc.Close("e1"))

	clock.Advance(sharing.CopiedDuration)

	assert.Never(t, func() bool {
		return svc.State("e1") != sharing.StateClosed
	}, 50*time.Millisecond, 5*time.Millisecond)
}
