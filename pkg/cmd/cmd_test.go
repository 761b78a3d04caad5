package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence/file"
	"github.com/dukex/flowstudio/pkg/persistence/sqlite"
	"github.com/dukex/flowstudio/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"./data":                         "file",
		"file://./data":                  "file",
		"postgres://u:p@localhost/db":    "postgres",
		"postgresql://u:p@localhost/db":  "postgresql",
		"sqlite:///tmp/flowstudio.db":    "sqlite",
		"redis://localhost:6379/0":       "redis",
		"mongodb://localhost:27017/data": "mongodb",
	}

	for url, want := range tests {
		assert.Equal(t, want, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(ctx, slog.Default(), t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)

	p, err = NewPersistence(ctx, slog.Default(), "sqlite://"+filepath.Join(t.TempDir(), "flowstudio.db"))
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Persistence{}, p)
	require.NoError(t, p.Close(ctx))

	_, err = NewPersistence(ctx, slog.Default(), "mongodb://localhost:27017/data")
	assert.Error(t, err)
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus("gochannel", "", slog.Default())
	require.NoError(t, err)
	require.NoError(t, bus.Handle(events.FlowSavedEvent, func(context.Context, any) error { return nil }))
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", "", slog.Default())
	assert.Error(t, err)

	_, err = NewEventBus("nats", "", slog.Default())
	assert.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(slog.Default(), map[models.NodeKind]string{models.NodeKindLLM: "#000000"})
	require.NoError(t, err)

	color, ok := reg.Color(models.NodeKindLLM)
	assert.True(t, ok)
	assert.Equal(t, "#000000", color)

	_, err = NewRegistry(slog.Default(), map[models.NodeKind]string{"mysteryAgentflow": "#000000"})
	assert.ErrorIs(t, err, registry.ErrUnknownNodeKind)
}
