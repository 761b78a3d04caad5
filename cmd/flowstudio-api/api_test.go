package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowstudio/pkg/channels/gochannel"
	"github.com/dukex/flowstudio/pkg/config"
	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/persistence/file"
	"github.com/dukex/flowstudio/pkg/registry"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, bus eventbus.EventBus) *fiber.App {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	api := NewAPI(
		slog.Default(),
		file.NewPersistence(t.TempDir()),
		reg,
		bus,
		config.Default(),
		[]string{"secret"},
		nil,
	)

	return api.App()
}

func get(t *testing.T, app *fiber.App, path string, headers map[string]string) (int, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)

	status, body := get(t, app, "/", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Flowstudio API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t, nil)

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		status, _ := get(t, app, path, nil)
		assert.Equal(t, http.StatusOK, status, path)
	}
}

func TestAPI_PrivateRoutesRequireKey(t *testing.T) {
	app := setupTestApp(t, nil)

	status, _ := get(t, app, "/flows", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := get(t, app, "/flows", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", body)
}

func TestAPIKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, apiKeys([]string{"a, b", "", " c "}))
	assert.Empty(t, apiKeys(nil))
}

func TestLogEvents(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, logEvents(ctx, bus))
	require.NoError(t, bus.Publish(ctx, "flow-1", events.NewFlowDirty("flow-1", true)))
}

func TestLoadDotEnv(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	loadDotEnv(logger, filepath.Join(t.TempDir(), "missing.env"))
	assert.Empty(t, buf.String())

	broken := filepath.Join(t.TempDir(), "broken.env")
	require.NoError(t, os.WriteFile(broken, []byte("FLOWSTUDIO-TEST=1\n"), 0600))

	loadDotEnv(logger, broken)
	assert.Contains(t, buf.String(), "Failed to load .env file")

	valid := filepath.Join(t.TempDir(), "valid.env")
	require.NoError(t, os.WriteFile(valid, []byte("FLOWSTUDIO_TEST_DOTENV=loaded\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("FLOWSTUDIO_TEST_DOTENV") })

	buf.Reset()
	loadDotEnv(logger, valid)
	assert.Empty(t, buf.String())
	assert.Equal(t, "loaded", os.Getenv("FLOWSTUDIO_TEST_DOTENV"))
}
