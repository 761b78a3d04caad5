package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/flowstudio/pkg/canvas"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
public_origin: https://console.example.com
theme:
  primary_color: "#673ab7"
  dark_mode: true
canvas:
  handle_spacing: 30
palette:
  llmAgentflow: "#64B5F6"
session:
  idle_timeout: 10m
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://console.example.com", config.PublicOrigin)
	assert.Equal(t, "#673ab7", config.Theme.PrimaryColor)
	assert.Equal(t, DefaultDarkPrimaryColor, config.Theme.AccentColor())
	assert.Equal(t, float64(30), config.Canvas.HandleSpacing)
	assert.Equal(t, canvas.DefaultGeometry().NodeWidth, config.Canvas.NodeWidth)
	assert.Equal(t, "#64B5F6", config.Palette[models.NodeKindLLM])
	assert.Equal(t, 10*time.Minute, config.Session.IdleTimeout)
	assert.Equal(t, DefaultJanitorSchedule, config.Session.JanitorSchedule)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "theme: [unterminated"},
		{name: "bad accent", content: "theme:\n  primary_color: blue\n"},
		{name: "bad palette color", content: "palette:\n  llmAgentflow: not-a-color\n"},
		{name: "bad origin", content: "public_origin: console\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))

			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	config, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), config)

	config, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPrimaryColor, config.Theme.AccentColor())

	_, err = LoadOrDefault(writeConfig(t, "theme:\n  primary_color: blue\n"))
	assert.Error(t, err)
}
