// Package config provides configuration loading for the console
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dukex/flowstudio/pkg/canvas"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPrimaryColor     = "#2196f3"
	DefaultDarkPrimaryColor = "#90caf9"
	DefaultJanitorSchedule  = "@every 1m"
)

// ThemeConfig selects the accent color used for edges of kinds without a palette entry.
type ThemeConfig struct {
	PrimaryColor     string `yaml:"primary_color"      validate:"omitempty,hexcolor"`
	DarkPrimaryColor string `yaml:"dark_primary_color" validate:"omitempty,hexcolor"`
	DarkMode         bool   `yaml:"dark_mode"`
}

// AccentColor returns the primary color for the active mode.
func (t ThemeConfig) AccentColor() string {
	if t.DarkMode {
		return t.DarkPrimaryColor
	}

	return t.PrimaryColor
}

type SessionConfig struct {
	IdleTimeout     time.Duration `yaml:"idle_timeout"     validate:"gte=0"`
	JanitorSchedule string        `yaml:"janitor_schedule"`
}

// ConsoleConfig represents the structure of the console.yaml file
type ConsoleConfig struct {
	PublicOrigin string                     `yaml:"public_origin" validate:"omitempty,http_url"`
	Theme        ThemeConfig                `yaml:"theme"`
	Canvas       canvas.Geometry            `yaml:"canvas"`
	Palette      map[models.NodeKind]string `yaml:"palette"       validate:"dive,hexcolor"`
	Session      SessionConfig              `yaml:"session"`
}

// Default returns the configuration used when no file is given.
func Default() ConsoleConfig {
	return ConsoleConfig{
		Theme: ThemeConfig{
			PrimaryColor:     DefaultPrimaryColor,
			DarkPrimaryColor: DefaultDarkPrimaryColor,
		},
		Canvas:  canvas.DefaultGeometry(),
		Palette: map[models.NodeKind]string{},
		Session: SessionConfig{
			JanitorSchedule: DefaultJanitorSchedule,
		},
	}
}

// Load reads a console configuration from a YAML file. Fields missing from
// the file keep their defaults.
func Load(filepath string) (ConsoleConfig, error) {
	config := Default()

	data, err := os.ReadFile(filepath)
	if err != nil {
		return ConsoleConfig{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return ConsoleConfig{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := Validate(config); err != nil {
		return ConsoleConfig{}, err
	}

	return config, nil
}

// LoadOrDefault loads the configuration file, falling back to Default when
// filepath is empty or does not exist. Invalid files are still reported.
func LoadOrDefault(filepath string) (ConsoleConfig, error) {
	if filepath == "" {
		return Default(), nil
	}

	config, err := Load(filepath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return config, err
}

func (c *ConsoleConfig) applyDefaults() {
	defaults := Default()

	if c.Theme.PrimaryColor == "" {
		c.Theme.PrimaryColor = defaults.Theme.PrimaryColor
	}

	if c.Theme.DarkPrimaryColor == "" {
		c.Theme.DarkPrimaryColor = c.Theme.PrimaryColor
	}

	if c.Canvas.NodeWidth <= 0 || c.Canvas.NodeHeight <= 0 {
		c.Canvas = defaults.Canvas
	}

	if c.Palette == nil {
		c.Palette = map[models.NodeKind]string{}
	}

	if c.Session.JanitorSchedule == "" {
		c.Session.JanitorSchedule = defaults.Session.JanitorSchedule
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the console configuration
func Validate(config ConsoleConfig) error {
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid console config: %w", err)
	}

	return nil
}
