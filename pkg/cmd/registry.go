// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/registry"
)

// NewRegistry registers the built-in node kinds and applies palette overrides.
func NewRegistry(log *slog.Logger, palette map[models.NodeKind]string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaultNodes()

	for kind, color := range palette {
		if err := reg.SetColor(kind, color); err != nil {
			return nil, fmt.Errorf("invalid palette entry: %w", err)
		}
	}

	return reg, nil
}
