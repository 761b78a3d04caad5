// Package registry provides the catalogue of node kinds known to the console.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrUnknownNodeKind indicates a node kind that was never registered.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrInvalidNodeData indicates node data that does not satisfy the kind schema.
	ErrInvalidNodeData = errors.New("invalid node data")
)

type Registry struct {
	logger *slog.Logger
	mu     sync.RWMutex
	kinds  map[models.NodeKind]*models.NodeKindInfo
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger: log,
		kinds:  make(map[models.NodeKind]*models.NodeKindInfo),
	}
}

// Register adds or replaces a node kind.
func (r *Registry) Register(info *models.NodeKindInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.kinds[info.Kind] = info
	r.logger.Debug("Registered node kind", slog.String("kind", string(info.Kind)))
}

// SetColor overrides the display color of a registered kind.
func (r *Registry) SetColor(kind models.NodeKind, color string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.kinds[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNodeKind, kind)
	}

	updated := *info
	updated.Color = color
	r.kinds[kind] = &updated

	return nil
}

// Lookup returns the registered kind with the given name.
func (r *Registry) Lookup(kind models.NodeKind) (*models.NodeKindInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.kinds[kind]

	return info, ok
}

// Color returns the display color of a kind, or false when the kind is unknown
// or carries no color.
func (r *Registry) Color(kind models.NodeKind) (string, bool) {
	info, ok := r.Lookup(kind)
	if !ok || info.Color == "" {
		return "", false
	}

	return info.Color, true
}

// Kinds returns all registered kinds sorted by name.
func (r *Registry) Kinds() []*models.NodeKindInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]*models.NodeKindInfo, 0, len(r.kinds))
	for _, info := range r.kinds {
		kinds = append(kinds, info)
	}

	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i].Kind < kinds[j].Kind
	})

	return kinds
}

// ValidateData checks node data against the schema of its kind.
func (r *Registry) ValidateData(kind models.NodeKind, data map[string]any) error {
	info, ok := r.Lookup(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNodeKind, kind)
	}

	if info.Schema == nil {
		return nil
	}

	if data == nil {
		data = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(info.Schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate %s data: %w", kind, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidNodeData, strings.Join(details, "; "))
	}

	return nil
}

func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.kinds) == 0 {
		return "no node kinds registered", false
	}

	return "ok", true
}
