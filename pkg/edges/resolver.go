package edges

import (
	"strconv"

	"github.com/dukex/flowstudio/pkg/models"
)

const (
	LabelProceed = "proceed"
	LabelReject  = "reject"
)

// Palette supplies display colors for node kinds.
type Palette interface {
	Color(kind models.NodeKind) (string, bool)
}

// Semantics is what an edge means, derived from its source handle.
type Semantics struct {
	Role     models.EdgeRole `json:"role"`
	Label    string          `json:"label,omitempty"`
	HasLabel bool            `json:"-"`
	Color    string          `json:"color"`
	Kind     models.NodeKind `json:"kind,omitempty"`
	Index    int             `json:"index"`
	// Malformed marks branch handles whose suffix is not a valid branch index
	// for the role. The label still falls back to the lenient value.
	Malformed bool `json:"malformed,omitempty"`
}

// Resolver resolves edge semantics. It holds no mutable state.
type Resolver struct {
	palette      Palette
	primaryColor string
}

// NewResolver creates a resolver. primaryColor is used for kinds missing from the palette.
func NewResolver(palette Palette, primaryColor string) *Resolver {
	return &Resolver{
		palette:      palette,
		primaryColor: primaryColor,
	}
}

// Resolve returns the role, label and color of an edge leaving sourceHandle.
func (r *Resolver) Resolve(sourceHandle string) Semantics {
	handle := DecodeHandle(sourceHandle)

	semantics := Semantics{
		Role:  handle.Role(),
		Kind:  handle.Kind,
		Color: r.color(handle.Kind),
	}

	switch semantics.Role {
	case models.EdgeRoleCondition:
		semantics.Index = handle.Index
		semantics.Label = strconv.Itoa(handle.Index)
		semantics.HasLabel = true
		semantics.Malformed = !handle.Parsed
	case models.EdgeRoleHumanInput:
		semantics.Index = handle.Index
		semantics.HasLabel = true
		semantics.Malformed = !handle.Parsed || handle.Index > 1
		semantics.Label = handle.outcome()
	case models.EdgeRolePlain:
	}

	return semantics
}

// Role is a shortcut for Resolve(sourceHandle).Role.
func (r *Resolver) Role(sourceHandle string) models.EdgeRole {
	return DecodeHandle(sourceHandle).Role()
}

func (r *Resolver) color(kind models.NodeKind) string {
	if r.palette != nil && kind != "" {
		if color, ok := r.palette.Color(kind); ok {
			return color
		}
	}

	return r.primaryColor
}
