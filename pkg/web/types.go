// Package web provides HTTP request and response types for the console API.
package web

import (
	"github.com/dukex/flowstudio/pkg/canvas"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/sharing"
)

// CreateFlowRequest represents the request body for creating a new flow.
type CreateFlowRequest struct {
	Name  string         `json:"name"  validate:"required,min=1"`
	Nodes []*models.Node `json:"nodes" validate:"dive"`
	Edges []*models.Edge `json:"edges" validate:"dive"`
}

// AddNodeRequest represents the request body for adding a node to an open flow.
// A missing ID is generated from the kind.
type AddNodeRequest struct {
	ID       string          `json:"id,omitempty"`
	Kind     models.NodeKind `json:"kind"            validate:"required"`
	Label    string          `json:"label,omitempty"`
	Position models.Position `json:"position"`
	Data     map[string]any  `json:"data,omitempty"`
}

type MoveNodeRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// ConnectionRequest starts a connection drag when Node is set and moves its
// loose end when Point is set.
type ConnectionRequest struct {
	Node   string        `json:"node,omitempty"   validate:"required_without=Point"`
	Handle string        `json:"handle,omitempty"`
	Point  *canvas.Point `json:"point,omitempty"`
}

type CommitConnectionRequest struct {
	Target       string `json:"target"       validate:"required"`
	TargetHandle string `json:"targetHandle"`
}

// GraphResponse is the graph of an open flow.
type GraphResponse struct {
	FlowID   string         `json:"flowId"`
	Revision uint64         `json:"revision"`
	Dirty    bool           `json:"dirty"`
	Nodes    []*models.Node `json:"nodes"`
	Edges    []*models.Edge `json:"edges"`
}

type ShareResponse struct {
	ExecutionID string              `json:"executionId"`
	State       sharing.DialogState `json:"state"`
	Link        string              `json:"link,omitempty"`
}
