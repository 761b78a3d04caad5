package models

// EdgeRole is the logical role of an edge, derived from its source handle.
type EdgeRole string

const (
	EdgeRolePlain      EdgeRole = "PLAIN"
	EdgeRoleCondition  EdgeRole = "CONDITION"
	EdgeRoleHumanInput EdgeRole = "HUMAN_INPUT"
)

// IsBranch reports whether the role claims a numbered branch of its source node.
func (r EdgeRole) IsBranch() bool {
	return r == EdgeRoleCondition || r == EdgeRoleHumanInput
}

// Edge is a directed control-flow transition between two nodes.
type Edge struct {
	ID           string `json:"id"            validate:"required"`
	Source       string `json:"source"        validate:"required"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"        validate:"required"`
	TargetHandle string `json:"targetHandle"`
}

// MakeEdgeID builds the deterministic identifier of the edge between two handles.
func MakeEdgeID(source, sourceHandle, target, targetHandle string) string {
	return source + "-" + sourceHandle + "-" + target + "-" + targetHandle
}
