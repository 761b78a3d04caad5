// Package edges derives the logical role, label and color of flow edges from
// their source connection handles.
package edges

import (
	"strconv"
	"strings"

	"github.com/dukex/flowstudio/pkg/models"
)

// Handle is the decoded form of a connection handle such as
// "conditionAgentflow_0-output-2".
type Handle struct {
	Raw string
	// Kind is the node-kind token before the first "_"; empty when there is none.
	Kind models.NodeKind
	// Suffix is the text after the last "-", or the whole handle when it has no "-".
	Suffix string
	// Index is Suffix as a non-negative integer; 0 when Suffix does not parse.
	Index int
	// Parsed is false when Suffix is not a non-negative integer.
	Parsed bool
}

// DecodeHandle splits a connection handle into its node-kind token and branch index.
func DecodeHandle(raw string) Handle {
	handle := Handle{Raw: raw}

	if kind, _, found := strings.Cut(raw, "_"); found {
		handle.Kind = models.NodeKind(kind)
	}

	handle.Suffix = raw[strings.LastIndex(raw, "-")+1:]

	index, err := strconv.ParseUint(handle.Suffix, 10, 31)
	if err == nil {
		handle.Index = int(index)
		handle.Parsed = true
	}

	return handle
}

// Role returns the edge role implied by the handle's node kind.
func (h Handle) Role() models.EdgeRole {
	switch {
	case h.Kind.IsCondition():
		return models.EdgeRoleCondition
	case h.Kind.IsHumanInput():
		return models.EdgeRoleHumanInput
	default:
		return models.EdgeRolePlain
	}
}

// Branch returns the branch the handle claims on its source node. Condition
// handles claim their index and human-input handles claim their outcome, so
// "-output-2" and "-output-02" are the same branch. ok is false for plain handles.
func (h Handle) Branch() (branch string, ok bool) {
	switch h.Role() {
	case models.EdgeRoleCondition:
		return strconv.Itoa(h.Index), true
	case models.EdgeRoleHumanInput:
		return h.outcome(), true
	default:
		return "", false
	}
}

// outcome is proceed only for the exact "0" suffix; anything else rejects.
func (h Handle) outcome() string {
	if h.Suffix == "0" {
		return LabelProceed
	}

	return LabelReject
}
