// Package models defines the flow graph and execution record models shared by the console services.
package models

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single step of a flow.
type Node struct {
	ID       string         `json:"id"             validate:"required"`
	Kind     NodeKind       `json:"kind"           validate:"required"`
	Label    string         `json:"label,omitempty"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
}

// Clone returns a copy of the node that shares no maps with the original.
func (n *Node) Clone() *Node {
	clone := *n
	clone.Data = cloneMap(n.Data)

	return &clone
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))

	for k, v := range in {
		switch value := v.(type) {
		case map[string]any:
			out[k] = cloneMap(value)
		case []any:
			out[k] = cloneSlice(value)
		default:
			out[k] = v
		}
	}

	return out
}

func cloneSlice(in []any) []any {
	out := make([]any, len(in))

	for i, v := range in {
		switch value := v.(type) {
		case map[string]any:
			out[i] = cloneMap(value)
		case []any:
			out[i] = cloneSlice(value)
		default:
			out[i] = v
		}
	}

	return out
}
