package registry

import "github.com/dukex/flowstudio/pkg/models"

func intPtr(v int) *int { return &v }

// RegisterDefaultNodes registers all built-in node kinds with their palette colors.
func (r *Registry) RegisterDefaultNodes() {
	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindStart,
		Name:        "Start",
		Description: "Starting point of the agentflow",
		Color:       "#7EE787",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindCondition,
		Name:        "Condition",
		Description: "Split flows based on If Else conditions",
		Color:       "#FFB938",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"conditions": {
					Type:        "array",
					Description: "Conditions evaluated in order; each yields one outgoing branch",
					Items:       &models.Property{Type: "object"},
				},
			},
		},
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindConditionAgent,
		Name:        "Condition Agent",
		Description: "Use an agent to pick the branch to follow",
		Color:       "#ff8fab",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"scenarios": {
					Type:  "array",
					Items: &models.Property{Type: "object"},
				},
			},
		},
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindLLM,
		Name:        "LLM",
		Description: "Large language model call",
		Color:       "#64B5F6",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindAgent,
		Name:        "Agent",
		Description: "Dynamically choose and use tools during runtime",
		Color:       "#4DD0E1",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindHumanInput,
		Name:        "Human Input",
		Description: "Request human input, approval or rejection during execution",
		Color:       "#6E6EFD",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"description": {Type: "string"},
				"enableFeedback": {
					Type:    "boolean",
					Default: true,
				},
			},
		},
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindLoop,
		Name:        "Loop",
		Description: "Loop back to a previous node",
		Color:       "#FFA07A",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"loopBackToNode": {Type: "string"},
				"maxLoopCount": {
					Type:    "number",
					Minimum: func() *float64 { v := 1.0; return &v }(),
				},
			},
		},
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindDirectReply,
		Name:        "Direct Reply",
		Description: "Directly reply to the user with a message",
		Color:       "#4DDBBB",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindCustomFunction,
		Name:        "Custom Function",
		Description: "Execute custom function",
		Color:       "#E4B7FF",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindTool,
		Name:        "Tool",
		Description: "Tools allow the flow to interact with external systems",
		Color:       "#d4a373",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindRetriever,
		Name:        "Retriever",
		Description: "Retrieve information from vector database",
		Color:       "#b8bedd",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindHTTP,
		Name:        "HTTP",
		Description: "Send a HTTP request",
		Color:       "#FF7F7F",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"method": {
					Type: "string",
					Enum: []any{"GET", "POST", "PUT", "PATCH", "DELETE"},
				},
				"url": {
					Type:      "string",
					MinLength: intPtr(1),
				},
			},
		},
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindIteration,
		Name:        "Iteration",
		Description: "Execute the nodes within the iteration block through N iterations",
		Color:       "#9C89B8",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindExecuteFlow,
		Name:        "Execute Flow",
		Description: "Execute another flow",
		Color:       "#a3b18a",
	})

	r.Register(&models.NodeKindInfo{
		Kind:        models.NodeKindStickyNote,
		Name:        "Sticky Note",
		Description: "Add notes to the canvas",
		Color:       "#fee440",
	})
}
