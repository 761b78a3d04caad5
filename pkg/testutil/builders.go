// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/google/uuid"
)

// CreateTestFlow creates a small condition flow with default values that can be overridden.
func CreateTestFlow(overrides ...func(*models.Flow)) *models.Flow {
	flow := &models.Flow{
		ID:   uuid.New().String(),
		Name: "Test Flow",
		Nodes: []*models.Node{
			{ID: "startAgentflow_0", Kind: models.NodeKindStart, Label: "Start", Position: models.Position{X: 0, Y: 0}},
			{ID: "conditionAgentflow_0", Kind: models.NodeKindCondition, Label: "Condition", Position: models.Position{X: 400, Y: 0}},
			{ID: "llmAgentflow_0", Kind: models.NodeKindLLM, Label: "LLM", Position: models.Position{X: 800, Y: 0}},
			{ID: "llmAgentflow_1", Kind: models.NodeKindLLM, Label: "LLM", Position: models.Position{X: 800, Y: 200}},
		},
		Edges: []*models.Edge{
			edge("startAgentflow_0", "startAgentflow_0-output-startAgentflow", "conditionAgentflow_0", "conditionAgentflow_0"),
			edge("conditionAgentflow_0", "conditionAgentflow_0-output-0", "llmAgentflow_0", "llmAgentflow_0"),
		},
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

func edge(source, sourceHandle, target, targetHandle string) *models.Edge {
	return &models.Edge{
		ID:           models.MakeEdgeID(source, sourceHandle, target, targetHandle),
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	}
}

// WithFlowName sets the flow name.
func WithFlowName(name string) func(*models.Flow) {
	return func(f *models.Flow) {
		f.Name = name
	}
}

// CreateTestExecution creates a finished execution with a serialized trace.
func CreateTestExecution(flowID string, overrides ...func(*models.Execution)) *models.Execution {
	created := time.Now().UTC().Truncate(time.Millisecond)

	execution := &models.Execution{
		ID:            uuid.New().String(),
		ExecutionData: `[{"nodeId":"startAgentflow_0","nodeLabel":"Start","status":"FINISHED","previousNodeIds":[],"data":{}}]`,
		State:         models.ExecutionStateFinished,
		AgentflowID:   flowID,
		SessionID:     uuid.New().String(),
		Action:        `{"id":"approve"}`,
		CreatedDate:   created,
		UpdatedDate:   created,
	}

	for _, override := range overrides {
		override(execution)
	}

	return execution
}

// WithPublic marks the execution as public.
func WithPublic() func(*models.Execution) {
	return func(e *models.Execution) {
		e.IsPublic = true
	}
}

// WithCreatedDate sets the creation date.
func WithCreatedDate(created time.Time) func(*models.Execution) {
	return func(e *models.Execution) {
		e.CreatedDate = created
		e.UpdatedDate = created
	}
}
