package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphChanged_JSON(t *testing.T) {
	event := NewGraphChanged("flow-1", "edge_added", 3, nil, []string{"e1"})

	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"flow.graph.changed"`)
	assert.Contains(t, string(data), `"flow_id":"flow-1"`)
	assert.Contains(t, string(data), `"edge_ids":["e1"]`)
	assert.NotContains(t, string(data), "node_ids")
	assert.Equal(t, GraphChangedEvent, event.GetType())
	assert.NotEmpty(t, event.ID)
}

func TestEvents_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   interface{ Validate() error }
		wantErr bool
	}{
		{name: "graph changed", event: NewGraphChanged("flow-1", "node_added", 1, []string{"n1"}, nil)},
		{name: "graph changed without change", event: NewGraphChanged("flow-1", "", 1, nil, nil), wantErr: true},
		{name: "dirty", event: NewFlowDirty("flow-1", true)},
		{name: "saved", event: NewFlowSaved("flow-1", "Support", 2, 1)},
		{name: "link copied", event: NewExecutionLinkCopied("e1", "https://console/execution/e1")},
		{name: "published", event: NewExecutionPublished("e1", "https://console/execution/e1")},
		{name: "unshared", event: NewExecutionUnshared("e1")},
		{name: "unshared without execution", event: NewExecutionUnshared(""), wantErr: true},
		{
			name: "share with foreign type",
			event: &ExecutionShared{
				BaseEvent:   NewBaseEvent(FlowSavedEvent, ""),
				ExecutionID: "e1",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecutionShared_TypeFollowsConstructor(t *testing.T) {
	assert.Equal(t, ExecutionLinkCopiedEvent, NewExecutionLinkCopied("e1", "l").GetType())
	assert.Equal(t, ExecutionPublishedEvent, NewExecutionPublished("e1", "l").GetType())
	assert.Equal(t, ExecutionUnsharedEvent, NewExecutionUnshared("e1").GetType())
	assert.True(t, NewExecutionPublished("e1", "l").IsPublic)
}
