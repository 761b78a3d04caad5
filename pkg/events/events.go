// Package events defines the notifications published by the console when flows and executions change.
package events

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type EventType string

const Topic = "flowstudio.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Flow editing events.
	GraphChangedEvent EventType = "flow.graph.changed"
	FlowDirtyEvent    EventType = "flow.dirty"
	FlowSavedEvent    EventType = "flow.saved"

	// Execution sharing events.
	ExecutionLinkCopiedEvent EventType = "execution.link.copied"
	ExecutionPublishedEvent  EventType = "execution.published"
	ExecutionUnsharedEvent   EventType = "execution.unshared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type BaseEvent struct {
	ID        string         `json:"id"                 validate:"required"`
	Type      EventType      `json:"type"               validate:"required"`
	Timestamp time.Time      `json:"timestamp"          validate:"required"`
	FlowID    string         `json:"flow_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
	}
}

// GraphChanged is published after a node or edge mutation.
type GraphChanged struct {
	BaseEvent

	Change   string   `json:"change"             validate:"required"`
	Revision uint64   `json:"revision"`
	NodeIDs  []string `json:"node_ids,omitempty"`
	EdgeIDs  []string `json:"edge_ids,omitempty"`
}

func (e GraphChanged) GetType() EventType {
	return GraphChangedEvent
}

func (e GraphChanged) Validate() error {
	return validate.Struct(e)
}

func NewGraphChanged(flowID, change string, revision uint64, nodeIDs, edgeIDs []string) *GraphChanged {
	return &GraphChanged{
		BaseEvent: NewBaseEvent(GraphChangedEvent, flowID),
		Change:    change,
		Revision:  revision,
		NodeIDs:   nodeIDs,
		EdgeIDs:   edgeIDs,
	}
}

// FlowDirty reports a change of the unsaved-changes flag.
type FlowDirty struct {
	BaseEvent

	Dirty bool `json:"dirty"`
}

func (e FlowDirty) GetType() EventType {
	return FlowDirtyEvent
}

func (e FlowDirty) Validate() error {
	return validate.Struct(e)
}

func NewFlowDirty(flowID string, dirty bool) *FlowDirty {
	return &FlowDirty{
		BaseEvent: NewBaseEvent(FlowDirtyEvent, flowID),
		Dirty:     dirty,
	}
}

type FlowSaved struct {
	BaseEvent

	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (e FlowSaved) GetType() EventType {
	return FlowSavedEvent
}

func (e FlowSaved) Validate() error {
	return validate.Struct(e)
}

func NewFlowSaved(flowID, name string, nodeCount, edgeCount int) *FlowSaved {
	return &FlowSaved{
		BaseEvent: NewBaseEvent(FlowSavedEvent, flowID),
		Name:      name,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}

// ExecutionShared is published when a share link is copied, published or
// revoked. Type tells which one happened.
type ExecutionShared struct {
	BaseEvent

	ExecutionID string `json:"execution_id"   validate:"required"`
	Link        string `json:"link,omitempty"`
	IsPublic    bool   `json:"is_public"`
}

func (e ExecutionShared) GetType() EventType {
	return e.Type
}

func (e ExecutionShared) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}

	return validate.Var(string(e.Type), "oneof="+string(ExecutionLinkCopiedEvent)+" "+
		string(ExecutionPublishedEvent)+" "+string(ExecutionUnsharedEvent))
}

// NewExecutionLinkCopied does not change visibility, so IsPublic is left unset.
func NewExecutionLinkCopied(executionID, link string) *ExecutionShared {
	return newExecutionShared(ExecutionLinkCopiedEvent, executionID, link, false)
}

func NewExecutionPublished(executionID, link string) *ExecutionShared {
	return newExecutionShared(ExecutionPublishedEvent, executionID, link, true)
}

func NewExecutionUnshared(executionID string) *ExecutionShared {
	return newExecutionShared(ExecutionUnsharedEvent, executionID, "", false)
}

func newExecutionShared(eventType EventType, executionID, link string, public bool) *ExecutionShared {
	return &ExecutionShared{
		BaseEvent:   NewBaseEvent(eventType, ""),
		ExecutionID: executionID,
		Link:        link,
		IsPublic:    public,
	}
}
