package models

import "time"

// ExecutionState is the run state recorded by the execution engine.
type ExecutionState string

const (
	ExecutionStateInProgress ExecutionState = "INPROGRESS"
	ExecutionStateFinished   ExecutionState = "FINISHED"
	ExecutionStateError      ExecutionState = "ERROR"
	ExecutionStateTerminated ExecutionState = "TERMINATED"
	ExecutionStateTimeout    ExecutionState = "TIMEOUT"
	ExecutionStateStopped    ExecutionState = "STOPPED"
)

// Execution is a persisted run of a flow. ExecutionData holds the serialized trace.
type Execution struct {
	ID            string         `json:"id"                    validate:"required"`
	ExecutionData string         `json:"executionData"`
	State         ExecutionState `json:"state"                 validate:"required"`
	AgentflowID   string         `json:"agentflowId"`
	SessionID     string         `json:"sessionId,omitempty"`
	Action        string         `json:"action,omitempty"`
	IsPublic      bool           `json:"isPublic"`
	CreatedDate   time.Time      `json:"createdDate"`
	UpdatedDate   time.Time      `json:"updatedDate"`
	StoppedDate   *time.Time     `json:"stoppedDate,omitempty"`
}

// PublicView returns the projection of the execution that may leave the
// authentication boundary. Session and action details are dropped.
func (e *Execution) PublicView() *Execution {
	return &Execution{
		ID:            e.ID,
		ExecutionData: e.ExecutionData,
		State:         e.State,
		AgentflowID:   e.AgentflowID,
		IsPublic:      e.IsPublic,
		CreatedDate:   e.CreatedDate,
		UpdatedDate:   e.UpdatedDate,
		StoppedDate:   e.StoppedDate,
	}
}

// ExecutionUpdate carries the fields of an execution that may be changed.
type ExecutionUpdate struct {
	IsPublic *bool `json:"isPublic" validate:"required"`
}
