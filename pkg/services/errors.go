// Package services provides the flow editing and execution viewing services behind the HTTP API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowstudio/pkg/graph"
	"github.com/dukex/flowstudio/pkg/registry"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrFlowNameRequired  = errors.New("flow name is required")
	ErrFlowNil           = errors.New("flow cannot be nil")
	ErrExecutionIDNeeded = errors.New("execution ID is required")

	// Session Errors (409 Conflict).
	ErrSessionNotOpen = errors.New("flow is not open for editing")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrFlowNameRequired) ||
		errors.Is(err, ErrFlowNil) ||
		errors.Is(err, ErrExecutionIDNeeded) ||
		errors.Is(err, graph.ErrInvalidNode) ||
		errors.Is(err, graph.ErrDanglingEdge) ||
		errors.Is(err, registry.ErrUnknownNodeKind) ||
		errors.Is(err, registry.ErrInvalidNodeData)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSessionNotOpen) || graph.IsConflict(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates an error for a request that clashes with existing graph state.
func NewConflictError(op, code string, err error) *ServiceError {
	return &ServiceError{
		Op:   op,
		Code: code,
		Err:  err,
	}
}
