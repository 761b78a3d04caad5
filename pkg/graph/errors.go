// Package graph owns the canonical node and edge collections of an open flow
// and applies every edit to them.
package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound indicates an operation referenced a node that is not in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates a node id that is already in use.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrDuplicateEdge indicates an edge whose id is already in use.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrDuplicateBranch indicates a connection claiming a branch that another edge already owns.
	ErrDuplicateBranch = errors.New("branch already connected")

	// ErrDanglingEdge indicates an edge whose source or target node is missing.
	ErrDanglingEdge = errors.New("edge references a missing node")

	// ErrInvalidNode indicates a node that failed kind or data validation.
	ErrInvalidNode = errors.New("invalid node")
)

// DuplicateBranchError is returned when a condition or human-input branch is
// connected a second time.
type DuplicateBranchError struct {
	Source         string
	SourceHandle   string
	ExistingEdgeID string
}

func (e *DuplicateBranchError) Error() string {
	return fmt.Sprintf("branch %s of node %s is already connected by edge %s", e.SourceHandle, e.Source, e.ExistingEdgeID)
}

func (e *DuplicateBranchError) Is(target error) bool {
	return target == ErrDuplicateBranch
}

// MutationError wraps a rejected graph operation with its context.
type MutationError struct {
	Op     string // Operation being performed (e.g., "Connect", "DeleteNode")
	FlowID string
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s rejected for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// IsDuplicateBranch checks if an error is a duplicate branch claim.
func IsDuplicateBranch(err error) bool {
	return errors.Is(err, ErrDuplicateBranch)
}

// IsConflict checks if an error is a conflict with the current graph state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateBranch) ||
		errors.Is(err, ErrDuplicateEdge) ||
		errors.Is(err, ErrDuplicateNode)
}

// IsNodeNotFound checks if an error indicates a missing node.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}
