// Package persistence provides the storage abstraction for flows and execution records.
package persistence

import (
	"context"

	"github.com/dukex/flowstudio/pkg/models"
)

type Persistence interface {
	FlowRepository() FlowRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores authored flows.
type FlowRepository interface {
	GetAll(ctx context.Context) ([]*models.Flow, error)
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	Save(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution records written by the run engine.
// FetchByIDPublic only finds records with IsPublic set and returns their public view.
type ExecutionRepository interface {
	FetchByID(ctx context.Context, id string) (*models.Execution, error)
	FetchByIDPublic(ctx context.Context, id string) (*models.Execution, error)
	Update(ctx context.Context, id string, update models.ExecutionUpdate) (*models.Execution, error)
	Save(ctx context.Context, execution *models.Execution) error
	ListByFlow(ctx context.Context, flowID string) ([]*models.Execution, error)
}

// ApplyUpdate applies update to execution and reports whether anything changed.
func ApplyUpdate(execution *models.Execution, update models.ExecutionUpdate) bool {
	if update.IsPublic == nil || *update.IsPublic == execution.IsPublic {
		return false
	}

	execution.IsPublic = *update.IsPublic

	return true
}

// PublicOnly returns the public view of execution, or ErrExecutionNotFound when
// the record is not public. Private records are indistinguishable from missing ones.
func PublicOnly(op, id string, execution *models.Execution) (*models.Execution, error) {
	if execution == nil || !execution.IsPublic {
		return nil, NewExecutionError(op, id, ErrExecutionNotFound)
	}

	return execution.PublicView(), nil
}
