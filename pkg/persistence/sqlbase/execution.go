package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
)

const executionColumns = `
	id
  , execution_data
  , state
  , agentflow_id
  , session_id
  , action
  , is_public
  , created_date
  , updated_date
  , stopped_date
`

// ExecutionRepository handles execution record database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) FetchByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+executionColumns+" FROM executions WHERE id = $1", id)

	return r.scanOne("FetchByID", id, row)
}

// FetchByIDPublic filters on is_public in the query so private rows never leave the database.
func (r *ExecutionRepository) FetchByIDPublic(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+executionColumns+" FROM executions WHERE id = $1 AND is_public = $2", id, true)

	execution, err := r.scanOne("FetchByIDPublic", id, row)
	if err != nil {
		return nil, err
	}

	return persistence.PublicOnly("FetchByIDPublic", id, execution)
}

func (r *ExecutionRepository) scanOne(op, id string, row rowScanner) (*models.Execution, error) {
	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError(op, id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution %s: %w", id, err)
	}

	return execution, nil
}

// Update changes the visibility of an execution.
func (r *ExecutionRepository) Update(ctx context.Context, id string, update models.ExecutionUpdate) (*models.Execution, error) {
	if update.IsPublic != nil {
		result, err := r.db.ExecContext(ctx,
			"UPDATE executions SET is_public = $1, updated_date = $2 WHERE id = $3",
			*update.IsPublic, time.Now().UTC(), id,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update execution %s: %w", id, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows for execution %s: %w", id, err)
		}

		if affected == 0 {
			return nil, persistence.NewExecutionError("Update", id, persistence.ErrExecutionNotFound)
		}
	}

	execution, err := r.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return execution, nil
}

// Save inserts or replaces an execution record.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	now := time.Now().UTC()
	if execution.CreatedDate.IsZero() {
		execution.CreatedDate = now
	}

	if execution.UpdatedDate.IsZero() {
		execution.UpdatedDate = now
	}

	query := `
		INSERT INTO executions (id, execution_data, state, agentflow_id, session_id, action, is_public, created_date, updated_date, stopped_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			execution_data = excluded.execution_data,
			state = excluded.state,
			agentflow_id = excluded.agentflow_id,
			session_id = excluded.session_id,
			action = excluded.action,
			is_public = excluded.is_public,
			updated_date = excluded.updated_date,
			stopped_date = excluded.stopped_date
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.ExecutionData,
		string(execution.State),
		execution.AgentflowID,
		execution.SessionID,
		execution.Action,
		execution.IsPublic,
		execution.CreatedDate,
		execution.UpdatedDate,
		execution.StoppedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

// ListByFlow returns the executions of a flow, newest first.
func (r *ExecutionRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE agentflow_id = $1 ORDER BY created_date DESC",
		flowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions of flow %s: %w", flowID, err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution models.Execution
		state     string
		stopped   sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.ExecutionData,
		&state,
		&execution.AgentflowID,
		&execution.SessionID,
		&execution.Action,
		&execution.IsPublic,
		&execution.CreatedDate,
		&execution.UpdatedDate,
		&stopped,
	)
	if err != nil {
		return nil, err
	}

	execution.State = models.ExecutionState(state)

	if stopped.Valid {
		stoppedDate := stopped.Time
		execution.StoppedDate = &stoppedDate
	}

	return &execution, nil
}
