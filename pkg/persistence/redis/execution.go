package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 5

// ExecutionRepository stores execution records as JSON strings with a sorted
// set of execution ids per flow.
type ExecutionRepository struct {
	client *goredis.Client
	logger *slog.Logger
	prefix string
}

func NewExecutionRepository(client *goredis.Client, logger *slog.Logger, prefix string) *ExecutionRepository {
	return &ExecutionRepository{client: client, logger: logger, prefix: prefix}
}

func (r *ExecutionRepository) key(id string) string {
	return r.prefix + "execution:" + id
}

func (r *ExecutionRepository) flowIndexKey(flowID string) string {
	return r.prefix + "flow:" + flowID + ":executions"
}

func (r *ExecutionRepository) FetchByID(ctx context.Context, id string) (*models.Execution, error) {
	return r.get(ctx, r.client, "FetchByID", id)
}

func (r *ExecutionRepository) FetchByIDPublic(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := r.get(ctx, r.client, "FetchByIDPublic", id)
	if err != nil {
		return nil, err
	}

	return persistence.PublicOnly("FetchByIDPublic", id, execution)
}

func (r *ExecutionRepository) get(ctx context.Context, cmd goredis.Cmdable, op, id string) (*models.Execution, error) {
	data, err := cmd.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewExecutionError(op, id, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	var execution models.Execution

	err = json.Unmarshal(data, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

// Update changes the visibility of an execution with an optimistic WATCH transaction.
func (r *ExecutionRepository) Update(ctx context.Context, id string, update models.ExecutionUpdate) (*models.Execution, error) {
	var updated *models.Execution

	txf := func(tx *goredis.Tx) error {
		execution, err := r.get(ctx, tx, "Update", id)
		if err != nil {
			return err
		}

		if !persistence.ApplyUpdate(execution, update) {
			updated = execution

			return nil
		}

		execution.UpdatedDate = time.Now().UTC()

		data, err := json.Marshal(execution)
		if err != nil {
			return fmt.Errorf("failed to marshal execution %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, r.key(id), data, 0)

			return nil
		})
		if err != nil {
			return err
		}

		updated = execution

		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, txf, r.key(id))
		if errors.Is(err, goredis.TxFailedErr) {
			r.logger.DebugContext(ctx, "Retrying execution update after concurrent write", "execution_id", id, "attempt", attempt)

			continue
		}

		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, fmt.Errorf("failed to update execution %s: too many concurrent writes", id)
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	now := time.Now().UTC()
	if execution.CreatedDate.IsZero() {
		execution.CreatedDate = now
	}

	if execution.UpdatedDate.IsZero() {
		execution.UpdatedDate = now
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.key(execution.ID), data, 0)
		pipe.ZAdd(ctx, r.flowIndexKey(execution.AgentflowID), goredis.Z{
			Score:  float64(execution.CreatedDate.UnixNano()),
			Member: execution.ID,
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.Execution, error) {
	ids, err := r.client.ZRevRange(ctx, r.flowIndexKey(flowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions of flow %s: %w", flowID, err)
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := r.FetchByID(ctx, id)
		if persistence.IsExecutionNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, nil
}
