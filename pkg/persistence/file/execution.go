package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
)

// ExecutionRepository handles execution record file operations.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

func (er *ExecutionRepository) FetchByID(_ context.Context, executionID string) (*models.Execution, error) {
	return er.read("FetchByID", executionID)
}

func (er *ExecutionRepository) FetchByIDPublic(_ context.Context, executionID string) (*models.Execution, error) {
	execution, err := er.read("FetchByIDPublic", executionID)
	if err != nil {
		return nil, err
	}

	return persistence.PublicOnly("FetchByIDPublic", executionID, execution)
}

func (er *ExecutionRepository) read(op, executionID string) (*models.Execution, error) {
	if err := validateID(executionID); err != nil {
		return nil, persistence.NewExecutionError(op, executionID, err)
	}

	data, err := os.ReadFile(filepath.Join(er.dir(), executionID+".json")) // #nosec G304 -- executionID is validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError(op, executionID, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", executionID, err)
	}

	var execution models.Execution

	err = json.Unmarshal(data, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", executionID, err)
	}

	return &execution, nil
}

// Update changes the visibility of an execution.
func (er *ExecutionRepository) Update(ctx context.Context, executionID string, update models.ExecutionUpdate) (*models.Execution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.read("Update", executionID)
	if err != nil {
		return nil, err
	}

	if !persistence.ApplyUpdate(execution, update) {
		return execution, nil
	}

	execution.UpdatedDate = time.Now().UTC()

	if err := er.write(execution); err != nil {
		return nil, err
	}

	return execution, nil
}

// Save writes an execution record to the file system.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	now := time.Now().UTC()
	if execution.CreatedDate.IsZero() {
		execution.CreatedDate = now
	}

	if execution.UpdatedDate.IsZero() {
		execution.UpdatedDate = now
	}

	return er.write(execution)
}

func (er *ExecutionRepository) write(execution *models.Execution) error {
	err := os.MkdirAll(er.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = os.WriteFile(filepath.Join(er.dir(), execution.ID+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}

// ListByFlow retrieves all executions of a flow, newest first.
func (er *ExecutionRepository) ListByFlow(_ context.Context, flowID string) ([]*models.Execution, error) {
	if _, err := os.Stat(er.dir()); os.IsNotExist(err) {
		return []*models.Execution{}, nil
	}

	entries, err := os.ReadDir(er.dir())
	if err != nil {
		return nil, fmt.Errorf("failed to read executions directory: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		execution, err := er.read("ListByFlow", strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip invalid files
			continue
		}

		if execution.AgentflowID == flowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedDate.After(executions[j].CreatedDate)
	})

	return executions, nil
}
