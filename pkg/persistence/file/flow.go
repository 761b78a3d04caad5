package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
)

// FlowRepository handles flow-related file operations.
type FlowRepository struct {
	root string
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (fr *FlowRepository) dir() string {
	return filepath.Join(fr.root, "flows")
}

// GetAll returns every stored flow, most recently created first.
func (fr *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	jsonFiles, err := fs.Glob(os.DirFS(fr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		flow, err := fr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})

	return flows, nil
}

// GetByID retrieves a flow by its ID from the file system.
func (fr *FlowRepository) GetByID(_ context.Context, flowID string) (*models.Flow, error) {
	if err := validateID(flowID); err != nil {
		return nil, persistence.NewFlowError("GetByID", flowID, err)
	}

	body, err := os.ReadFile(filepath.Join(fr.dir(), flowID+".json")) // #nosec G304 -- flowID is validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("GetByID", flowID, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch flow %s: %w", flowID, err)
	}

	var flow models.Flow

	err = json.Unmarshal(body, &flow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow %s: %w", flowID, err)
	}

	return &flow, nil
}

// Save saves a flow to the file system.
func (fr *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	if err := validateID(flow.ID); err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	err := os.MkdirAll(fr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create flows directory: %w", err)
	}

	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow %s: %w", flow.ID, err)
	}

	err = os.WriteFile(filepath.Join(fr.dir(), flow.ID+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write flow %s: %w", flow.ID, err)
	}

	return nil
}

// Delete removes a flow from the file system.
func (fr *FlowRepository) Delete(_ context.Context, flowID string) error {
	if err := validateID(flowID); err != nil {
		return persistence.NewFlowError("Delete", flowID, err)
	}

	err := os.Remove(filepath.Join(fr.dir(), flowID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewFlowError("Delete", flowID, persistence.ErrFlowNotFound)
		}

		return fmt.Errorf("failed to delete flow %s: %w", flowID, err)
	}

	return nil
}
