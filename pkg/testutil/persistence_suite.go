package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPersistenceSuite exercises the behavior every persistence backend must share.
func RunPersistenceSuite(t *testing.T, newPersistence func(t *testing.T) persistence.Persistence) {
	t.Helper()

	t.Run("flow round trip", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()
		repo := p.FlowRepository()

		flow := CreateTestFlow()
		flow.Nodes[2].Data = map[string]any{"model": "gpt-4o", "temperature": 0.2}

		require.NoError(t, repo.Save(ctx, flow))
		assert.False(t, flow.CreatedAt.IsZero())

		loaded, err := repo.GetByID(ctx, flow.ID)
		require.NoError(t, err)
		assert.Equal(t, flow.Name, loaded.Name)
		assert.Equal(t, flow.Nodes, loaded.Nodes)
		assert.Equal(t, flow.Edges, loaded.Edges)

		flow.Name = "Renamed"
		flow.Edges = flow.Edges[:1]
		require.NoError(t, repo.Save(ctx, flow))

		loaded, err = repo.GetByID(ctx, flow.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)
		assert.Len(t, loaded.Edges, 1)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		require.NoError(t, repo.Delete(ctx, flow.ID))

		_, err = repo.GetByID(ctx, flow.ID)
		assert.True(t, persistence.IsFlowNotFound(err))

		err = repo.Delete(ctx, flow.ID)
		assert.True(t, persistence.IsFlowNotFound(err))
	})

	t.Run("missing execution", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()

		_, err := p.ExecutionRepository().FetchByID(ctx, "missing")
		assert.True(t, persistence.IsExecutionNotFound(err))

		public := true
		_, err = p.ExecutionRepository().Update(ctx, "missing", models.ExecutionUpdate{IsPublic: &public})
		assert.True(t, persistence.IsExecutionNotFound(err))
	})

	t.Run("public fetch hides private records and fields", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()
		repo := p.ExecutionRepository()

		private := CreateTestExecution("flow-1")
		public := CreateTestExecution("flow-1", WithPublic())

		require.NoError(t, repo.Save(ctx, private))
		require.NoError(t, repo.Save(ctx, public))

		_, err := repo.FetchByIDPublic(ctx, private.ID)
		assert.True(t, persistence.IsExecutionNotFound(err))

		full, err := repo.FetchByID(ctx, private.ID)
		require.NoError(t, err)
		assert.Equal(t, private.SessionID, full.SessionID)
		assert.Equal(t, private.ExecutionData, full.ExecutionData)

		view, err := repo.FetchByIDPublic(ctx, public.ID)
		require.NoError(t, err)
		assert.True(t, view.IsPublic)
		assert.Equal(t, public.ExecutionData, view.ExecutionData)
		assert.Empty(t, view.SessionID)
		assert.Empty(t, view.Action)
	})

	t.Run("update toggles visibility", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()
		repo := p.ExecutionRepository()

		execution := CreateTestExecution("flow-1", WithPublic())
		require.NoError(t, repo.Save(ctx, execution))

		hidden := false
		updated, err := repo.Update(ctx, execution.ID, models.ExecutionUpdate{IsPublic: &hidden})
		require.NoError(t, err)
		assert.False(t, updated.IsPublic)

		_, err = repo.FetchByIDPublic(ctx, execution.ID)
		assert.True(t, persistence.IsExecutionNotFound(err))

		shown := true
		updated, err = repo.Update(ctx, execution.ID, models.ExecutionUpdate{IsPublic: &shown})
		require.NoError(t, err)
		assert.True(t, updated.IsPublic)
		assert.Equal(t, execution.ExecutionData, updated.ExecutionData)
		assert.Equal(t, execution.SessionID, updated.SessionID)
	})

	t.Run("list by flow", func(t *testing.T) {
		p := newPersistence(t)
		ctx := context.Background()
		repo := p.ExecutionRepository()

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		older := CreateTestExecution("flow-1", WithCreatedDate(base))
		newer := CreateTestExecution("flow-1", WithCreatedDate(base.Add(time.Hour)))
		other := CreateTestExecution("flow-2", WithCreatedDate(base))

		for _, execution := range []*models.Execution{older, newer, other} {
			require.NoError(t, repo.Save(ctx, execution))
		}

		executions, err := repo.ListByFlow(ctx, "flow-1")
		require.NoError(t, err)
		require.Len(t, executions, 2)
		assert.Equal(t, newer.ID, executions[0].ID)
		assert.Equal(t, older.ID, executions[1].ID)

		executions, err = repo.ListByFlow(ctx, "flow-3")
		require.NoError(t, err)
		assert.Empty(t, executions)
	})

	t.Run("health check", func(t *testing.T) {
		p := newPersistence(t)

		assert.NoError(t, p.HealthCheck(context.Background()))
	})
}
