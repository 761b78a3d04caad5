package registry

import (
	"log/slog"
	"testing"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	return reg
}

func TestRegistry_DefaultNodesHaveColors(t *testing.T) {
	reg := newDefaultRegistry(t)

	for _, info := range reg.Kinds() {
		assert.NotEmpty(t, info.Color, "kind %s has no color", info.Kind)
	}

	color, ok := reg.Color(models.NodeKindCondition)
	require.True(t, ok)
	assert.Equal(t, "#FFB938", color)

	color, ok = reg.Color(models.NodeKindHumanInput)
	require.True(t, ok)
	assert.Equal(t, "#6E6EFD", color)
}

func TestRegistry_UnknownKindHasNoColor(t *testing.T) {
	reg := newDefaultRegistry(t)

	_, ok := reg.Color("someCustomNode")
	assert.False(t, ok)

	_, ok = reg.Color("")
	assert.False(t, ok)
}

func TestRegistry_SetColor(t *testing.T) {
	reg := newDefaultRegistry(t)

	require.NoError(t, reg.SetColor(models.NodeKindLLM, "#000000"))

	color, ok := reg.Color(models.NodeKindLLM)
	require.True(t, ok)
	assert.Equal(t, "#000000", color)

	err := reg.SetColor("missing", "#111111")
	require.ErrorIs(t, err, ErrUnknownNodeKind)
}

func TestRegistry_KindsAreSorted(t *testing.T) {
	reg := newDefaultRegistry(t)

	kinds := reg.Kinds()
	require.NotEmpty(t, kinds)

	for i := 1; i < len(kinds); i++ {
		assert.Less(t, string(kinds[i-1].Kind), string(kinds[i].Kind))
	}
}

func TestRegistry_ValidateData(t *testing.T) {
	reg := newDefaultRegistry(t)

	tests := []struct {
		name    string
		kind    models.NodeKind
		data    map[string]any
		wantErr error
	}{
		{
			name: "kind without schema accepts anything",
			kind: models.NodeKindLLM,
			data: map[string]any{"anything": 1},
		},
		{
			name: "nil data is treated as empty object",
			kind: models.NodeKindCondition,
		},
		{
			name: "valid condition data",
			kind: models.NodeKindCondition,
			data: map[string]any{"conditions": []any{map[string]any{"type": "string"}}},
		},
		{
			name:    "conditions must be an array",
			kind:    models.NodeKindCondition,
			data:    map[string]any{"conditions": "yes"},
			wantErr: ErrInvalidNodeData,
		},
		{
			name:    "http method must be in enum",
			kind:    models.NodeKindHTTP,
			data:    map[string]any{"method": "TRACE"},
			wantErr: ErrInvalidNodeData,
		},
		{
			name:    "unknown kind",
			kind:    "mysteryAgentflow",
			wantErr: ErrUnknownNodeKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.ValidateData(tt.kind, tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestRegistry_HealthCheck(t *testing.T) {
	empty := NewRegistry(slog.Default())
	_, ok := empty.HealthCheck()
	assert.False(t, ok)

	reg := newDefaultRegistry(t)
	status, ok := reg.HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "ok", status)
}
