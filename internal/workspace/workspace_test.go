package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/engine/enginetest"
	"github.com/catherinevee/stateops/internal/environment"
)

var wsTarget = environment.PhaseTarget{Phase: "infra", Dir: "/envs/dev/infra"}

func TestParseList(t *testing.T) {
	out := "  default\n* staging\n  review-42\n"

	workspaces := parseList(out, "infra")
	require.Len(t, workspaces, 3)

	assert.Equal(t, "default", workspaces[0].Name)
	assert.False(t, workspaces[0].Current)
	assert.Equal(t, "staging", workspaces[1].Name)
	assert.True(t, workspaces[1].Current)
	assert.Equal(t, "infra", workspaces[2].Phase)
}

func TestList(t *testing.T) {
	fake := &enginetest.Fake{
		Workspaces: map[string][]string{wsTarget.Dir: {"default", "preview"}},
	}
	manager := NewManager(fake)

	workspaces, err := manager.List(context.Background(), wsTarget)
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
	assert.True(t, workspaces[0].Current)
	assert.Equal(t, "preview", workspaces[1].Name)
}

func TestCreate(t *testing.T) {
	fake := &enginetest.Fake{}
	manager := NewManager(fake)

	require.NoError(t, manager.Create(context.Background(), wsTarget, "preview"))
	assert.Contains(t, fake.Calls, "workspace-new /envs/dev/infra preview")
}

func TestDeleteRefusesDefault(t *testing.T) {
	fake := &enginetest.Fake{}
	manager := NewManager(fake)

	err := manager.Delete(context.Background(), wsTarget, "default")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Empty(t, fake.Calls)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: "staging", wantErr: false},
		{name: "hyphenated", input: "review-42", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
		{name: "space", input: "a b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
