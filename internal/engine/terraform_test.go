package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/stateops/internal/apperrors"
)

// writeStub materializes a shell script standing in for the engine binary
func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub engine scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "engine-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755))
	return path
}

func TestPlanOutcomeMapping(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		wantOutcome PlanOutcome
		wantErr     bool
	}{
		{
			name:        "exit 0 is no changes",
			script:      "exit 0",
			wantOutcome: PlanNoChanges,
		},
		{
			name:        "exit 2 is pending changes, not an error",
			script:      `echo "~ helm_release.coder will be updated"; exit 2`,
			wantOutcome: PlanChanges,
		},
		{
			name:        "exit 1 is an engine failure",
			script:      `echo "Error: no backend configured" >&2; exit 1`,
			wantOutcome: PlanError,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := NewTerraformCLI(writeStub(t, tt.script), 5*time.Second)

			outcome, diff, err := cli.Plan(context.Background(), t.TempDir())
			assert.Equal(t, tt.wantOutcome, outcome)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEngine))
				assert.Contains(t, err.Error(), "no backend configured")
				return
			}
			require.NoError(t, err)
			if tt.wantOutcome == PlanChanges {
				assert.Contains(t, diff, "helm_release.coder")
			}
		})
	}
}

func TestPlanTimeoutSurfacesPromptly(t *testing.T) {
	// The backgrounded child inherits the output pipes and survives the kill
	// at the deadline; the run must still return within the wait delay, not
	// after the child exits.
	cli := NewTerraformCLI(writeStub(t, "sleep 30 &\nwait"), 200*time.Millisecond)

	start := time.Now()
	outcome, _, err := cli.Plan(context.Background(), t.TempDir())
	elapsed := time.Since(start)

	assert.Equal(t, PlanError, outcome)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
	assert.Less(t, elapsed, engineWaitDelay+5*time.Second)
}

func TestVersion(t *testing.T) {
	cli := NewTerraformCLI(writeStub(t, `echo '{"terraform_version":"1.7.3"}'`), 5*time.Second)

	version, err := cli.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.7.3", version)
}

func TestStatePull(t *testing.T) {
	cli := NewTerraformCLI(writeStub(t, `echo '{"version":4,"serial":1,"lineage":"x","resources":[]}'`), 5*time.Second)

	raw, err := cli.StatePull(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lineage":"x"`)
}

func TestPreflight(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		cli := NewTerraformCLI("no-such-engine-binary", 5*time.Second)
		err := cli.Preflight(context.Background(), "")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePrerequisite))
	})

	t.Run("version below minimum", func(t *testing.T) {
		cli := NewTerraformCLI(writeStub(t, `echo '{"terraform_version":"1.2.0"}'`), 5*time.Second)
		err := cli.Preflight(context.Background(), "1.3.0")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePrerequisite))
	})

	t.Run("version meets minimum", func(t *testing.T) {
		cli := NewTerraformCLI(writeStub(t, `echo '{"terraform_version":"1.7.3"}'`), 5*time.Second)
		assert.NoError(t, cli.Preflight(context.Background(), "1.3.0"))
	})
}
