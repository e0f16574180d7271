package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/stateops/internal/apperrors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"infra", "coder"}, cfg.Phases)
	assert.Equal(t, "terraform", cfg.Engine.Binary)
	assert.Equal(t, 15*time.Minute, cfg.Engine.Timeout)
	assert.Equal(t, "AWS_ACCESS_KEY_ID", cfg.Credentials.AccessKeyEnv)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Phases, cfg.Phases)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stateops.yaml")
	content := `
environments_root: /srv/envs
phases: [network, infra, coder]
storage:
  region: fr-par
  endpoint: https://s3.fr-par.scw.cloud
  retention_days: 30
engine:
  binary: tofu
  timeout: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/envs", cfg.EnvironmentsRoot)
	assert.Equal(t, []string{"network", "infra", "coder"}, cfg.Phases)
	assert.Equal(t, "fr-par", cfg.Storage.Region)
	assert.Equal(t, "tofu", cfg.Engine.Binary)
	assert.Equal(t, 5*time.Minute, cfg.Engine.Timeout)
	// Unset sections keep their defaults
	assert.Equal(t, "backups", cfg.Backup.Root)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stateops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phases: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STATEOPS_REGION", "nl-ams")
	t.Setenv("STATEOPS_ENDPOINT", "https://s3.nl-ams.scw.cloud")
	t.Setenv("STATEOPS_ENGINE", "tofu")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "nl-ams", cfg.Storage.Region)
	assert.Equal(t, "https://s3.nl-ams.scw.cloud", cfg.Storage.Endpoint)
	assert.Equal(t, "tofu", cfg.Engine.Binary)
}

func TestValidateRejectsPhaseWithSeparator(t *testing.T) {
	cfg := Default()
	cfg.Phases = []string{"infra", "a/b"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestValidateRejectsEmptyPhases(t *testing.T) {
	cfg := Default()
	cfg.Phases = nil
	assert.Error(t, cfg.Validate())
}

func TestCheckCredentials(t *testing.T) {
	cfg := Default()
	cfg.Credentials.AccessKeyEnv = "STATEOPS_TEST_ACCESS"
	cfg.Credentials.SecretKeyEnv = "STATEOPS_TEST_SECRET"

	t.Run("missing", func(t *testing.T) {
		err := cfg.CheckCredentials()
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePrerequisite))
		assert.Contains(t, err.Error(), "STATEOPS_TEST_ACCESS")
	})

	t.Run("present", func(t *testing.T) {
		t.Setenv("STATEOPS_TEST_ACCESS", "ak")
		t.Setenv("STATEOPS_TEST_SECRET", "sk")
		assert.NoError(t, cfg.CheckCredentials())
	})

	t.Run("project id required when configured", func(t *testing.T) {
		t.Setenv("STATEOPS_TEST_ACCESS", "ak")
		t.Setenv("STATEOPS_TEST_SECRET", "sk")
		cfg.Credentials.ProjectIDEnv = "STATEOPS_TEST_PROJECT"
		defer func() { cfg.Credentials.ProjectIDEnv = "" }()

		err := cfg.CheckCredentials()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STATEOPS_TEST_PROJECT")
	})
}
