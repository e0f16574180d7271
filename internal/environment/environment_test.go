package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/stateops/internal/apperrors"
)

var testPhases = []string{"infra", "coder"}

func makeEnv(t *testing.T, name string, layout func(root string)) *Environment {
	t.Helper()
	root := t.TempDir()
	envPath := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(envPath, 0755))
	if layout != nil {
		layout(envPath)
	}
	env, err := Discover(root, name)
	require.NoError(t, err)
	return env
}

func phasedLayout(t *testing.T) func(string) {
	t.Helper()
	return func(envPath string) {
		for _, phase := range testPhases {
			require.NoError(t, os.MkdirAll(filepath.Join(envPath, phase), 0755))
		}
	}
}

func legacyLayout(t *testing.T) func(string) {
	t.Helper()
	return func(envPath string) {
		require.NoError(t, os.WriteFile(filepath.Join(envPath, "main.tf"), []byte("# config\n"), 0644))
	}
}

func TestDiscoverRejectsPathSeparators(t *testing.T) {
	_, err := Discover(t.TempDir(), "dev/../../etc")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDiscoverMissingEnvironment(t *testing.T) {
	_, err := Discover(t.TempDir(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestResolveTopology(t *testing.T) {
	t.Run("phased when every phase directory exists", func(t *testing.T) {
		env := makeEnv(t, "dev", phasedLayout(t))
		topo, err := ResolveTopology(env, testPhases)
		require.NoError(t, err)
		assert.Equal(t, TopologyPhased, topo.Kind)
		assert.Equal(t, testPhases, topo.Phases)
	})

	t.Run("legacy when root holds configuration", func(t *testing.T) {
		env := makeEnv(t, "dev", legacyLayout(t))
		topo, err := ResolveTopology(env, testPhases)
		require.NoError(t, err)
		assert.Equal(t, TopologyLegacy, topo.Kind)
		assert.Empty(t, topo.Phases)
	})

	t.Run("partial phase set is not phased", func(t *testing.T) {
		env := makeEnv(t, "dev", func(envPath string) {
			require.NoError(t, os.MkdirAll(filepath.Join(envPath, "infra"), 0755))
		})
		_, err := ResolveTopology(env, testPhases)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTopology))
	})

	t.Run("empty directory is unknown", func(t *testing.T) {
		env := makeEnv(t, "dev", nil)
		_, err := ResolveTopology(env, testPhases)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTopology))
	})

	t.Run("identical layouts classify identically", func(t *testing.T) {
		envA := makeEnv(t, "a", phasedLayout(t))
		envB := makeEnv(t, "b", phasedLayout(t))
		topoA, err := ResolveTopology(envA, testPhases)
		require.NoError(t, err)
		topoB, err := ResolveTopology(envB, testPhases)
		require.NoError(t, err)
		assert.Equal(t, topoA.Kind, topoB.Kind)
		assert.Equal(t, topoA.Phases, topoB.Phases)
	})
}

func TestSelectTargets(t *testing.T) {
	legacyTopo := &Topology{Kind: TopologyLegacy}
	phasedTopo := &Topology{Kind: TopologyPhased, Phases: testPhases}

	t.Run("legacy without flags yields single target", func(t *testing.T) {
		env := makeEnv(t, "dev", legacyLayout(t))
		targets, err := SelectTargets(env, legacyTopo, Selection{})
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Empty(t, targets[0].Phase)
		assert.Equal(t, env.RootPath, targets[0].Dir)
	})

	t.Run("legacy rejects phase flag", func(t *testing.T) {
		env := makeEnv(t, "dev", legacyLayout(t))
		_, err := SelectTargets(env, legacyTopo, Selection{Phase: "infra"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTopology))
	})

	t.Run("legacy rejects all-phases flag", func(t *testing.T) {
		env := makeEnv(t, "dev", legacyLayout(t))
		_, err := SelectTargets(env, legacyTopo, Selection{AllPhases: true})
		require.Error(t, err)
	})

	t.Run("phased requires a selector", func(t *testing.T) {
		env := makeEnv(t, "dev", phasedLayout(t))
		_, err := SelectTargets(env, phasedTopo, Selection{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTopology))
		assert.Contains(t, err.Error(), "phase selector required")
	})

	t.Run("phase and all-phases are mutually exclusive", func(t *testing.T) {
		env := makeEnv(t, "dev", phasedLayout(t))
		_, err := SelectTargets(env, phasedTopo, Selection{Phase: "infra", AllPhases: true})
		require.Error(t, err)
	})

	t.Run("all-phases follows configured order", func(t *testing.T) {
		env := makeEnv(t, "dev", phasedLayout(t))
		targets, err := SelectTargets(env, phasedTopo, Selection{AllPhases: true})
		require.NoError(t, err)
		require.Len(t, targets, 2)
		assert.Equal(t, "infra", targets[0].Phase)
		assert.Equal(t, "coder", targets[1].Phase)
		assert.Equal(t, filepath.Join(env.RootPath, "infra"), targets[0].Dir)
	})

	t.Run("single phase selection", func(t *testing.T) {
		env := makeEnv(t, "dev", phasedLayout(t))
		targets, err := SelectTargets(env, phasedTopo, Selection{Phase: "coder"})
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "coder", targets[0].Phase)
	})

	t.Run("unknown phase rejected", func(t *testing.T) {
		env := makeEnv(t, "dev", phasedLayout(t))
		_, err := SelectTargets(env, phasedTopo, Selection{Phase: "database"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestList(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"prod", "dev", "staging"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hidden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0644))

	envs, err := List(root)
	require.NoError(t, err)
	require.Len(t, envs, 3)
	assert.Equal(t, "dev", envs[0].Name)
	assert.Equal(t, "prod", envs[1].Name)
	assert.Equal(t, "staging", envs[2].Name)
}
