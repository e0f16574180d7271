package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/catherinevee/stateops/internal/apperrors"
)

// Environment represents one discovered environment directory
type Environment struct {
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
}

// TopologyKind classifies an environment layout
type TopologyKind string

const (
	// TopologyLegacy is a single root-level state layout
	TopologyLegacy TopologyKind = "legacy"
	// TopologyPhased is a multi-phase layout with one state per phase
	TopologyPhased TopologyKind = "phased"
)

// Topology is the structural classification of an environment. Derived on
// every invocation and never persisted, so directory changes between runs
// are always honored.
type Topology struct {
	Kind   TopologyKind `json:"kind"`
	Phases []string     `json:"phases,omitempty"`
}

// PhaseTarget is one unit of work: a phase name (empty for legacy layouts)
// and the directory the provisioning engine runs in.
type PhaseTarget struct {
	Phase string `json:"phase,omitempty"`
	Dir   string `json:"dir"`
}

// Discover finds an environment by name under the environments root
func Discover(root, name string) (*Environment, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(root, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewValidationError("environment %q not found under %s", name, root)
		}
		return nil, fmt.Errorf("failed to stat environment directory: %w", err)
	}
	if !info.IsDir() {
		return nil, apperrors.NewValidationError("environment path %s is not a directory", path)
	}

	return &Environment{Name: name, RootPath: path}, nil
}

// List enumerates all environments under the environments root, sorted by name
func List(root string) ([]*Environment, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read environments root: %w", err)
	}

	var envs []*Environment
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		envs = append(envs, &Environment{
			Name:     entry.Name(),
			RootPath: filepath.Join(root, entry.Name()),
		})
	}

	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}

// ResolveTopology classifies the environment layout. An environment is phased
// when a subdirectory exists for every configured phase name; it is legacy when
// the root itself holds engine configuration files. Anything else is an error.
func ResolveTopology(env *Environment, phases []string) (*Topology, error) {
	allPhases := true
	for _, phase := range phases {
		info, err := os.Stat(filepath.Join(env.RootPath, phase))
		if err != nil || !info.IsDir() {
			allPhases = false
			break
		}
	}
	if allPhases && len(phases) > 0 {
		return &Topology{Kind: TopologyPhased, Phases: append([]string{}, phases...)}, nil
	}

	matches, err := filepath.Glob(filepath.Join(env.RootPath, "*.tf"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan environment directory: %w", err)
	}
	if len(matches) > 0 {
		return &Topology{Kind: TopologyLegacy}, nil
	}

	return nil, apperrors.NewTopologyError(
		"unknown topology for environment %q: no phase directories %v and no root-level configuration",
		env.Name, phases)
}

// Selection carries the operator's phase flags
type Selection struct {
	Phase     string
	AllPhases bool
}

// SelectTargets validates the phase selection against the resolved topology
// and returns the ordered list of phase targets to operate on. Phases are
// always processed in the configured order so multi-phase failures are
// deterministic.
func SelectTargets(env *Environment, topo *Topology, sel Selection) ([]PhaseTarget, error) {
	if topo.Kind == TopologyLegacy {
		if sel.Phase != "" || sel.AllPhases {
			return nil, apperrors.NewTopologyError(
				"environment %q has a legacy single-state layout: phase flags are not applicable", env.Name)
		}
		return []PhaseTarget{{Dir: env.RootPath}}, nil
	}

	if sel.Phase != "" && sel.AllPhases {
		return nil, apperrors.NewTopologyError("--phase and --all-phases are mutually exclusive")
	}

	if sel.AllPhases {
		targets := make([]PhaseTarget, 0, len(topo.Phases))
		for _, phase := range topo.Phases {
			targets = append(targets, PhaseTarget{
				Phase: phase,
				Dir:   filepath.Join(env.RootPath, phase),
			})
		}
		return targets, nil
	}

	if sel.Phase == "" {
		return nil, apperrors.NewTopologyError(
			"phase selector required: environment %q is phased, pass --phase=<%s> or --all-phases",
			env.Name, strings.Join(topo.Phases, "|"))
	}

	for _, phase := range topo.Phases {
		if phase == sel.Phase {
			return []PhaseTarget{{
				Phase: phase,
				Dir:   filepath.Join(env.RootPath, phase),
			}}, nil
		}
	}

	return nil, apperrors.NewValidationError("unknown phase %q, configured phases: %v", sel.Phase, topo.Phases)
}

// validateName rejects names that could escape the storage namespace
func validateName(name string) error {
	if name == "" {
		return apperrors.NewValidationError("environment name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return apperrors.NewValidationError("environment name %q contains path separators", name)
	}
	return nil
}
