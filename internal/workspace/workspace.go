package workspace

import (
	"context"
	"strings"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/engine"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/logger"
)

// Workspace is one named state workspace within a phase. Lifecycle is fully
// delegated to the provisioning engine; this package only issues requests.
type Workspace struct {
	Name    string `json:"name"`
	Phase   string `json:"phase,omitempty"`
	Current bool   `json:"current"`
}

// Manager is a thin pass-through to the engine's workspace primitives
type Manager struct {
	engine engine.Engine
	log    logger.Logger
}

// NewManager creates a workspace manager
func NewManager(eng engine.Engine) *Manager {
	return &Manager{engine: eng, log: logger.Get()}
}

// List returns the workspaces of one phase
func (m *Manager) List(ctx context.Context, target environment.PhaseTarget) ([]Workspace, error) {
	out, err := m.engine.WorkspaceList(ctx, target.Dir)
	if err != nil {
		return nil, err
	}
	return parseList(out, target.Phase), nil
}

// Create creates a named workspace in one phase
func (m *Manager) Create(ctx context.Context, target environment.PhaseTarget, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := m.engine.WorkspaceNew(ctx, target.Dir, name); err != nil {
		return err
	}
	m.log.Info("workspace created", logger.String("workspace", name), logger.String("phase", target.Phase))
	return nil
}

// Select switches one phase to a named workspace
func (m *Manager) Select(ctx context.Context, target environment.PhaseTarget, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return m.engine.WorkspaceSelect(ctx, target.Dir, name)
}

// Delete removes a named workspace from one phase
func (m *Manager) Delete(ctx context.Context, target environment.PhaseTarget, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if name == "default" {
		return apperrors.NewValidationError("the default workspace cannot be deleted")
	}
	if err := m.engine.WorkspaceDelete(ctx, target.Dir, name); err != nil {
		return err
	}
	m.log.Info("workspace deleted", logger.String("workspace", name), logger.String("phase", target.Phase))
	return nil
}

// parseList decodes the engine's workspace listing; the current workspace
// is the line marked with an asterisk
func parseList(out, phase string) []Workspace {
	var workspaces []Workspace
	for _, line := range strings.Split(out, "\n") {
		current := strings.HasPrefix(line, "*")
		name := strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if name == "" {
			continue
		}
		workspaces = append(workspaces, Workspace{Name: name, Phase: phase, Current: current})
	}
	return workspaces
}

func validateName(name string) error {
	if name == "" {
		return apperrors.NewValidationError("workspace name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\ ") {
		return apperrors.NewValidationError("workspace name %q contains invalid characters", name)
	}
	return nil
}
