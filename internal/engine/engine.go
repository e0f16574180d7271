package engine

import (
	"context"
)

// InitOptions controls backend initialization
type InitOptions struct {
	// Reconfigure ignores any previously initialized backend
	Reconfigure bool
	// ForceCopy answers "yes" to the engine's offer to copy existing state
	// into the new backend, keeping the run non-interactive
	ForceCopy bool
}

// PlanOutcome classifies the engine's diff result
type PlanOutcome int

const (
	// PlanNoChanges means the diff found no differences
	PlanNoChanges PlanOutcome = iota
	// PlanChanges means differences were found
	PlanChanges
	// PlanError means the diff operation itself failed
	PlanError
)

// Engine is the provisioning-engine command interface. Every call takes an
// explicit working directory; the process-wide current directory is never
// mutated. Calls block until the subprocess completes or the context expires.
type Engine interface {
	// Version returns the engine's semantic version string
	Version(ctx context.Context) (string, error)
	// Init initializes the working directory against its declared backend
	Init(ctx context.Context, dir string, opts InitOptions) error
	// StatePull reads the authoritative state through the engine
	StatePull(ctx context.Context, dir string) ([]byte, error)
	// StatePush pushes a local state artifact as the authoritative state
	StatePush(ctx context.Context, dir, stateFile string) error
	// Plan runs the diff operation and classifies its exit signal
	Plan(ctx context.Context, dir string) (PlanOutcome, string, error)
	// ShowJSON returns the engine's structured rendering of current state
	ShowJSON(ctx context.Context, dir string) ([]byte, error)

	// WorkspaceList lists named workspaces; the current one is marked by the engine
	WorkspaceList(ctx context.Context, dir string) (string, error)
	// WorkspaceNew creates a named workspace
	WorkspaceNew(ctx context.Context, dir, name string) error
	// WorkspaceSelect switches to a named workspace
	WorkspaceSelect(ctx context.Context, dir, name string) error
	// WorkspaceDelete removes a named workspace
	WorkspaceDelete(ctx context.Context, dir, name string) error
}
