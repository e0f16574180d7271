// Package enginetest provides a configurable fake provisioning engine for
// tests that must not shell out.
package enginetest

import (
	"context"
	"fmt"

	"github.com/catherinevee/stateops/internal/engine"
)

// Fake implements engine.Engine with per-operation hooks. Unset hooks fall
// back to benign defaults. Calls records every invocation in order.
type Fake struct {
	VersionFunc   func(ctx context.Context) (string, error)
	InitFunc      func(ctx context.Context, dir string, opts engine.InitOptions) error
	StatePullFunc func(ctx context.Context, dir string) ([]byte, error)
	StatePushFunc func(ctx context.Context, dir, stateFile string) error
	PlanFunc      func(ctx context.Context, dir string) (engine.PlanOutcome, string, error)
	ShowJSONFunc  func(ctx context.Context, dir string) ([]byte, error)

	Workspaces map[string][]string

	Calls []string
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) Version(ctx context.Context) (string, error) {
	f.record("version")
	if f.VersionFunc != nil {
		return f.VersionFunc(ctx)
	}
	return "1.7.0", nil
}

func (f *Fake) Init(ctx context.Context, dir string, opts engine.InitOptions) error {
	f.record("init %s reconfigure=%t force-copy=%t", dir, opts.Reconfigure, opts.ForceCopy)
	if f.InitFunc != nil {
		return f.InitFunc(ctx, dir, opts)
	}
	return nil
}

func (f *Fake) StatePull(ctx context.Context, dir string) ([]byte, error) {
	f.record("state-pull %s", dir)
	if f.StatePullFunc != nil {
		return f.StatePullFunc(ctx, dir)
	}
	return []byte(`{"version":4,"terraform_version":"1.7.0","serial":1,"lineage":"fake","resources":[]}`), nil
}

func (f *Fake) StatePush(ctx context.Context, dir, stateFile string) error {
	f.record("state-push %s %s", dir, stateFile)
	if f.StatePushFunc != nil {
		return f.StatePushFunc(ctx, dir, stateFile)
	}
	return nil
}

func (f *Fake) Plan(ctx context.Context, dir string) (engine.PlanOutcome, string, error) {
	f.record("plan %s", dir)
	if f.PlanFunc != nil {
		return f.PlanFunc(ctx, dir)
	}
	return engine.PlanNoChanges, "", nil
}

func (f *Fake) ShowJSON(ctx context.Context, dir string) ([]byte, error) {
	f.record("show-json %s", dir)
	if f.ShowJSONFunc != nil {
		return f.ShowJSONFunc(ctx, dir)
	}
	return []byte(`{"format_version":"1.0"}`), nil
}

func (f *Fake) WorkspaceList(ctx context.Context, dir string) (string, error) {
	f.record("workspace-list %s", dir)
	out := ""
	for i, name := range f.workspaceNames(dir) {
		if i == 0 {
			out += "* " + name + "\n"
			continue
		}
		out += "  " + name + "\n"
	}
	return out, nil
}

func (f *Fake) WorkspaceNew(ctx context.Context, dir, name string) error {
	f.record("workspace-new %s %s", dir, name)
	if f.Workspaces == nil {
		f.Workspaces = make(map[string][]string)
	}
	f.Workspaces[dir] = append(f.workspaceNames(dir), name)
	return nil
}

func (f *Fake) WorkspaceSelect(ctx context.Context, dir, name string) error {
	f.record("workspace-select %s %s", dir, name)
	return nil
}

func (f *Fake) WorkspaceDelete(ctx context.Context, dir, name string) error {
	f.record("workspace-delete %s %s", dir, name)
	return nil
}

func (f *Fake) workspaceNames(dir string) []string {
	if names, ok := f.Workspaces[dir]; ok {
		return names
	}
	return []string{"default"}
}
