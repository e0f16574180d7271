package commands

import (
	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:       "workspace <list|new|select|delete>",
	Short:     "Manage named state workspaces within a phase",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"list", "new", "select", "delete"},
	RunE:      runWorkspace,
}

var (
	wsEnv   string
	wsPhase string
	wsName  string
)

func init() {
	workspaceCmd.Flags().StringVar(&wsEnv, "env", "", "Environment name")
	workspaceCmd.Flags().StringVar(&wsPhase, "phase", "", "Phase to operate in")
	workspaceCmd.Flags().StringVar(&wsName, "workspace", "", "Workspace name")
}

func runWorkspace(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	action := args[0]

	// Workspace operations act on exactly one phase at a time
	req, err := resolve(wsEnv, wsPhase, false)
	if err != nil {
		return err
	}
	target := req.Targets[0]

	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}
	manager := workspace.NewManager(eng)

	switch action {
	case "list":
		workspaces, err := manager.List(ctx, target)
		if err != nil {
			return err
		}
		table := newTable("WORKSPACE", "PHASE", "CURRENT")
		for _, ws := range workspaces {
			table.Append([]string{ws.Name, orDash(ws.Phase), boolString(ws.Current)})
		}
		table.Render()
		return nil
	case "new":
		return manager.Create(ctx, target, wsName)
	case "select":
		return manager.Select(ctx, target, wsName)
	case "delete":
		return manager.Delete(ctx, target, wsName)
	default:
		return apperrors.NewValidationError("unknown workspace action %q", action)
	}
}
