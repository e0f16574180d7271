package commands

import (
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Operate on remote phase state",
}

func init() {
	stateCmd.AddCommand(migrateCmd)
	stateCmd.AddCommand(stateBackupCmd)
	stateCmd.AddCommand(restoreCmd)
	stateCmd.AddCommand(showCmd)
	stateCmd.AddCommand(listCmd)
	stateCmd.AddCommand(inspectCmd)
	stateCmd.AddCommand(driftCmd)
	stateCmd.AddCommand(workspaceCmd)
}
