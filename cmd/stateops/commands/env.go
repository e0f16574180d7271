package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/environment"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Discover environments",
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments and their resolved topology",
	RunE:  runEnvList,
}

func init() {
	envCmd.AddCommand(envListCmd)
}

func runEnvList(cmd *cobra.Command, args []string) error {
	envs, err := environment.List(cfg.EnvironmentsRoot)
	if err != nil {
		return err
	}

	table := newTable("ENVIRONMENT", "TOPOLOGY", "PHASES")
	for _, env := range envs {
		topo, err := environment.ResolveTopology(env, cfg.Phases)
		if err != nil {
			table.Append([]string{env.Name, errColor.Sprint("unknown"), "-"})
			continue
		}
		phases := "-"
		if len(topo.Phases) > 0 {
			phases = strings.Join(topo.Phases, ", ")
		}
		table.Append([]string{env.Name, string(topo.Kind), phases})
	}
	table.Render()
	return nil
}
