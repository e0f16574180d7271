package commands

import (
	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/cluster"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run read-only cluster troubleshooting checks",
	Long: `Checks node readiness and pod status in the cluster the environment
deploys into. Strictly read-only: never touches cluster objects or state.`,
	RunE: runHealth,
}

var healthNamespace string

func init() {
	healthCmd.Flags().StringVar(&healthNamespace, "namespace", "", "Namespace to scope the pod check to (default: all)")
}

func runHealth(cmd *cobra.Command, args []string) error {
	checker, err := cluster.NewHealthChecker()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypePrerequisite, "cluster access unavailable").
			WithRemediation("set KUBECONFIG or run inside the cluster")
	}

	results, err := checker.Check(cmd.Context(), healthNamespace)
	if err != nil {
		return err
	}

	unhealthy := 0
	table := newTable("CHECK", "STATUS", "DETAIL")
	for _, result := range results {
		if !result.Healthy {
			unhealthy++
		}
		table.Append([]string{result.Name, statusString(result.Healthy, "healthy", "unhealthy"), result.Detail})
	}
	table.Render()

	if unhealthy > 0 {
		return apperrors.Newf(apperrors.ErrorTypePrerequisite, "%d of %d checks unhealthy", unhealthy, len(results))
	}
	return nil
}
