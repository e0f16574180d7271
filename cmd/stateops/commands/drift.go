package commands

import (
	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/drift"
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Check phases for drift between declared and provisioned state",
	Long: `Runs the engine's diff operation per phase and classifies each outcome as
NoDrift, PendingChanges or Error. Phases are checked independently: one
phase's failure never suppresses its siblings' reports. Exit code 2 means
drift was found; 1 means a check itself failed.`,
	RunE: runDrift,
}

var (
	driftEnv       string
	driftPhase     string
	driftAllPhases bool
	driftFormat    string
)

func init() {
	driftCmd.Flags().StringVar(&driftEnv, "env", "", "Environment name")
	driftCmd.Flags().StringVar(&driftPhase, "phase", "", "Phase to check")
	driftCmd.Flags().BoolVar(&driftAllPhases, "all-phases", false, "Check every configured phase")
	driftCmd.Flags().StringVar(&driftFormat, "format", formatTable, "Output format: table or json")
}

func runDrift(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateFormat(driftFormat, formatTable, formatJSON); err != nil {
		return err
	}
	req, err := resolve(driftEnv, driftPhase, driftAllPhases)
	if err != nil {
		return err
	}
	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}

	detector := drift.NewDetector(eng)
	reports := detector.Check(ctx, req.Environment, req.Targets)

	if driftFormat == formatJSON {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		table := newTable("PHASE", "STATUS", "DETAIL")
		for _, report := range reports {
			status := string(report.Status)
			switch report.Status {
			case drift.StatusNoDrift:
				status = okColor.Sprint(status)
			case drift.StatusPendingChanges:
				status = warnColor.Sprint(status)
			case drift.StatusError:
				status = errColor.Sprint(status)
			}
			table.Append([]string{orDash(report.Phase), status, orDash(report.Error)})
		}
		table.Render()
	}

	if drift.HasError(reports) {
		return apperrors.Newf(apperrors.ErrorTypeEngine, "drift check failed for one or more phases")
	}
	if drift.HasDrift(reports) {
		return ErrDriftDetected
	}
	return nil
}
