package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/logger"
	"github.com/catherinevee/stateops/internal/state"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize phase state (counts, serial, lineage)",
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources tracked in phase state",
	RunE:  runList,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Full state detail including outputs and lineage",
	RunE:  runInspect,
}

var (
	inspectEnv       string
	inspectPhase     string
	inspectAllPhases bool
	inspectFormat    string
)

func init() {
	for _, cmd := range []*cobra.Command{showCmd, listCmd, inspectCmd} {
		cmd.Flags().StringVar(&inspectEnv, "env", "", "Environment name")
		cmd.Flags().StringVar(&inspectPhase, "phase", "", "Phase to inspect")
		cmd.Flags().BoolVar(&inspectAllPhases, "all-phases", false, "Inspect every configured phase")
		cmd.Flags().StringVar(&inspectFormat, "format", formatTable, "Output format: table, json or yaml")
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateFormat(inspectFormat, formatTable, formatJSON, formatYAML); err != nil {
		return err
	}
	req, err := resolve(inspectEnv, inspectPhase, inspectAllPhases)
	if err != nil {
		return err
	}
	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}

	inspector := state.NewInspector(eng)
	summaries := make([]*state.Summary, 0, len(req.Targets))
	var failed []string
	for _, target := range req.Targets {
		summary, err := inspector.Show(ctx, target)
		if err != nil {
			req.Log.Error("failed to read phase state",
				logger.String("phase", target.Phase), logger.Err(err))
			failed = append(failed, orDash(target.Phase))
			continue
		}
		summaries = append(summaries, summary)
	}

	switch inspectFormat {
	case formatJSON:
		if err := printJSON(summaries); err != nil {
			return err
		}
	case formatYAML:
		if err := printYAML(summaries); err != nil {
			return err
		}
	default:
		table := newTable("PHASE", "RESOURCES", "OUTPUTS", "SERIAL", "LINEAGE", "ENGINE")
		for _, s := range summaries {
			table.Append([]string{
				orDash(s.Phase),
				intString(s.ResourceCount),
				intString(s.OutputCount),
				intString(s.Serial),
				s.Lineage,
				s.EngineVersion,
			})
		}
		table.Render()
	}
	return readFailures(failed)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateFormat(inspectFormat, formatTable, formatJSON, formatYAML); err != nil {
		return err
	}
	req, err := resolve(inspectEnv, inspectPhase, inspectAllPhases)
	if err != nil {
		return err
	}
	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}

	inspector := state.NewInspector(eng)
	var entries []state.ResourceEntry
	var failed []string
	for _, target := range req.Targets {
		phaseEntries, err := inspector.List(ctx, target)
		if err != nil {
			req.Log.Error("failed to read phase state",
				logger.String("phase", target.Phase), logger.Err(err))
			failed = append(failed, orDash(target.Phase))
			continue
		}
		entries = append(entries, phaseEntries...)
	}

	switch inspectFormat {
	case formatJSON:
		if err := printJSON(entries); err != nil {
			return err
		}
	case formatYAML:
		if err := printYAML(entries); err != nil {
			return err
		}
	default:
		table := newTable("PHASE", "ADDRESS", "TYPE", "PROVIDER")
		for _, e := range entries {
			table.Append([]string{orDash(e.Phase), e.Address, e.Type, e.Provider})
		}
		table.Render()
	}
	return readFailures(failed)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateFormat(inspectFormat, formatTable, formatJSON, formatYAML); err != nil {
		return err
	}
	req, err := resolve(inspectEnv, inspectPhase, inspectAllPhases)
	if err != nil {
		return err
	}
	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}

	inspector := state.NewInspector(eng)
	details := make([]*state.Detail, 0, len(req.Targets))
	var failed []string
	for _, target := range req.Targets {
		detail, err := inspector.Inspect(ctx, target)
		if err != nil {
			req.Log.Error("failed to read phase state",
				logger.String("phase", target.Phase), logger.Err(err))
			failed = append(failed, orDash(target.Phase))
			continue
		}
		details = append(details, detail)
	}

	switch inspectFormat {
	case formatJSON:
		if err := printJSON(details); err != nil {
			return err
		}
		return readFailures(failed)
	case formatYAML:
		if err := printYAML(details); err != nil {
			return err
		}
		return readFailures(failed)
	}

	for _, d := range details {
		printf("phase: %s  serial: %d  lineage: %s  engine: %s\n",
			orDash(d.Summary.Phase), d.Summary.Serial, d.Summary.Lineage, d.Summary.EngineVersion)

		resources := newTable("ADDRESS", "MODE", "PROVIDER", "INSTANCES")
		for i := range d.Resources {
			r := &d.Resources[i]
			resources.Append([]string{r.Address(), r.Mode, r.Provider, intString(len(r.Instances))})
		}
		resources.Render()

		if len(d.Outputs) > 0 {
			outputs := newTable("OUTPUT", "SENSITIVE")
			for name, out := range d.Outputs {
				outputs.Append([]string{name, boolString(out.Sensitive)})
			}
			outputs.Render()
		}
	}
	return readFailures(failed)
}

// readFailures aggregates per-phase read errors once every phase has been
// attempted and the successful ones rendered
func readFailures(failed []string) error {
	if len(failed) == 0 {
		return nil
	}
	return apperrors.Newf(apperrors.ErrorTypeEngine,
		"failed to read state for phases: %s", strings.Join(failed, ", "))
}
