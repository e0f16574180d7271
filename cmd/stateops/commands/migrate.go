package commands

import (
	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/backup"
	"github.com/catherinevee/stateops/internal/logger"
	"github.com/catherinevee/stateops/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move local state artifacts into the remote backend",
	Long: `Snapshots the current local state, re-initializes the provisioning engine
against the declared backend (copying the state non-interactively), then
verifies the state is readable through the new backend.

There is no automatic rollback: a failed migration is recovered manually by
restoring the pre-migration snapshot reported in the output.`,
	RunE: runMigrate,
}

var (
	migrateEnv        string
	migratePhase      string
	migrateAllPhases  bool
	migrateDryRun     bool
	migrateForce      bool
	migrateSkipBackup bool
)

func init() {
	migrateCmd.Flags().StringVar(&migrateEnv, "env", "", "Environment name")
	migrateCmd.Flags().StringVar(&migratePhase, "phase", "", "Phase to migrate")
	migrateCmd.Flags().BoolVar(&migrateAllPhases, "all-phases", false, "Migrate every configured phase")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "List intended actions without mutating anything")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "Re-initialize even without a local state artifact")
	migrateCmd.Flags().BoolVar(&migrateSkipBackup, "skip-backup", false, "Skip the pre-migration snapshot (not recommended)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := resolve(migrateEnv, migratePhase, migrateAllPhases)
	if err != nil {
		return err
	}

	if !migrateDryRun {
		if err := cfg.CheckCredentials(); err != nil {
			return err
		}
	}

	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}

	backupMgr := backup.NewManager(cfg.Backup.Root, eng)
	migrator := migrate.NewEngine(eng, backupMgr)

	results := migrator.Migrate(ctx, req.Environment, req.Targets, migrate.Options{
		DryRun:     migrateDryRun,
		Force:      migrateForce,
		SkipBackup: migrateSkipBackup,
	})

	failed := 0
	table := newTable("PHASE", "MIGRATED", "RESOURCES", "SNAPSHOT", "ERROR")
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
		phase := result.Phase
		if phase == "" {
			phase = "-"
		}
		table.Append([]string{
			phase,
			statusString(result.Err == nil, boolString(result.Migrated), "failed"),
			intString(result.VerifiedResources),
			orDash(result.SnapshotID),
			orDash(result.Error),
		})
	}
	table.Render()

	if failed > 0 {
		return apperrors.Newf(apperrors.ErrorTypeEngine, "%d of %d phases failed to migrate", failed, len(results))
	}
	req.Log.Info("migration complete", logger.Int("phases", len(results)))
	return nil
}
