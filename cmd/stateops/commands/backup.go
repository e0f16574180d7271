package commands

import (
	"bufio"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/backup"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/logger"
)

var stateBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the authoritative state of one or all phases",
	RunE:  runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Push a snapshot back as the live state",
	Long: `Pushes a snapshot's stored state back through the provisioning engine.
Requires interactive confirmation unless --force is set, and refuses to
proceed when the snapshot lacks an entry for any requested phase.`,
	RunE: runRestore,
}

var (
	backupEnv       string
	backupPhase     string
	backupAllPhases bool
	backupList      bool

	restoreEnv       string
	restorePhase     string
	restoreAllPhases bool
	restoreSnapshot  string
	restoreForce     bool
)

func init() {
	stateBackupCmd.Flags().StringVar(&backupEnv, "env", "", "Environment name")
	stateBackupCmd.Flags().StringVar(&backupPhase, "phase", "", "Phase to back up")
	stateBackupCmd.Flags().BoolVar(&backupAllPhases, "all-phases", false, "Back up every configured phase")
	stateBackupCmd.Flags().BoolVar(&backupList, "list", false, "List existing snapshots instead of creating one")

	restoreCmd.Flags().StringVar(&restoreEnv, "env", "", "Environment name")
	restoreCmd.Flags().StringVar(&restorePhase, "phase", "", "Phase to restore")
	restoreCmd.Flags().BoolVar(&restoreAllPhases, "all-phases", false, "Restore every configured phase")
	restoreCmd.Flags().StringVar(&restoreSnapshot, "snapshot", "", "Snapshot identifier to restore")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Skip the confirmation prompt")
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if backupList {
		return runBackupList(backupEnv)
	}

	req, err := resolve(backupEnv, backupPhase, backupAllPhases)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}

	manager := backup.NewManager(cfg.Backup.Root, eng)
	snapshots, backupErr := manager.Backup(ctx, req.Environment, req.Targets, backup.CategoryManual)

	// Render the phases that did snapshot even when others failed
	table := newTable("SNAPSHOT", "PHASE", "RESOURCES", "SERIAL", "PATH")
	for _, snap := range snapshots {
		table.Append([]string{
			snap.ID,
			orDash(snap.Phase),
			intString(snap.ResourceCount),
			intString(snap.Serial),
			snap.StoragePath,
		})
	}
	table.Render()

	if backupErr != nil {
		return backupErr
	}
	req.Log.Info("backup complete", logger.Int("snapshots", len(snapshots)))
	return nil
}

func runBackupList(envName string) error {
	env, err := environment.Discover(cfg.EnvironmentsRoot, envName)
	if err != nil {
		return err
	}

	// Listing snapshots reads only local metadata records; no engine needed
	manager := backup.NewManager(cfg.Backup.Root, nil)
	snapshots, err := manager.List(env.Name)
	if err != nil {
		return err
	}

	table := newTable("SNAPSHOT", "PHASE", "CATEGORY", "CREATED", "RESOURCES")
	for _, snap := range snapshots {
		table.Append([]string{
			snap.ID,
			orDash(snap.Phase),
			snap.Category,
			snap.CreatedAt.Format("2006-01-02 15:04"),
			intString(snap.ResourceCount),
		})
	}
	table.Render()
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if restoreSnapshot == "" {
		return apperrors.NewValidationError("--snapshot is required")
	}

	req, err := resolve(restoreEnv, restorePhase, restoreAllPhases)
	if err != nil {
		return err
	}

	if err := cfg.CheckCredentials(); err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg.Engine.Timeout)
	if err != nil {
		return err
	}

	manager := backup.NewManager(cfg.Backup.Root, eng)
	return manager.Restore(ctx, req.Environment, restoreSnapshot, req.Targets, restoreForce, promptConfirm)
}

// promptConfirm asks the operator on the terminal
func promptConfirm(prompt string) (bool, error) {
	printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
