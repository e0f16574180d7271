package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/backend"
	"github.com/catherinevee/stateops/internal/logger"
	"github.com/catherinevee/stateops/internal/storage"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Manage remote state backends",
}

var backendSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision the state bucket and write backend declarations",
	Long: `Ensures the environment's versioned state bucket exists with a lifecycle
retention rule, then writes a backend declaration into each selected phase
directory. Idempotent: re-running against an existing bucket only confirms
its configuration.`,
	RunE: runBackendSetup,
}

var (
	setupEnv       string
	setupPhase     string
	setupAllPhases bool
	setupRegion    string
	setupDryRun    bool
	setupForce     bool
)

func init() {
	backendCmd.AddCommand(backendSetupCmd)

	backendSetupCmd.Flags().StringVar(&setupEnv, "env", "", "Environment name")
	backendSetupCmd.Flags().StringVar(&setupPhase, "phase", "", "Phase to set up")
	backendSetupCmd.Flags().BoolVar(&setupAllPhases, "all-phases", false, "Set up every configured phase")
	backendSetupCmd.Flags().StringVar(&setupRegion, "region", "", "Override the configured storage region")
	backendSetupCmd.Flags().BoolVar(&setupDryRun, "dry-run", false, "Log intended actions without mutating anything")
	backendSetupCmd.Flags().BoolVar(&setupForce, "force", false, "Rewrite backend declarations even if present")
}

func runBackendSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := resolve(setupEnv, setupPhase, setupAllPhases)
	if err != nil {
		return err
	}

	region := cfg.Storage.Region
	if setupRegion != "" {
		region = setupRegion
	}

	if !setupDryRun {
		if err := cfg.CheckCredentials(); err != nil {
			return err
		}
	}

	var store storage.ObjectStore
	if !setupDryRun {
		store, err = storage.NewS3Store(ctx, storage.S3Options{
			Region:    region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: os.Getenv(cfg.Credentials.AccessKeyEnv),
			SecretKey: os.Getenv(cfg.Credentials.SecretKeyEnv),
		})
		if err != nil {
			return err
		}
	}

	provisioner := backend.NewProvisioner(store, region, cfg.Storage.Endpoint, cfg.Storage.RetentionDays)
	results := provisioner.Ensure(ctx, req.Environment, req.Targets, backend.EnsureOptions{
		DryRun: setupDryRun,
		Force:  setupForce,
	})

	failed := 0
	table := newTable("PHASE", "BUCKET", "KEY", "CREATED", "ERROR")
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
		bucket, key := "-", "-"
		if result.Descriptor != nil {
			bucket, key = result.Descriptor.Bucket, result.Descriptor.Key
		}
		table.Append([]string{
			orDash(result.Phase),
			bucket,
			key,
			boolString(result.BucketCreated),
			orDash(result.Error),
		})
	}
	table.Render()

	if failed > 0 {
		return apperrors.Newf(apperrors.ErrorTypeBackend, "%d of %d phases failed to provision", failed, len(results))
	}
	req.Log.Info("backend ready", logger.Int("phases", len(results)))
	return nil
}
