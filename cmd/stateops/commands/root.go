package commands

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/config"
	"github.com/catherinevee/stateops/internal/engine"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/logger"
)

// ErrDriftDetected signals pending changes were found. Mapped to exit code 2,
// distinct from operational errors, mirroring the engine's own convention.
var ErrDriftDetected = errors.New("drift detected")

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stateops",
	Short: "Remote state lifecycle orchestrator for phased environments",
	Long: `stateops provisions, migrates, backs up, restores, inspects and
drift-checks the remote state of infrastructure environments that are split
into independent deployment phases, each with its own state artifact in an
S3-compatible backend.

The object-storage backend provides no locking primitive: concurrent
invocations against the same environment and phase are not safe and must be
serialized by the operator or calling automation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger.Initialize(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "stateops.yaml", "Path to the configuration file")

	rootCmd.AddCommand(backendCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(healthCmd)
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	log := logger.Get()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, ErrDriftDetected) {
			return 2
		}
		if apperrors.IsDeclined(err) {
			log.Info(err.Error())
			return 0
		}

		var structured *apperrors.Error
		if errors.As(err, &structured) {
			fields := []logger.Field{logger.String("type", string(structured.Type))}
			if structured.Phase != "" {
				fields = append(fields, logger.String("phase", structured.Phase))
			}
			log.Error(structured.Message, fields...)
			if structured.Cause != nil {
				log.Error("caused by", logger.Err(structured.Cause))
			}
			if structured.Remediation != "" {
				log.Info("remediation: " + structured.Remediation)
			}
			return 1
		}

		log.Error(err.Error())
		return 1
	}
	return 0
}

// request is the immutable per-invocation context every component receives.
// Built once from parsed arguments; no component reads ambient process state.
type request struct {
	RunID       string
	Environment *environment.Environment
	Topology    *environment.Topology
	Targets     []environment.PhaseTarget
	Log         logger.Logger
}

// resolve discovers the environment, re-resolves its topology (never cached:
// directories can change between runs) and validates the phase selection.
func resolve(envName, phase string, allPhases bool) (*request, error) {
	if envName == "" {
		return nil, apperrors.NewValidationError("--env is required")
	}

	env, err := environment.Discover(cfg.EnvironmentsRoot, envName)
	if err != nil {
		return nil, err
	}

	topo, err := environment.ResolveTopology(env, cfg.Phases)
	if err != nil {
		return nil, err
	}

	targets, err := environment.SelectTargets(env, topo, environment.Selection{
		Phase:     phase,
		AllPhases: allPhases,
	})
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	return &request{
		RunID:       runID,
		Environment: env,
		Topology:    topo,
		Targets:     targets,
		Log: logger.Get().WithFields(
			logger.String("run_id", runID),
			logger.String("environment", env.Name)),
	}, nil
}

// newEngine builds the provisioning-engine driver and verifies prerequisites
func newEngine(ctx context.Context, timeout time.Duration) (*engine.TerraformCLI, error) {
	if timeout <= 0 {
		timeout = cfg.Engine.Timeout
	}
	eng := engine.NewTerraformCLI(cfg.Engine.Binary, timeout)
	if err := eng.Preflight(ctx, cfg.Engine.MinVersion); err != nil {
		return nil, err
	}
	return eng, nil
}
