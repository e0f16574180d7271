package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/backend"
	"github.com/catherinevee/stateops/internal/backup"
	"github.com/catherinevee/stateops/internal/engine"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/logger"
	"github.com/catherinevee/stateops/internal/state"
)

const localStateName = "terraform.tfstate"

// Options controls a migration run
type Options struct {
	DryRun     bool
	Force      bool
	SkipBackup bool
}

// PhaseResult reports one phase's migration outcome. Failed phases carry
// their error so multi-phase runs can report every outcome, not just the
// first failure.
type PhaseResult struct {
	Phase             string   `json:"phase,omitempty"`
	SnapshotID        string   `json:"snapshot_id,omitempty"`
	Migrated          bool     `json:"migrated"`
	VerifiedResources int      `json:"verified_resources"`
	PlannedActions    []string `json:"planned_actions,omitempty"`
	Err               error    `json:"-"`
	Error             string   `json:"error,omitempty"`
}

// Engine moves local state artifacts into the remote backend
type Engine struct {
	engine engine.Engine
	backup *backup.Manager
	log    logger.Logger
}

// NewEngine creates a migration engine
func NewEngine(eng engine.Engine, backupMgr *backup.Manager) *Engine {
	return &Engine{
		engine: eng,
		backup: backupMgr,
		log:    logger.Get(),
	}
}

// Migrate moves every target phase's state into the remote backend, strictly
// sequentially. A failure on one phase is recorded and the next phase is
// still attempted, so a failure on phase N leaves phase N+1 reportable.
// There is no automatic rollback: recovery is a manual restore from the
// pre-migration snapshot.
func (e *Engine) Migrate(ctx context.Context, env *environment.Environment, targets []environment.PhaseTarget, opts Options) []PhaseResult {
	results := make([]PhaseResult, 0, len(targets))

	for _, target := range targets {
		result := e.migratePhase(ctx, env, target, opts)
		if result.Err != nil {
			result.Error = result.Err.Error()
			e.log.Error("phase migration failed",
				logger.String("phase", target.Phase),
				logger.Err(result.Err))
		}
		results = append(results, result)
	}
	return results
}

func (e *Engine) migratePhase(ctx context.Context, env *environment.Environment, target environment.PhaseTarget, opts Options) PhaseResult {
	result := PhaseResult{Phase: target.Phase}
	log := e.log.WithFields(
		logger.String("environment", env.Name),
		logger.String("phase", target.Phase))

	// The backend declaration must already exist; migration never invents
	// descriptors on its own.
	artifactPath := filepath.Join(target.Dir, backend.ArtifactFileName)
	if _, err := os.Stat(artifactPath); err != nil {
		result.Err = apperrors.Newf(apperrors.ErrorTypePrerequisite,
			"no backend declaration in %s", target.Dir).
			WithPhase(target.Phase).
			WithRemediation(fmt.Sprintf("run: stateops backend setup --env=%s", env.Name))
		return result
	}

	preLocal, err := e.readLocalState(target.Dir)
	if err != nil {
		result.Err = err
		return result
	}
	if preLocal == nil && !opts.Force {
		log.Info("no local state artifact, nothing to migrate")
		result.Migrated = false
		return result
	}

	if opts.DryRun {
		result.PlannedActions = e.plannedActions(target, preLocal, opts)
		for _, action := range result.PlannedActions {
			log.Info("dry-run: " + action)
		}
		return result
	}

	// Backup-before-mutate is a strict precedence: the mutating init step
	// must not begin until the snapshot has been written.
	if !opts.SkipBackup && preLocal != nil {
		snap, err := e.backup.BackupLocal(env, target, filepath.Join(target.Dir, localStateName), backup.CategoryPreMigration)
		if err != nil {
			result.Err = apperrors.Wrap(err, apperrors.ErrorTypeEngine,
				"pre-migration backup failed, migration aborted for this phase").WithPhase(target.Phase)
			return result
		}
		result.SnapshotID = snap.ID
	} else if opts.SkipBackup {
		log.Warn("skipping pre-migration backup on operator request")
	}

	// The engine detects the pre-existing local state and copies it into the
	// new backend; -force-copy keeps the run non-interactive. Re-running
	// against an already-migrated phase re-initializes and copies nothing.
	if err := e.engine.Init(ctx, target.Dir, engine.InitOptions{Reconfigure: true, ForceCopy: true}); err != nil {
		remediation := "re-run: stateops state migrate --env=" + env.Name
		if result.SnapshotID != "" {
			remediation = fmt.Sprintf("restore from snapshot %s if needed, then re-run migration", result.SnapshotID)
		}
		result.Err = apperrors.Wrap(err, apperrors.ErrorTypeEngine, "backend initialization failed").
			WithPhase(target.Phase).
			WithRemediation(remediation)
		return result
	}

	verified, err := e.verify(ctx, target, preLocal)
	if err != nil {
		result.Err = err
		return result
	}

	result.Migrated = true
	result.VerifiedResources = verified
	log.Info("migration verified", logger.Int("resources", verified))
	return result
}

// verify reads state back through the new backend and asserts it is
// parseable, and non-empty whenever the pre-migration local state was
// non-empty. The resource count is the verification artifact.
func (e *Engine) verify(ctx context.Context, target environment.PhaseTarget, preLocal *state.TerraformState) (int, error) {
	raw, err := e.engine.StatePull(ctx, target.Dir)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrorTypeVerification,
			"failed to read state back from new backend").WithPhase(target.Phase)
	}

	remote, err := state.Parse(raw)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrorTypeVerification,
			"state read from new backend is not parseable").WithPhase(target.Phase)
	}

	if preLocal != nil && !preLocal.IsEmpty() && remote.IsEmpty() {
		return 0, apperrors.NewVerificationError(
			"local state had %d resources but new backend state is empty", preLocal.ResourceCount()).
			WithPhase(target.Phase)
	}

	return remote.ResourceCount(), nil
}

// readLocalState loads the phase's local state artifact, nil when absent
func (e *Engine) readLocalState(dir string) (*state.TerraformState, error) {
	data, err := os.ReadFile(filepath.Join(dir, localStateName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read local state: %w", err)
	}
	st, err := state.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("local state artifact is corrupt: %w", err)
	}
	return st, nil
}

func (e *Engine) plannedActions(target environment.PhaseTarget, preLocal *state.TerraformState, opts Options) []string {
	var actions []string
	if !opts.SkipBackup {
		actions = append(actions, "snapshot current local state under "+backup.CategoryPreMigration)
	}
	actions = append(actions, "initialize engine against declared backend with state copy")
	if preLocal != nil {
		actions = append(actions, fmt.Sprintf("copy %d resources into remote backend", preLocal.ResourceCount()))
	}
	actions = append(actions, "verify state is readable and non-empty via new backend")
	return actions
}
