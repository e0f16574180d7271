package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/logger"
	"github.com/catherinevee/stateops/internal/storage"
)

// Provisioner ensures the remote backend exists and materializes backend
// declarations into phase directories
type Provisioner struct {
	store         storage.ObjectStore
	region        string
	endpoint      string
	retentionDays int
	log           logger.Logger
}

// NewProvisioner creates a backend provisioner
func NewProvisioner(store storage.ObjectStore, region, endpoint string, retentionDays int) *Provisioner {
	return &Provisioner{
		store:         store,
		region:        region,
		endpoint:      endpoint,
		retentionDays: retentionDays,
		log:           logger.Get(),
	}
}

// PhaseResult reports the outcome of provisioning one phase. Failed phases
// carry their error so multi-phase runs report every outcome, not just the
// first failure.
type PhaseResult struct {
	Phase         string      `json:"phase,omitempty"`
	Descriptor    *Descriptor `json:"descriptor,omitempty"`
	BucketCreated bool        `json:"bucket_created"`
	ArtifactPath  string      `json:"artifact_path,omitempty"`
	Err           error       `json:"-"`
	Error         string      `json:"error,omitempty"`
}

// EnsureOptions controls a provisioning run
type EnsureOptions struct {
	// DryRun logs intended actions without mutating anything
	DryRun bool
	// Force overwrites backend declarations whose content differs from the
	// rendered descriptor (manual edits are otherwise preserved)
	Force bool
}

// Ensure provisions the bucket and writes a backend declaration for every
// target phase. The bucket is shared per environment, so it is ensured once;
// re-running against an existing bucket is a no-op confirmation. Phases are
// provisioned independently: a failure on one phase is recorded in its result
// and the next phase is still attempted.
func (p *Provisioner) Ensure(ctx context.Context, env *environment.Environment, targets []environment.PhaseTarget, opts EnsureOptions) []PhaseResult {
	results := make([]PhaseResult, 0, len(targets))
	bucketEnsured := false
	bucketCreated := false

	for _, target := range targets {
		result := p.ensurePhase(ctx, env, target, opts, &bucketEnsured, &bucketCreated)
		if result.Err != nil {
			result.Error = result.Err.Error()
			p.log.Error("phase provisioning failed",
				logger.String("phase", target.Phase),
				logger.Err(result.Err))
		}
		results = append(results, result)
	}
	return results
}

func (p *Provisioner) ensurePhase(ctx context.Context, env *environment.Environment, target environment.PhaseTarget, opts EnsureOptions, bucketEnsured, bucketCreated *bool) PhaseResult {
	result := PhaseResult{Phase: target.Phase}

	desc, err := BuildDescriptor(env.Name, target.Phase, p.region, p.endpoint)
	if err != nil {
		result.Err = err
		return result
	}
	result.Descriptor = desc

	if opts.DryRun {
		p.log.Info("dry-run: would ensure bucket and write backend artifact",
			logger.String("bucket", desc.Bucket),
			logger.String("key", desc.Key),
			logger.String("dir", target.Dir))
		return result
	}

	if !*bucketEnsured {
		created, err := p.store.EnsureBucket(ctx, desc.Bucket, p.retentionDays)
		if err != nil {
			result.Err = err
			return result
		}
		*bucketEnsured = true
		*bucketCreated = created
	}
	result.BucketCreated = *bucketCreated

	if err := p.checkExistingArtifact(target.Dir, target.Phase, desc, opts.Force); err != nil {
		result.Err = err
		return result
	}
	path, err := WriteArtifact(target.Dir, desc)
	if err != nil {
		result.Err = err
		return result
	}
	result.ArtifactPath = path

	p.log.Info("backend configured",
		logger.String("phase", target.Phase),
		logger.String("bucket", desc.Bucket),
		logger.String("key", desc.Key))
	return result
}

// checkExistingArtifact preserves manually edited declarations unless the
// operator forces an overwrite
func (p *Provisioner) checkExistingArtifact(dir, phase string, desc *Descriptor, force bool) error {
	existing, err := os.ReadFile(filepath.Join(dir, ArtifactFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read existing backend artifact: %w", err)
	}

	if force || bytes.Equal(existing, RenderArtifact(desc)) {
		return nil
	}
	return apperrors.Newf(apperrors.ErrorTypeValidation,
		"backend declaration in %s differs from the expected configuration", dir).
		WithPhase(phase).
		WithRemediation("re-run with --force to overwrite, or reconcile the file manually")
}
